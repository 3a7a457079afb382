package main

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/stickfinity/server/auth"
	"github.com/stickfinity/server/config"
	httpapi "github.com/stickfinity/server/http"
	"github.com/stickfinity/server/store"
	"github.com/stickfinity/server/ws"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("storage")
	}
	defer st.Close()

	hub := ws.NewHub(log)
	go hub.Run()

	authSvc := auth.NewService(st, log)
	server := httpapi.NewServer(st, authSvc, hub, cfg.UploadsDir, cfg.PublicURL, log)

	app := fiber.New(fiber.Config{
		AppName: "stickfinity",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "internal error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			} else {
				log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			}
			return c.Status(code).JSON(fiber.Map{"error": message})
		},
	})
	app.Use(recover.New())
	app.Use(cors.New())

	server.Register(app)

	log.Info().Str("addr", cfg.Addr).Msg("server starting")
	if err := app.Listen(cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
