// Package http wires the REST and websocket surface of the server: auth,
// board/note/connection CRUD with change feed broadcasts, asset uploads and
// the board channel upgrade.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stickfinity/server/auth"
	"github.com/stickfinity/server/domain"
	"github.com/stickfinity/server/store"
	"github.com/stickfinity/server/ws"
)

type Server struct {
	store      *store.Store
	auth       *auth.Service
	hub        *ws.Hub
	uploadsDir string
	publicURL  string
	log        zerolog.Logger
}

func NewServer(st *store.Store, authSvc *auth.Service, hub *ws.Hub, uploadsDir, publicURL string, log zerolog.Logger) *Server {
	return &Server{
		store:      st,
		auth:       authSvc,
		hub:        hub,
		uploadsDir: uploadsDir,
		publicURL:  publicURL,
		log:        log,
	}
}

// Register mounts every route on the app.
func (s *Server) Register(app *fiber.App) {
	api := app.Group("/api")

	api.Post("/auth/register", s.handleRegister)
	api.Post("/auth/login", s.handleLogin)
	api.Post("/auth/logout", s.auth.RequireUser, s.handleLogout)
	api.Put("/auth/password", s.auth.RequireUser, s.handleUpdatePassword)
	api.Get("/auth/me", s.auth.RequireUser, s.handleMe)

	api.Get("/boards", s.auth.RequireUser, s.handleListBoards)
	api.Post("/boards", s.auth.RequireUser, s.handleCreateBoard)
	api.Get("/boards/:id", s.auth.OptionalUser, s.handleGetBoard)
	api.Patch("/boards/:id", s.auth.RequireUser, s.handleShareBoard)
	api.Delete("/boards/:id", s.auth.RequireUser, s.handleDeleteBoard)

	api.Get("/boards/:id/notes", s.auth.OptionalUser, s.handleListNotes)
	api.Post("/boards/:id/notes", s.auth.OptionalUser, s.handleInsertNote)
	api.Patch("/notes/:id", s.auth.OptionalUser, s.handleUpdateNote)
	api.Delete("/notes/:id", s.auth.OptionalUser, s.handleDeleteNote)

	api.Get("/boards/:id/connections", s.auth.OptionalUser, s.handleListConnections)
	api.Post("/boards/:id/connections", s.auth.OptionalUser, s.handleInsertConnection)
	api.Delete("/connections/:id", s.auth.OptionalUser, s.handleDeleteConnection)

	api.Post("/uploads", s.auth.OptionalUser, s.handleUpload)
	app.Static("/uploads", s.uploadsDir)

	app.Use("/ws/:id", s.auth.OptionalUser, func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		board, err := s.accessibleBoard(c, c.Params("id"))
		if err != nil {
			return err
		}
		c.Locals("board_id", board.ID)
		return c.Next()
	})
	app.Get("/ws/:id", websocket.New(func(conn *websocket.Conn) {
		s.hub.HandleConn(conn.Locals("board_id").(string), conn)
	}))
}

// accessibleBoard loads a board and enforces visibility: public boards are
// open to everyone, private boards only to their owner. Denials are
// indistinguishable from missing boards.
func (s *Server) accessibleBoard(c *fiber.Ctx, id string) (*domain.Board, error) {
	board, err := s.store.Board(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fiber.ErrNotFound
		}
		return nil, err
	}
	user := auth.CurrentUser(c)
	if !board.IsPublic && (user == nil || user.ID != board.OwnerID) {
		return nil, fiber.ErrNotFound
	}
	return board, nil
}

func (s *Server) broadcast(boardID string, evType domain.EventType, table domain.Table, newRow, oldRow any) {
	ev := domain.ChangeEvent{Type: evType, Table: table}
	if newRow != nil {
		if raw, err := json.Marshal(newRow); err == nil {
			ev.New = raw
		}
	}
	if oldRow != nil {
		if raw, err := json.Marshal(oldRow); err == nil {
			ev.Old = raw
		}
	}
	s.hub.BroadcastChange(boardID, ev)
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	user, token, err := s.auth.Register(c.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": token, "user": user})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	user, token, err := s.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		return err
	}
	return c.JSON(fiber.Map{"token": token, "user": user})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	token := auth.TokenFromHeader(c.Get(fiber.HeaderAuthorization))
	if err := s.auth.Logout(c.Context(), token); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleUpdatePassword(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := s.auth.UpdatePassword(c.Context(), auth.CurrentUser(c).ID, req.Password); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleMe(c *fiber.Ctx) error {
	return c.JSON(auth.CurrentUser(c))
}

func (s *Server) handleListBoards(c *fiber.Ctx) error {
	boards, err := s.store.BoardsByOwner(c.Context(), auth.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(boards)
}

func (s *Server) handleCreateBoard(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "board name required")
	}
	board := &domain.Board{
		ID:      uuid.NewString(),
		Name:    req.Name,
		Slug:    domain.Slugify(req.Name),
		OwnerID: auth.CurrentUser(c).ID,
	}
	if err := s.store.CreateBoard(c.Context(), board); err != nil {
		if errors.Is(err, store.ErrOwnerMissing) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(board)
}

func (s *Server) handleGetBoard(c *fiber.Ctx) error {
	board, err := s.accessibleBoard(c, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(board)
}

func (s *Server) handleShareBoard(c *fiber.Ctx) error {
	board, err := s.accessibleBoard(c, c.Params("id"))
	if err != nil {
		return err
	}
	if board.OwnerID != auth.CurrentUser(c).ID {
		return fiber.ErrNotFound
	}
	var req struct {
		IsPublic bool `json:"is_public"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := s.store.SetBoardPublic(c.Context(), board.ID, req.IsPublic); err != nil {
		return err
	}
	board.IsPublic = req.IsPublic
	return c.JSON(board)
}

func (s *Server) handleDeleteBoard(c *fiber.Ctx) error {
	board, err := s.accessibleBoard(c, c.Params("id"))
	if err != nil {
		return err
	}
	if board.OwnerID != auth.CurrentUser(c).ID {
		return fiber.ErrNotFound
	}
	if err := s.store.DeleteBoard(c.Context(), board.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListNotes(c *fiber.Ctx) error {
	board, err := s.accessibleBoard(c, c.Params("id"))
	if err != nil {
		return err
	}
	notes, err := s.store.NotesByBoard(c.Context(), board.ID)
	if err != nil {
		return err
	}
	return c.JSON(notes)
}

func (s *Server) handleInsertNote(c *fiber.Ctx) error {
	board, err := s.accessibleBoard(c, c.Params("id"))
	if err != nil {
		return err
	}
	var note domain.Note
	if err := c.BodyParser(&note); err != nil {
		return fiber.ErrBadRequest
	}
	// Honor the client-generated id so the optimistic local entry and the
	// echoed insert event agree.
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	note.BoardID = board.ID
	if !note.Color.Valid() {
		note.Color = domain.ColorYellow
	}
	if user := auth.CurrentUser(c); user != nil {
		note.AuthorID = &user.ID
	} else {
		note.AuthorID = nil
	}
	if err := s.store.InsertNote(c.Context(), &note); err != nil {
		return err
	}
	s.broadcast(board.ID, domain.EventInsert, domain.TableNotes, &note, nil)
	return c.Status(fiber.StatusCreated).JSON(&note)
}

func (s *Server) handleUpdateNote(c *fiber.Ctx) error {
	note, err := s.store.Note(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}
	if _, err := s.accessibleBoard(c, note.BoardID); err != nil {
		return err
	}
	var patch store.NotePatch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.ErrBadRequest
	}
	if patch.Color != nil && !patch.Color.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown color %q", *patch.Color))
	}
	updated, err := s.store.UpdateNote(c.Context(), note.ID, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}
	s.broadcast(note.BoardID, domain.EventUpdate, domain.TableNotes, updated, note)
	return c.JSON(updated)
}

func (s *Server) handleDeleteNote(c *fiber.Ctx) error {
	note, err := s.store.Note(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}
	if _, err := s.accessibleBoard(c, note.BoardID); err != nil {
		return err
	}
	// Connections cascade away in the database; emit their deletes on the
	// feed so clients drop them too.
	conns, err := s.store.ConnectionsByBoard(c.Context(), note.BoardID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteNote(c.Context(), note.ID); err != nil {
		return err
	}
	s.broadcast(note.BoardID, domain.EventDelete, domain.TableNotes, nil, note)
	for _, conn := range conns {
		if conn.FromNoteID == note.ID || conn.ToNoteID == note.ID {
			s.broadcast(note.BoardID, domain.EventDelete, domain.TableConnections, nil, conn)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListConnections(c *fiber.Ctx) error {
	board, err := s.accessibleBoard(c, c.Params("id"))
	if err != nil {
		return err
	}
	conns, err := s.store.ConnectionsByBoard(c.Context(), board.ID)
	if err != nil {
		return err
	}
	return c.JSON(conns)
}

func (s *Server) handleInsertConnection(c *fiber.Ctx) error {
	board, err := s.accessibleBoard(c, c.Params("id"))
	if err != nil {
		return err
	}
	var conn domain.Connection
	if err := c.BodyParser(&conn); err != nil {
		return fiber.ErrBadRequest
	}
	if conn.FromNoteID == conn.ToNoteID {
		return fiber.NewError(fiber.StatusBadRequest, "connection endpoints must differ")
	}
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	conn.BoardID = board.ID
	if err := s.store.InsertConnection(c.Context(), &conn); err != nil {
		return err
	}
	s.broadcast(board.ID, domain.EventInsert, domain.TableConnections, &conn, nil)
	return c.Status(fiber.StatusCreated).JSON(&conn)
}

func (s *Server) handleDeleteConnection(c *fiber.Ctx) error {
	conn, err := s.store.Connection(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}
	if _, err := s.accessibleBoard(c, conn.BoardID); err != nil {
		return err
	}
	if err := s.store.DeleteConnection(c.Context(), conn.ID); err != nil {
		return err
	}
	s.broadcast(conn.BoardID, domain.EventDelete, domain.TableConnections, nil, conn)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file field required")
	}
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	name := uuid.NewString() + filepath.Ext(file.Filename)
	if err := c.SaveFile(file, filepath.Join(s.uploadsDir, name)); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"path": name,
		"url":  s.publicURL + "/uploads/" + name,
	})
}
