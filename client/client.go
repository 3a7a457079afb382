// Package client is the Go SDK for a Stickfinity server: a REST client for
// the auth and persistence contracts, a websocket bridge for the realtime
// change feed and presence channel, and the session glue that wires both
// into the canvas engine.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/stickfinity/server/canvas"
	"github.com/stickfinity/server/domain"
)

// ErrAccessDenied marks a board that does not exist or is not visible to the
// current identity. It is terminal: callers show an access-denied view, they
// do not retry.
var ErrAccessDenied = errors.New("board not found or access denied")

// Client talks to one Stickfinity server. It is constructed explicitly and
// injected into every component that needs backend access; there is no
// package-level singleton.
type Client struct {
	http    *resty.Client
	baseURL string
	token   string
	log     zerolog.Logger
}

// New builds a client for the server at baseURL (scheme://host[:port]).
func New(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		http:    resty.New().SetBaseURL(baseURL),
		baseURL: baseURL,
		log:     log,
	}
}

// SetToken installs a session token, e.g. one kept from a previous run.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current session token, if signed in.
func (c *Client) Token() string { return c.token }

type apiError struct {
	Error string `json:"error"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if c.token != "" {
		req.SetHeader("Authorization", "Bearer "+c.token)
	}
	return req
}

func checkStatus(resp *resty.Response, errBody *apiError) error {
	if resp.IsSuccess() {
		return nil
	}
	if resp.StatusCode() == http.StatusNotFound || resp.StatusCode() == http.StatusForbidden {
		return ErrAccessDenied
	}
	if errBody != nil && errBody.Error != "" {
		return fmt.Errorf("server: %s", errBody.Error)
	}
	return fmt.Errorf("server returned %s", resp.Status())
}

// SignUp registers a new account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	var out authResponse
	var apiErr apiError
	resp, err := c.request(ctx).
		SetBody(map[string]string{"email": email, "password": password, "display_name": displayName}).
		SetResult(&out).SetError(&apiErr).
		Post("/api/auth/register")
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if err := checkStatus(resp, &apiErr); err != nil {
		return nil, err
	}
	c.token = out.Token
	return out.User, nil
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	var out authResponse
	var apiErr apiError
	resp, err := c.request(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).SetError(&apiErr).
		Post("/api/auth/login")
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if err := checkStatus(resp, &apiErr); err != nil {
		return nil, err
	}
	c.token = out.Token
	return out.User, nil
}

// SignOut revokes the current session and clears the token.
func (c *Client) SignOut(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	resp, err := c.request(ctx).Post("/api/auth/logout")
	c.token = ""
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return checkStatus(resp, nil)
}

// ResetPassword replaces the signed-in user's password.
func (c *Client) ResetPassword(ctx context.Context, newPassword string) error {
	var apiErr apiError
	resp, err := c.request(ctx).
		SetBody(map[string]string{"password": newPassword}).
		SetError(&apiErr).
		Put("/api/auth/password")
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return checkStatus(resp, &apiErr)
}

// CurrentUser returns the identity behind the session token, or (nil, nil)
// when no session is active.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	if c.token == "" {
		return nil, nil
	}
	var out domain.User
	resp, err := c.request(ctx).SetResult(&out).Get("/api/auth/me")
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return nil, nil
	}
	if err := checkStatus(resp, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBoards returns the signed-in user's boards, newest first.
func (c *Client) ListBoards(ctx context.Context) ([]domain.Board, error) {
	var out []domain.Board
	resp, err := c.request(ctx).SetResult(&out).Get("/api/boards")
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	if err := checkStatus(resp, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBoard makes a new private board owned by the current user.
func (c *Client) CreateBoard(ctx context.Context, name string) (*domain.Board, error) {
	var out domain.Board
	var apiErr apiError
	resp, err := c.request(ctx).
		SetBody(map[string]string{"name": name}).
		SetResult(&out).SetError(&apiErr).
		Post("/api/boards")
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	if err := checkStatus(resp, &apiErr); err != nil {
		return nil, err
	}
	return &out, nil
}

// Board fetches one board, verifying access.
func (c *Client) Board(ctx context.Context, id string) (*domain.Board, error) {
	var out domain.Board
	resp, err := c.request(ctx).SetResult(&out).Get("/api/boards/" + id)
	if err != nil {
		return nil, fmt.Errorf("fetch board: %w", err)
	}
	if err := checkStatus(resp, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetBoardPublic toggles a board's visibility.
func (c *Client) SetBoardPublic(ctx context.Context, id string, public bool) error {
	resp, err := c.request(ctx).
		SetBody(map[string]bool{"is_public": public}).
		Patch("/api/boards/" + id)
	if err != nil {
		return fmt.Errorf("share board: %w", err)
	}
	return checkStatus(resp, nil)
}

// ListNotes fetches the full note snapshot for a board.
func (c *Client) ListNotes(ctx context.Context, boardID string) ([]*domain.Note, error) {
	var out []*domain.Note
	resp, err := c.request(ctx).SetResult(&out).Get("/api/boards/" + boardID + "/notes")
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if err := checkStatus(resp, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// ListConnections fetches the full connection snapshot for a board.
func (c *Client) ListConnections(ctx context.Context, boardID string) ([]*domain.Connection, error) {
	var out []*domain.Connection
	resp, err := c.request(ctx).SetResult(&out).Get("/api/boards/" + boardID + "/connections")
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	if err := checkStatus(resp, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertNote persists a note. The client-generated id is honored by the
// server so the optimistic local entry and the echoed insert event agree.
func (c *Client) InsertNote(ctx context.Context, note *domain.Note) error {
	var apiErr apiError
	resp, err := c.request(ctx).
		SetBody(note).SetError(&apiErr).
		Post("/api/boards/" + note.BoardID + "/notes")
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return checkStatus(resp, &apiErr)
}

// UpdateNote persists a partial note update; only set fields are sent.
func (c *Client) UpdateNote(ctx context.Context, id string, fields canvas.NoteFields) error {
	body := map[string]any{}
	if fields.X != nil {
		body["x"] = *fields.X
	}
	if fields.Y != nil {
		body["y"] = *fields.Y
	}
	if fields.Color != nil {
		body["color"] = *fields.Color
	}
	if fields.Content != nil {
		body["content"] = *fields.Content
	}
	if len(body) == 0 {
		return nil
	}
	var apiErr apiError
	resp, err := c.request(ctx).
		SetBody(body).SetError(&apiErr).
		Patch("/api/notes/" + id)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return checkStatus(resp, &apiErr)
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	resp, err := c.request(ctx).Delete("/api/notes/" + id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return checkStatus(resp, nil)
}

// InsertConnection persists a connection under its client-generated id.
func (c *Client) InsertConnection(ctx context.Context, conn *domain.Connection) error {
	var apiErr apiError
	resp, err := c.request(ctx).
		SetBody(conn).SetError(&apiErr).
		Post("/api/boards/" + conn.BoardID + "/connections")
	if err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}
	return checkStatus(resp, &apiErr)
}

// DeleteConnection removes a connection.
func (c *Client) DeleteConnection(ctx context.Context, id string) error {
	resp, err := c.request(ctx).Delete("/api/connections/" + id)
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	return checkStatus(resp, nil)
}

// Upload stores a blob in the asset store and returns its public URL.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	var apiErr apiError
	resp, err := c.request(ctx).
		SetFileReader("file", name, bytes.NewReader(data)).
		SetResult(&out).SetError(&apiErr).
		Post("/api/uploads")
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	if err := checkStatus(resp, &apiErr); err != nil {
		return "", err
	}
	return out.URL, nil
}
