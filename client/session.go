package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stickfinity/server/canvas"
	"github.com/stickfinity/server/domain"
)

// Session is one open board: the entity store seeded from the initial
// snapshot, the presence tracker, the gesture controller, and the realtime
// bridge feeding them. Close tears everything down.
type Session struct {
	Board      *domain.Board
	State      *canvas.BoardState
	Tracker    *canvas.CursorTracker
	Controller *canvas.Controller

	bridge *Bridge
}

// OpenBoard verifies access, loads the full snapshot once, then subscribes
// to the board's change feed and joins its presence channel. onError, which
// may be nil, receives user-facing messages for failed writes and uploads.
func OpenBoard(ctx context.Context, c *Client, boardID string, log zerolog.Logger, onError func(string)) (*Session, error) {
	user, err := c.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	board, err := c.Board(ctx, boardID)
	if err != nil {
		return nil, err
	}
	notes, err := c.ListNotes(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("load board snapshot: %w", err)
	}
	conns, err := c.ListConnections(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("load board snapshot: %w", err)
	}

	bridge, err := DialBoard(ctx, c.baseURL, c.token, boardID, log)
	if err != nil {
		return nil, err
	}

	state := canvas.NewBoardState(boardID, notes, conns, c, log, onError)

	// Anonymous viewers still need a distinct presence identity, or two
	// anonymous sessions would filter each other's cursors out.
	selfID := uuid.NewString()
	var name string
	var authorID *string
	if user != nil {
		selfID = user.ID
		authorID = &user.ID
		name = user.Email
		if user.DisplayName != nil {
			name = *user.DisplayName
		}
	}
	tracker := canvas.NewCursorTracker(selfID, name, bridge, log)
	ctrl := canvas.NewController(state, tracker, c, authorID, log, onError)

	go bridge.Run(state, tracker)

	return &Session{
		Board:      board,
		State:      state,
		Tracker:    tracker,
		Controller: ctrl,
		bridge:     bridge,
	}, nil
}

// Close leaves the presence channel and stops the change feed. In-flight
// writes are allowed to finish; their results are discarded.
func (s *Session) Close() error {
	return s.bridge.Close()
}
