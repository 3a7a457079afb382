package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stickfinity/server/canvas"
	"github.com/stickfinity/server/domain"
)

// Bridge owns one board's realtime subscription: it dials the board channel,
// drains inbound messages through a single queue into the entity store and
// presence tracker, and exposes the outbound presence track primitive.
//
// The bridge is a thin adapter: reconnection and backoff belong to the
// caller, correctness only needs idempotent delivery into the store.
type Bridge struct {
	conn   *websocket.Conn
	events chan domain.Message

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}

	log zerolog.Logger
}

// DialBoard connects to the realtime channel for a board. The session token
// authenticates the subscription; public boards accept an empty token.
func DialBoard(ctx context.Context, baseURL, token, boardID string, log zerolog.Logger) (*Bridge, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/" + boardID
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial board channel: %w", err)
	}

	b := &Bridge{
		conn:   conn,
		events: make(chan domain.Message, 256),
		done:   make(chan struct{}),
		log:    log,
	}
	go b.readLoop()
	return b, nil
}

func (b *Bridge) readLoop() {
	defer close(b.events)
	for {
		var msg domain.Message
		if err := b.conn.ReadJSON(&msg); err != nil {
			select {
			case <-b.done:
			default:
				b.log.Warn().Err(err).Msg("board channel closed")
			}
			return
		}
		b.events <- msg
	}
}

// Run drains the inbound queue until the connection closes, dispatching
// change events to the store's merge and presence syncs to the tracker.
// Typically run on its own goroutine.
func (b *Bridge) Run(state *canvas.BoardState, tracker *canvas.CursorTracker) {
	for msg := range b.events {
		dispatch(msg, state, tracker, b.log)
	}
}

// dispatch routes one inbound message. Unknown message types are logged and
// dropped; nothing here may take down the gesture loop.
func dispatch(msg domain.Message, state *canvas.BoardState, tracker *canvas.CursorTracker, log zerolog.Logger) {
	switch msg.Type {
	case domain.MessageChange:
		if msg.Change == nil {
			return
		}
		if err := state.ApplyRemote(*msg.Change); err != nil {
			log.Warn().Err(err).Msg("remote event dropped")
		}
	case domain.MessagePresenceSync:
		if tracker != nil {
			tracker.OnSync(msg.Presence)
		}
	default:
		log.Debug().Str("type", msg.Type).Msg("unknown channel message")
	}
}

// Track broadcasts the local cursor state on the presence channel. It
// implements canvas.Broadcaster.
func (b *Bridge) Track(cur domain.CursorState) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteJSON(domain.Message{Type: domain.MessageTrack, Cursor: &cur})
}

// Close tears the subscription down deterministically; no listeners survive.
func (b *Bridge) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		err = b.conn.Close()
	})
	return err
}
