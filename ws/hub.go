// Package ws is the realtime fan-out hub: every connected client belongs to
// exactly one board channel, which carries that board's change feed outward
// and its presence tracking inward.
package ws

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stickfinity/server/domain"
)

// boardConn is the write side of a subscription connection.
type boardConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Client is one live websocket subscription to a board.
type Client struct {
	conn    boardConn
	boardID string
	connID  string
	cursors []domain.CursorState
}

type boardMessage struct {
	boardID string
	msg     domain.Message
}

type trackReq struct {
	client *Client
	cursor domain.CursorState
}

// Hub routes change events and presence state to board channels. All
// connection writes happen on the Run goroutine, so no per-conn locking.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan boardMessage
	track      chan trackReq
	boards     map[string]map[*Client]struct{}
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan boardMessage, 256),
		track:      make(chan trackReq, 256),
		boards:     make(map[string]map[*Client]struct{}),
		log:        log,
	}
}

// Run drives the hub until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			board := h.boards[c.boardID]
			if board == nil {
				board = make(map[*Client]struct{})
				h.boards[c.boardID] = board
			}
			board[c] = struct{}{}
			h.syncPresence(c.boardID)

		case c := <-h.unregister:
			if board, ok := h.boards[c.boardID]; ok {
				if _, ok := board[c]; ok {
					delete(board, c)
					c.conn.Close()
					if len(board) == 0 {
						delete(h.boards, c.boardID)
					}
					h.syncPresence(c.boardID)
				}
			}

		case req := <-h.track:
			req.client.cursors = []domain.CursorState{req.cursor}
			h.syncPresence(req.client.boardID)

		case bm := <-h.broadcast:
			h.send(bm.boardID, bm.msg)
		}
	}
}

// send writes a message to every client on a board, dropping clients whose
// connection has gone bad.
func (h *Hub) send(boardID string, msg domain.Message) {
	board := h.boards[boardID]
	var dead []*Client
	for c := range board {
		if err := c.conn.WriteJSON(msg); err != nil {
			h.log.Warn().Err(err).Str("board_id", boardID).Msg("websocket write failed")
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		delete(board, c)
		c.conn.Close()
	}
	if len(dead) > 0 {
		if len(board) == 0 {
			delete(h.boards, boardID)
		}
		h.syncPresence(boardID)
	}
}

// syncPresence broadcasts the full membership snapshot for a board, keyed by
// connection id. Clients rebuild their cursor map from it wholesale.
func (h *Hub) syncPresence(boardID string) {
	board := h.boards[boardID]
	snapshot := make(map[string][]domain.CursorState, len(board))
	for c := range board {
		snapshot[c.connID] = c.cursors
	}
	h.send(boardID, domain.Message{Type: domain.MessagePresenceSync, Presence: snapshot})
}

// BroadcastChange puts one change feed record on a board channel. Called by
// the HTTP handlers after every successful write.
func (h *Hub) BroadcastChange(boardID string, ev domain.ChangeEvent) {
	h.broadcast <- boardMessage{boardID: boardID, msg: domain.Message{Type: domain.MessageChange, Change: &ev}}
}

// HandleConn subscribes a connection to a board and pumps its inbound track
// messages until it closes. Blocks for the connection's lifetime.
func (h *Hub) HandleConn(boardID string, conn *websocket.Conn) {
	c := &Client{
		conn:    conn,
		boardID: boardID,
		connID:  uuid.NewString(),
	}
	h.register <- c
	defer func() { h.unregister <- c }()

	for {
		var msg domain.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == domain.MessageTrack && msg.Cursor != nil {
			h.track <- trackReq{client: c, cursor: *msg.Cursor}
		}
	}
}
