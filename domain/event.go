package domain

import "encoding/json"

// EventType discriminates change feed records.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Table names the entity table a change event belongs to.
type Table string

const (
	TableNotes       Table = "notes"
	TableConnections Table = "connections"
)

// ChangeEvent is one record on a board's change feed. New carries the full
// row for inserts and updates, Old at least the id for deletes.
type ChangeEvent struct {
	Type  EventType       `json:"type"`
	Table Table           `json:"table"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}

// CursorState is the payload tracked on a board's presence channel. It is
// ephemeral: never persisted, rebuilt from channel membership on every sync.
type CursorState struct {
	UserID string  `json:"user_id"`
	Name   string  `json:"name,omitempty"`
	Color  string  `json:"color"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Message types crossing a board websocket.
const (
	MessageChange       = "change"
	MessageTrack        = "track"
	MessagePresenceSync = "presence_sync"
)

// Message is the envelope for everything on a board websocket: change feed
// records going out, cursor tracking coming in, and full presence snapshots
// (keyed by connection id, one entry per live session) going out.
type Message struct {
	Type     string                   `json:"type"`
	Change   *ChangeEvent             `json:"change,omitempty"`
	Cursor   *CursorState             `json:"cursor,omitempty"`
	Presence map[string][]CursorState `json:"presence,omitempty"`
}
