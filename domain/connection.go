package domain

import "time"

// Connection is a directed edge between two notes on the same board. IDs are
// generated by the creating client so the edge can be rendered before the
// server acknowledges the insert.
type Connection struct {
	ID         string    `json:"id"`
	BoardID    string    `json:"board_id"`
	FromNoteID string    `json:"from_note_id"`
	ToNoteID   string    `json:"to_note_id"`
	CreatedAt  time.Time `json:"created_at"`
}
