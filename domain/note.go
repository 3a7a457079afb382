package domain

import "time"

// NoteSize is the fixed visual footprint of a note in canvas units. Width and
// height are presentation constants and are never persisted.
const NoteSize = 200.0

// Color is a note's color tag, drawn from a closed palette.
type Color string

const (
	ColorYellow Color = "yellow"
	ColorPink   Color = "pink"
	ColorOrange Color = "orange"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorPurple Color = "purple"
)

// Palette lists every valid note color.
var Palette = []Color{ColorYellow, ColorPink, ColorOrange, ColorGreen, ColorBlue, ColorPurple}

func (c Color) Valid() bool {
	for _, p := range Palette {
		if c == p {
			return true
		}
	}
	return false
}

// Note is a positioned content card on a board. X and Y are the top-left
// anchor in canvas coordinates.
type Note struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"board_id"`
	AuthorID  *string   `json:"author_id,omitempty"`
	Content   Content   `json:"content"`
	Color     Color     `json:"color"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Center returns the note's center point, offset by half the fixed footprint.
func (n *Note) Center() (x, y float64) {
	return n.X + NoteSize/2, n.Y + NoteSize/2
}
