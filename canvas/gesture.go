package canvas

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stickfinity/server/domain"
)

// Uploader puts a pasted image blob into the asset store and returns its
// public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

type gestureState int

const (
	stateIdle gestureState = iota
	statePanning
	stateDragging
	stateWiring
)

// Modifiers carries the keyboard state relevant to a pointer or wheel event.
type Modifiers struct {
	Pan  bool // platform pan modifier (space / middle button)
	Zoom bool // ctrl or cmd, wheel becomes zoom
	Wire bool // momentary connection-wiring modifier
}

// Controller interprets raw pointer and wheel input into pan, zoom,
// drag-note, draw-connection, create-note and presence intents. It owns the
// view Transform exclusively; everything else reads it for projection.
//
// All state transitions are synchronous. Persistence requests triggered by a
// transition are fire-and-forget and never block the state machine.
type Controller struct {
	board   *BoardState
	tracker *CursorTracker
	uploads Uploader
	log     zerolog.Logger
	onError func(msg string)

	transform Transform
	state     gestureState

	viewportW float64
	viewportH float64

	lastPointer Point

	// drag-note
	dragNoteID  string
	dragOrigin  Point // screen position at pointer-down
	dragNotePos Point // note's canvas position at pointer-down

	// connection wiring
	wireSource string
	wireCursor Point // screen-space rubber-band endpoint, render-only
	wireSticky bool  // sticky toggle keeps wiring armed for click-click use

	defaultColor domain.Color
	authorID     *string
}

// NewController wires the gesture state machine to a board. authorID may be
// nil for anonymous authorship; uploads and onError may be nil.
func NewController(board *BoardState, tracker *CursorTracker, uploads Uploader, authorID *string, log zerolog.Logger, onError func(string)) *Controller {
	if onError == nil {
		onError = func(string) {}
	}
	return &Controller{
		board:        board,
		tracker:      tracker,
		uploads:      uploads,
		log:          log,
		onError:      onError,
		transform:    NewTransform(),
		defaultColor: domain.ColorYellow,
	}
}

// Transform returns the current view state.
func (c *Controller) Transform() Transform { return c.transform }

// SetViewport records the viewport size in screen pixels, used to center
// pasted notes and the minimap viewport rectangle.
func (c *Controller) SetViewport(w, h float64) {
	c.viewportW = w
	c.viewportH = h
}

// SetDefaultColor selects the palette color applied to newly created notes.
// Invalid colors are ignored.
func (c *Controller) SetDefaultColor(color domain.Color) {
	if color.Valid() {
		c.defaultColor = color
	}
}

// SetWireMode toggles sticky wiring: while on, plain pointer-downs on notes
// start connections instead of drags, and a completed or abandoned wire
// leaves the mode armed for the next click.
func (c *Controller) SetWireMode(on bool) {
	c.wireSticky = on
	if !on && c.state == stateWiring {
		c.state = stateIdle
		c.wireSource = ""
	}
}

// Wiring reports the render-only rubber band: the source note id and the
// current screen-space endpoint. ok is false when no wire is in flight.
func (c *Controller) Wiring() (source string, endpoint Point, ok bool) {
	if c.state != stateWiring {
		return "", Point{}, false
	}
	return c.wireSource, c.wireCursor, true
}

// PointerDown starts a gesture from Idle. Pan modifier wins, then wiring,
// then note dragging; pointer-down over empty canvas pans.
func (c *Controller) PointerDown(p Point, mods Modifiers) {
	if c.state != stateIdle {
		return
	}
	c.lastPointer = p

	if mods.Pan {
		c.state = statePanning
		return
	}

	noteID := c.board.NoteAt(c.transform.ToCanvas(p))

	if (mods.Wire || c.wireSticky) && noteID != "" {
		c.state = stateWiring
		c.wireSource = noteID
		c.wireCursor = p
		return
	}

	if noteID != "" {
		note, ok := c.board.Note(noteID)
		if !ok {
			return
		}
		c.state = stateDragging
		c.dragNoteID = noteID
		c.dragOrigin = p
		c.dragNotePos = Point{X: note.X, Y: note.Y}
		return
	}

	c.state = statePanning
}

// PointerMove advances the active gesture and broadcasts the cursor position.
func (c *Controller) PointerMove(p Point) {
	defer func() { c.lastPointer = p }()

	if c.tracker != nil {
		c.tracker.Track(c.transform.ToCanvas(p))
	}

	switch c.state {
	case statePanning:
		c.transform = c.transform.Pan(p.X-c.lastPointer.X, p.Y-c.lastPointer.Y)
	case stateDragging:
		// Screen delta scaled into canvas units, applied to the position the
		// note had when the drag started.
		dx := (p.X - c.dragOrigin.X) / c.transform.Scale
		dy := (p.Y - c.dragOrigin.Y) / c.transform.Scale
		c.board.SetNotePosition(c.dragNoteID, c.dragNotePos.X+dx, c.dragNotePos.Y+dy)
	case stateWiring:
		c.wireCursor = p
	}
}

// PointerUp completes the active gesture. A drag persists the final
// position; wiring over a different note creates the connection, anything
// else abandons it. Sticky wire mode stays armed either way, and treats a
// release over the source note as the first click of a click-click pair.
func (c *Controller) PointerUp(ctx context.Context, p Point) {
	switch c.state {
	case statePanning:
		c.state = stateIdle

	case stateDragging:
		if note, ok := c.board.Note(c.dragNoteID); ok {
			x, y := note.X, note.Y
			c.board.UpdateNote(ctx, c.dragNoteID, NoteFields{X: &x, Y: &y})
		}
		c.state = stateIdle
		c.dragNoteID = ""

	case stateWiring:
		target := c.board.NoteAt(c.transform.ToCanvas(p))
		if c.wireSticky && target == c.wireSource {
			// First click of a click-click wire: keep the band alive.
			c.wireCursor = p
			return
		}
		if target != "" && target != c.wireSource {
			conn := &domain.Connection{
				ID:         uuid.NewString(),
				FromNoteID: c.wireSource,
				ToNoteID:   target,
			}
			if err := c.board.CreateConnection(ctx, conn); err != nil {
				c.log.Debug().Err(err).Msg("connection rejected")
			}
		}
		c.state = stateIdle
		c.wireSource = ""
	}
}

// Wheel handles scroll input, orthogonal to the pointer state machine: with
// the zoom modifier held the delta adjusts scale, otherwise it pans.
func (c *Controller) Wheel(deltaX, deltaY float64, mods Modifiers) {
	if mods.Zoom {
		c.transform = c.transform.Zoom(deltaY)
		return
	}
	c.transform = c.transform.Pan(-deltaX, -deltaY)
}

// DoubleClick on empty canvas creates a note centered on the click point.
// Double-clicks over a note belong to the note's own editor and are ignored
// here.
func (c *Controller) DoubleClick(ctx context.Context, p Point) {
	canvasPt := c.transform.ToCanvas(p)
	if c.board.NoteAt(canvasPt) != "" {
		return
	}
	c.createNoteAt(ctx, canvasPt, domain.TextContent(""))
}

// Paste uploads each pasted image blob and creates an image note centered in
// the current viewport, or on the pointer while no viewport size has been
// reported. A failed upload aborts only that item; the rest of the batch is
// still attempted.
func (c *Controller) Paste(ctx context.Context, images [][]byte) {
	if c.uploads == nil || len(images) == 0 {
		return
	}
	anchor := Point{X: c.viewportW / 2, Y: c.viewportH / 2}
	if c.viewportW == 0 && c.viewportH == 0 {
		anchor = c.lastPointer
	}
	center := c.transform.ToCanvas(anchor)
	for i, blob := range images {
		name := fmt.Sprintf("paste-%s-%d.png", uuid.NewString(), i)
		url, err := c.uploads.Upload(ctx, name, blob)
		if err != nil {
			c.log.Error().Err(err).Msg("image upload failed")
			c.onError("Could not upload a pasted image")
			continue
		}
		c.createNoteAt(ctx, center, domain.ImageContent(url))
	}
}

func (c *Controller) createNoteAt(ctx context.Context, center Point, content domain.Content) {
	c.board.CreateNote(ctx, &domain.Note{
		ID:       uuid.NewString(),
		AuthorID: c.authorID,
		Content:  content,
		Color:    c.defaultColor,
		X:        center.X - domain.NoteSize/2,
		Y:        center.Y - domain.NoteSize/2,
	})
}

// SetAuthor attaches the current identity to notes created from now on. A
// nil id means anonymous authorship.
func (c *Controller) SetAuthor(id *string) { c.authorID = id }

// Navigate jumps the pan offset directly, used by minimap clicks.
func (c *Controller) Navigate(x, y float64) {
	c.transform.X = x
	c.transform.Y = y
}
