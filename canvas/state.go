package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stickfinity/server/domain"
)

// Persister issues the write half of the persistence contract. Writes are
// fire-and-forget from the store's point of view: the optimistic local
// mutation is already applied by the time a Persister call starts.
type Persister interface {
	InsertNote(ctx context.Context, note *domain.Note) error
	UpdateNote(ctx context.Context, id string, fields NoteFields) error
	DeleteNote(ctx context.Context, id string) error
	InsertConnection(ctx context.Context, conn *domain.Connection) error
}

// NoteFields is a partial note update. Nil fields are left untouched, which
// makes re-applying the same values (the client's own echo coming back off
// the change feed) a no-op.
type NoteFields struct {
	X       *float64
	Y       *float64
	Color   *domain.Color
	Content *domain.Content
}

// ErrSelfLoop rejects a connection whose endpoints are the same note.
var ErrSelfLoop = fmt.Errorf("connection endpoints must differ")

// BoardState is the single source of truth for the notes and connections the
// client can see. Local gestures mutate it optimistically before their
// persistence request is issued; remote change events are merged
// idempotently, last write wins.
type BoardState struct {
	mu      sync.RWMutex
	boardID string
	notes   []*domain.Note
	conns   []*domain.Connection

	persist Persister
	log     zerolog.Logger
	onError func(msg string)
}

// NewBoardState builds the store from an initial snapshot. onError receives
// user-facing messages for failed writes and may be nil.
func NewBoardState(boardID string, notes []*domain.Note, conns []*domain.Connection, persist Persister, log zerolog.Logger, onError func(string)) *BoardState {
	if onError == nil {
		onError = func(string) {}
	}
	return &BoardState{
		boardID: boardID,
		notes:   notes,
		conns:   conns,
		persist: persist,
		log:     log,
		onError: onError,
	}
}

// BoardID returns the board this store mirrors.
func (s *BoardState) BoardID() string { return s.boardID }

// Notes returns a snapshot copy for rendering.
func (s *BoardState) Notes() []domain.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Note, len(s.notes))
	for i, n := range s.notes {
		out[i] = *n
	}
	return out
}

// Connections returns a snapshot copy for rendering.
func (s *BoardState) Connections() []domain.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Connection, len(s.conns))
	for i, c := range s.conns {
		out[i] = *c
	}
	return out
}

// Note looks up a note by id.
func (s *BoardState) Note(id string) (domain.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n := s.findNote(id); n != nil {
		return *n, true
	}
	return domain.Note{}, false
}

// NoteCenter returns the center of a note for connection geometry. The
// second return is false for dangling references, which the renderer skips.
func (s *BoardState) NoteCenter(id string) (Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.findNote(id)
	if n == nil {
		return Point{}, false
	}
	x, y := n.Center()
	return Point{X: x, Y: y}, true
}

// NoteAt returns the topmost note whose footprint contains the canvas point,
// or "" if the point is over empty canvas.
func (s *BoardState) NoteAt(p Point) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.notes) - 1; i >= 0; i-- {
		n := s.notes[i]
		if p.X >= n.X && p.X <= n.X+domain.NoteSize && p.Y >= n.Y && p.Y <= n.Y+domain.NoteSize {
			return n.ID
		}
	}
	return ""
}

// CreateNote appends the note optimistically and issues the insert. A failed
// insert is surfaced to the user; the optimistic entry stays in place.
func (s *BoardState) CreateNote(ctx context.Context, note *domain.Note) {
	note.BoardID = s.boardID

	s.mu.Lock()
	s.notes = append(s.notes, note)
	s.mu.Unlock()

	go func() {
		if err := s.persist.InsertNote(ctx, note); err != nil {
			s.log.Error().Err(err).Str("note_id", note.ID).Msg("note insert failed")
			s.onError("Could not save the new note")
		}
	}()
}

// SetNotePosition moves a note locally without persisting, used for every
// intermediate frame of a drag. The final position is persisted once by
// UpdateNote on pointer-up.
func (s *BoardState) SetNotePosition(id string, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.findNote(id); n != nil {
		n.X = x
		n.Y = y
	}
}

// UpdateNote merges the fields into local state immediately, then issues the
// persistence request asynchronously.
func (s *BoardState) UpdateNote(ctx context.Context, id string, fields NoteFields) {
	s.mu.Lock()
	n := s.findNote(id)
	if n == nil {
		// Deleted out from under a pending edit; the update is moot.
		s.mu.Unlock()
		return
	}
	mergeFields(n, fields)
	s.mu.Unlock()

	go func() {
		if err := s.persist.UpdateNote(ctx, id, fields); err != nil {
			s.log.Error().Err(err).Str("note_id", id).Msg("note update failed")
			s.onError("Could not save note changes")
		}
	}()
}

// DeleteNote removes the note locally and issues the delete.
func (s *BoardState) DeleteNote(ctx context.Context, id string) {
	s.mu.Lock()
	s.removeNote(id)
	s.mu.Unlock()

	go func() {
		if err := s.persist.DeleteNote(ctx, id); err != nil {
			s.log.Error().Err(err).Str("note_id", id).Msg("note delete failed")
			s.onError("Could not delete the note")
		}
	}()
}

// CreateConnection inserts an edge optimistically. The id is generated by the
// caller so the edge renders before the server acknowledges. Self-loops are
// rejected.
func (s *BoardState) CreateConnection(ctx context.Context, conn *domain.Connection) error {
	if conn.FromNoteID == conn.ToNoteID {
		return ErrSelfLoop
	}
	conn.BoardID = s.boardID

	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	go func() {
		if err := s.persist.InsertConnection(ctx, conn); err != nil {
			s.log.Error().Err(err).Str("connection_id", conn.ID).Msg("connection insert failed")
			s.onError("Could not save the connection")
		}
	}()
	return nil
}

// ApplyRemote merges one change feed event. Inserts are idempotent (a racing
// local optimistic insert of the same id wins), updates replace fields on the
// matching entity, deletes remove by id. Events for unknown ids are dropped
// silently: a delete can legitimately outrun the update it makes moot.
func (s *BoardState) ApplyRemote(ev domain.ChangeEvent) error {
	switch ev.Table {
	case domain.TableNotes:
		return s.applyRemoteNote(ev)
	case domain.TableConnections:
		return s.applyRemoteConnection(ev)
	default:
		return fmt.Errorf("change event for unknown table %q", ev.Table)
	}
}

func (s *BoardState) applyRemoteNote(ev domain.ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case domain.EventInsert, domain.EventUpdate:
		var note domain.Note
		if err := json.Unmarshal(ev.New, &note); err != nil {
			return fmt.Errorf("decode note event: %w", err)
		}
		existing := s.findNote(note.ID)
		if existing == nil {
			if ev.Type == domain.EventInsert {
				s.notes = append(s.notes, &note)
			}
			return nil
		}
		if ev.Type == domain.EventUpdate {
			*existing = note
		}
		return nil
	case domain.EventDelete:
		id, err := eventID(ev)
		if err != nil {
			return err
		}
		s.removeNote(id)
		return nil
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

func (s *BoardState) applyRemoteConnection(ev domain.ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case domain.EventInsert:
		var conn domain.Connection
		if err := json.Unmarshal(ev.New, &conn); err != nil {
			return fmt.Errorf("decode connection event: %w", err)
		}
		for _, c := range s.conns {
			if c.ID == conn.ID {
				return nil
			}
		}
		s.conns = append(s.conns, &conn)
		return nil
	case domain.EventDelete:
		id, err := eventID(ev)
		if err != nil {
			return err
		}
		for i, c := range s.conns {
			if c.ID == id {
				s.conns = append(s.conns[:i], s.conns[i+1:]...)
				break
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown event type %q for connections", ev.Type)
	}
}

func (s *BoardState) findNote(id string) *domain.Note {
	for _, n := range s.notes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (s *BoardState) removeNote(id string) {
	for i, n := range s.notes {
		if n.ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			return
		}
	}
}

func mergeFields(n *domain.Note, f NoteFields) {
	if f.X != nil {
		n.X = *f.X
	}
	if f.Y != nil {
		n.Y = *f.Y
	}
	if f.Color != nil {
		n.Color = *f.Color
	}
	if f.Content != nil {
		n.Content = *f.Content
	}
}

func eventID(ev domain.ChangeEvent) (string, error) {
	raw := ev.Old
	if len(raw) == 0 {
		raw = ev.New
	}
	var row struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &row); err != nil {
		return "", fmt.Errorf("decode delete event: %w", err)
	}
	return row.ID, nil
}
