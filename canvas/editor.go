package canvas

import (
	"context"
	"sync"
	"time"

	"github.com/stickfinity/server/domain"
)

// saveDelay is how long typing must pause before an edit is persisted.
const saveDelay = 500 * time.Millisecond

// ContentSaver debounces text edits for one note: every keystroke resets the
// timer and only the last pending save fires. The in-memory note is not
// touched until the save fires, so remote echoes during typing cannot
// clobber the editor.
type ContentSaver struct {
	mu      sync.Mutex
	board   *BoardState
	noteID  string
	delay   time.Duration
	timer   *time.Timer
	pending string
	dirty   bool
}

// NewContentSaver starts an edit session for a note.
func NewContentSaver(board *BoardState, noteID string) *ContentSaver {
	return &ContentSaver{board: board, noteID: noteID, delay: saveDelay}
}

// Input records a keystroke's resulting text and re-arms the timer.
func (s *ContentSaver) Input(ctx context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = text
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.save(ctx) })
}

// Flush persists any pending edit immediately, used when the editor blurs.
func (s *ContentSaver) Flush(ctx context.Context) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.save(ctx)
}

func (s *ContentSaver) save(ctx context.Context) {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	text := s.pending
	s.dirty = false
	s.mu.Unlock()

	note, ok := s.board.Note(s.noteID)
	if !ok || (note.Content.Kind == domain.ContentText && note.Content.Text == text) {
		return
	}
	content := domain.TextContent(text)
	s.board.UpdateNote(ctx, s.noteID, NoteFields{Content: &content})
}
