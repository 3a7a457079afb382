package canvas

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stickfinity/server/domain"
)

// trackInterval bounds presence chatter during continuous pointer movement.
const trackInterval = 30 * time.Millisecond

// cursorColors is the pool a participant's display color is drawn from; the
// pick is random but stable for the session.
var cursorColors = []string{
	"#f59e0b", "#ec4899", "#22d3ee", "#a3e635", "#a855f7", "#f97316", "#34d399",
}

// Broadcaster sends the local participant's cursor state to the board's
// presence channel.
type Broadcaster interface {
	Track(cur domain.CursorState) error
}

// CursorTracker mirrors the live set of remote cursors. Its state is fully
// reconstructable from the channel and is discarded on disconnect; liveness
// is inferred purely from channel membership.
type CursorTracker struct {
	mu      sync.Mutex
	selfID  string
	name    string
	color   string
	cursors map[string]domain.CursorState // keyed by connection id

	bcast    Broadcaster
	lastSent time.Time
	now      func() time.Time

	log zerolog.Logger
}

// NewCursorTracker builds a tracker for the local participant. selfID is the
// participant id used to filter the local user's own sessions out of syncs.
func NewCursorTracker(selfID, name string, bcast Broadcaster, log zerolog.Logger) *CursorTracker {
	return &CursorTracker{
		selfID:  selfID,
		name:    name,
		color:   cursorColors[rand.Intn(len(cursorColors))],
		cursors: make(map[string]domain.CursorState),
		bcast:   bcast,
		now:     time.Now,
		log:     log,
	}
}

// OnSync rebuilds the full cursor map from a membership snapshot. The
// snapshot is authoritative, not a diff: cursors absent from it are gone.
func (t *CursorTracker) OnSync(snapshot map[string][]domain.CursorState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursors = make(map[string]domain.CursorState, len(snapshot))
	for connID, states := range snapshot {
		for _, cur := range states {
			if t.selfID != "" && cur.UserID == t.selfID {
				continue
			}
			t.cursors[connID] = cur
		}
	}
}

// Track broadcasts the local cursor's canvas-space position, throttled to at
// most one send per 30ms of wall clock.
func (t *CursorTracker) Track(pos Point) {
	t.mu.Lock()
	now := t.now()
	if now.Sub(t.lastSent) < trackInterval {
		t.mu.Unlock()
		return
	}
	t.lastSent = now
	cur := domain.CursorState{
		UserID: t.selfID,
		Name:   t.name,
		Color:  t.color,
		X:      pos.X,
		Y:      pos.Y,
	}
	t.mu.Unlock()

	if err := t.bcast.Track(cur); err != nil {
		t.log.Debug().Err(err).Msg("cursor track dropped")
	}
}

// Cursors returns the remote cursors for rendering.
func (t *CursorTracker) Cursors() []domain.CursorState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.CursorState, 0, len(t.cursors))
	for _, cur := range t.cursors {
		out = append(out, cur)
	}
	return out
}

// Color is the local participant's display color for this session.
func (t *CursorTracker) Color() string { return t.color }
