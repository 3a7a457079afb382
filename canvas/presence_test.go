package canvas

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stickfinity/server/domain"
)

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []domain.CursorState
}

func (f *fakeBroadcaster) Track(cur domain.CursorState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cur)
	return nil
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestTrackThrottles(t *testing.T) {
	bcast := &fakeBroadcaster{}
	tracker := NewCursorTracker("me", "Me", bcast, zerolog.Nop())

	now := time.Unix(1000, 0)
	tracker.now = func() time.Time { return now }

	tracker.Track(Point{X: 1, Y: 1})
	require.Equal(t, 1, bcast.count())

	// 29ms later: suppressed.
	now = now.Add(29 * time.Millisecond)
	tracker.Track(Point{X: 2, Y: 2})
	assert.Equal(t, 1, bcast.count())

	// 30ms after the first send: goes out.
	now = now.Add(time.Millisecond)
	tracker.Track(Point{X: 3, Y: 3})
	require.Equal(t, 2, bcast.count())
	assert.Equal(t, 3.0, bcast.sent[1].X)
}

func TestOnSyncExcludesSelf(t *testing.T) {
	tracker := NewCursorTracker("me", "Me", &fakeBroadcaster{}, zerolog.Nop())

	tracker.OnSync(map[string][]domain.CursorState{
		"conn-1": {{UserID: "me", X: 1}},
		"conn-2": {{UserID: "alice", X: 2}},
	})

	cursors := tracker.Cursors()
	require.Len(t, cursors, 1)
	assert.Equal(t, "alice", cursors[0].UserID)
}

func TestOnSyncKeepsAnonymousCursors(t *testing.T) {
	// A tracker without an identity must not treat other anonymous
	// participants as itself.
	tracker := NewCursorTracker("", "", &fakeBroadcaster{}, zerolog.Nop())

	tracker.OnSync(map[string][]domain.CursorState{
		"conn-1": {{UserID: "", X: 1}},
		"conn-2": {{UserID: "alice", X: 2}},
	})

	assert.Len(t, tracker.Cursors(), 2)
}

func TestOnSyncIsSnapshotNotDiff(t *testing.T) {
	tracker := NewCursorTracker("me", "Me", &fakeBroadcaster{}, zerolog.Nop())

	tracker.OnSync(map[string][]domain.CursorState{
		"conn-1": {{UserID: "alice"}},
		"conn-2": {{UserID: "bob"}},
	})
	require.Len(t, tracker.Cursors(), 2)

	// Bob left: the next snapshot no longer carries his connection.
	tracker.OnSync(map[string][]domain.CursorState{
		"conn-1": {{UserID: "alice"}},
	})
	cursors := tracker.Cursors()
	require.Len(t, cursors, 1)
	assert.Equal(t, "alice", cursors[0].UserID)

	// Disconnect: everything goes.
	tracker.OnSync(nil)
	assert.Empty(t, tracker.Cursors())
}

func TestTrackCarriesStableColor(t *testing.T) {
	bcast := &fakeBroadcaster{}
	tracker := NewCursorTracker("me", "Me", bcast, zerolog.Nop())
	now := time.Unix(1000, 0)
	tracker.now = func() time.Time { return now }

	tracker.Track(Point{})
	now = now.Add(time.Second)
	tracker.Track(Point{})

	require.Equal(t, 2, bcast.count())
	assert.NotEmpty(t, bcast.sent[0].Color)
	assert.Equal(t, bcast.sent[0].Color, bcast.sent[1].Color)
	assert.Equal(t, tracker.Color(), bcast.sent[0].Color)
}
