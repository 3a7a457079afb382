package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stickfinity/server/domain"
)

type fakePersister struct {
	mu          sync.Mutex
	inserted    []string
	updated     []string
	deleted     []string
	connections []string
	err         error
}

func (f *fakePersister) InsertNote(_ context.Context, n *domain.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, n.ID)
	return f.err
}

func (f *fakePersister) UpdateNote(_ context.Context, id string, _ NoteFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, id)
	return f.err
}

func (f *fakePersister) DeleteNote(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakePersister) InsertConnection(_ context.Context, c *domain.Connection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connections = append(f.connections, c.ID)
	return f.err
}

func (f *fakePersister) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

func newTestState(persist Persister, onError func(string), notes ...*domain.Note) *BoardState {
	return NewBoardState("board-1", notes, nil, persist, zerolog.Nop(), onError)
}

func noteEvent(evType domain.EventType, n domain.Note) domain.ChangeEvent {
	raw, _ := json.Marshal(n)
	ev := domain.ChangeEvent{Type: evType, Table: domain.TableNotes}
	if evType == domain.EventDelete {
		ev.Old = raw
	} else {
		ev.New = raw
	}
	return ev
}

func TestApplyRemoteInsertIsIdempotent(t *testing.T) {
	s := newTestState(&fakePersister{}, nil)
	ev := noteEvent(domain.EventInsert, domain.Note{ID: "a", X: 1, Y: 2})

	require.NoError(t, s.ApplyRemote(ev))
	require.NoError(t, s.ApplyRemote(ev))

	assert.Len(t, s.Notes(), 1)
}

func TestRemoteInsertLosesToOptimisticLocal(t *testing.T) {
	persist := &fakePersister{}
	s := newTestState(persist, nil)

	s.CreateNote(context.Background(), &domain.Note{ID: "a", X: 10})
	// The server's echo of our own insert races in behind the optimistic
	// entry and must not duplicate it.
	require.NoError(t, s.ApplyRemote(noteEvent(domain.EventInsert, domain.Note{ID: "a", X: 10})))

	assert.Len(t, s.Notes(), 1)
	require.Eventually(t, func() bool { return persist.insertCount() == 1 },
		time.Second, time.Millisecond)
}

func TestOptimisticThenConfirmConverges(t *testing.T) {
	s := newTestState(&fakePersister{}, nil,
		&domain.Note{ID: "a", BoardID: "board-1"})

	x, y := 10.0, 20.0
	s.UpdateNote(context.Background(), "a", NoteFields{X: &x, Y: &y})

	// The echo carries the same values; re-applying them is a no-op.
	require.NoError(t, s.ApplyRemote(noteEvent(domain.EventUpdate,
		domain.Note{ID: "a", BoardID: "board-1", X: 10, Y: 20})))

	notes := s.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, 10.0, notes[0].X)
	assert.Equal(t, 20.0, notes[0].Y)
}

func TestOutOfOrderRemoteDelete(t *testing.T) {
	s := newTestState(&fakePersister{}, nil, &domain.Note{ID: "a"})

	// Delete arrives before a local update of the now-moot note is issued.
	require.NoError(t, s.ApplyRemote(noteEvent(domain.EventDelete, domain.Note{ID: "a"})))
	x := 5.0
	s.UpdateNote(context.Background(), "a", NoteFields{X: &x})

	assert.Empty(t, s.Notes())

	// A straggling remote update for the deleted id is dropped silently.
	require.NoError(t, s.ApplyRemote(noteEvent(domain.EventUpdate, domain.Note{ID: "a", X: 5})))
	assert.Empty(t, s.Notes())
}

func TestCreateNoteSurvivesPersistFailure(t *testing.T) {
	var mu sync.Mutex
	var messages []string
	persist := &fakePersister{err: errors.New("boom")}
	s := newTestState(persist, func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		messages = append(messages, msg)
	})

	s.CreateNote(context.Background(), &domain.Note{ID: "a"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(messages) == 1
	}, time.Second, time.Millisecond)
	// No rollback: the optimistic entry stays.
	assert.Len(t, s.Notes(), 1)
}

func TestCreateConnectionRejectsSelfLoop(t *testing.T) {
	persist := &fakePersister{}
	s := newTestState(persist, nil, &domain.Note{ID: "a"})

	err := s.CreateConnection(context.Background(), &domain.Connection{
		ID: "c1", FromNoteID: "a", ToNoteID: "a",
	})

	assert.ErrorIs(t, err, ErrSelfLoop)
	assert.Empty(t, s.Connections())
}

func TestNoteCenterDanglingReference(t *testing.T) {
	s := newTestState(&fakePersister{}, nil, &domain.Note{ID: "a", X: 100, Y: 200})

	center, ok := s.NoteCenter("a")
	require.True(t, ok)
	assert.Equal(t, Point{X: 200, Y: 300}, center)

	_, ok = s.NoteCenter("gone")
	assert.False(t, ok)
}

func TestRemoteConnectionEvents(t *testing.T) {
	s := newTestState(&fakePersister{}, nil)

	conn := domain.Connection{ID: "c1", BoardID: "board-1", FromNoteID: "a", ToNoteID: "b"}
	raw, err := json.Marshal(conn)
	require.NoError(t, err)

	insert := domain.ChangeEvent{Type: domain.EventInsert, Table: domain.TableConnections, New: raw}
	require.NoError(t, s.ApplyRemote(insert))
	require.NoError(t, s.ApplyRemote(insert))
	assert.Len(t, s.Connections(), 1)

	del := domain.ChangeEvent{Type: domain.EventDelete, Table: domain.TableConnections, Old: raw}
	require.NoError(t, s.ApplyRemote(del))
	assert.Empty(t, s.Connections())
}

func TestNoteAtPicksTopmost(t *testing.T) {
	s := newTestState(&fakePersister{}, nil,
		&domain.Note{ID: "under", X: 0, Y: 0},
		&domain.Note{ID: "over", X: 100, Y: 100},
	)

	assert.Equal(t, "over", s.NoteAt(Point{X: 150, Y: 150}))
	assert.Equal(t, "under", s.NoteAt(Point{X: 50, Y: 50}))
	assert.Equal(t, "", s.NoteAt(Point{X: 5000, Y: 5000}))
}
