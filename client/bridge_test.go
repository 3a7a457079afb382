package client

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stickfinity/server/canvas"
	"github.com/stickfinity/server/domain"
)

type nopPersister struct{}

func (nopPersister) InsertNote(context.Context, *domain.Note) error              { return nil }
func (nopPersister) UpdateNote(context.Context, string, canvas.NoteFields) error { return nil }
func (nopPersister) DeleteNote(context.Context, string) error                    { return nil }
func (nopPersister) InsertConnection(context.Context, *domain.Connection) error  { return nil }

type nopBroadcaster struct{}

func (nopBroadcaster) Track(domain.CursorState) error { return nil }

func TestDispatchChangeEvent(t *testing.T) {
	state := canvas.NewBoardState("b1", nil, nil, nopPersister{}, zerolog.Nop(), nil)

	raw, err := json.Marshal(domain.Note{ID: "n1", BoardID: "b1", X: 7})
	require.NoError(t, err)
	msg := domain.Message{
		Type:   domain.MessageChange,
		Change: &domain.ChangeEvent{Type: domain.EventInsert, Table: domain.TableNotes, New: raw},
	}

	dispatch(msg, state, nil, zerolog.Nop())
	dispatch(msg, state, nil, zerolog.Nop()) // redelivery is harmless

	notes := state.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, 7.0, notes[0].X)
}

func TestDispatchPresenceSync(t *testing.T) {
	tracker := canvas.NewCursorTracker("me", "Me", nopBroadcaster{}, zerolog.Nop())

	dispatch(domain.Message{
		Type: domain.MessagePresenceSync,
		Presence: map[string][]domain.CursorState{
			"c1": {{UserID: "alice", X: 3}},
			"c2": {{UserID: "me", X: 9}},
		},
	}, nil, tracker, zerolog.Nop())

	cursors := tracker.Cursors()
	require.Len(t, cursors, 1)
	assert.Equal(t, "alice", cursors[0].UserID)
}

func TestDispatchToleratesMalformedMessages(t *testing.T) {
	state := canvas.NewBoardState("b1", nil, nil, nopPersister{}, zerolog.Nop(), nil)

	// Nothing here may panic or reach the store.
	dispatch(domain.Message{Type: domain.MessageChange}, state, nil, zerolog.Nop())
	dispatch(domain.Message{Type: "mystery"}, state, nil, zerolog.Nop())
	dispatch(domain.Message{
		Type:   domain.MessageChange,
		Change: &domain.ChangeEvent{Type: domain.EventInsert, Table: domain.TableNotes, New: []byte("{")},
	}, state, nil, zerolog.Nop())

	assert.Empty(t, state.Notes())
}
