package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stickfinity/server/domain"
)

func ptr[T any](v T) *T { return &v }

func TestBuildNoteUpdate(t *testing.T) {
	tests := []struct {
		name      string
		patch     NotePatch
		wantQuery string
		wantArgs  int
	}{
		{
			name:      "position only",
			patch:     NotePatch{X: ptr(10.5), Y: ptr(-3.0)},
			wantQuery: "UPDATE notes SET x = $1, y = $2, updated_at = now() WHERE id = $3",
			wantArgs:  3,
		},
		{
			name:      "color only",
			patch:     NotePatch{Color: ptr(domain.ColorPink)},
			wantQuery: "UPDATE notes SET color = $1, updated_at = now() WHERE id = $2",
			wantArgs:  2,
		},
		{
			name:      "content only",
			patch:     NotePatch{Content: ptr(domain.TextContent("hi"))},
			wantQuery: "UPDATE notes SET content = $1, updated_at = now() WHERE id = $2",
			wantArgs:  2,
		},
		{
			name: "everything",
			patch: NotePatch{
				X:       ptr(1.0),
				Y:       ptr(2.0),
				Color:   ptr(domain.ColorBlue),
				Content: ptr(domain.ImageContent("/uploads/a.png")),
			},
			wantQuery: "UPDATE notes SET x = $1, y = $2, color = $3, content = $4, updated_at = now() WHERE id = $5",
			wantArgs:  5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := buildNoteUpdate("note-1", tt.patch)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuery, query)
			require.Len(t, args, tt.wantArgs)
			assert.Equal(t, "note-1", args[len(args)-1])
		})
	}
}

func TestBuildNoteUpdateEncodesContent(t *testing.T) {
	_, args, err := buildNoteUpdate("n", NotePatch{Content: ptr(domain.TextContent("hello"))})
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.JSONEq(t, `{"text": "hello"}`, string(args[0].([]byte)))
}

func TestNotePatchEmpty(t *testing.T) {
	assert.True(t, NotePatch{}.Empty())
	assert.False(t, NotePatch{X: ptr(0.0)}.Empty())
	assert.False(t, NotePatch{Content: ptr(domain.TextContent(""))}.Empty())
}
