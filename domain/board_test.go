package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string // prefix before the random suffix
	}{
		{name: "plain", in: "My Board", want: "my-board-"},
		{name: "punctuation collapses", in: "Q3 -- Planning!!", want: "q3-planning-"},
		{name: "trailing junk trimmed", in: "ideas???", want: "ideas-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slugify(tt.in)
			assert.True(t, strings.HasPrefix(got, tt.want), "got %q", got)
			assert.Len(t, got, len(tt.want)+5)
		})
	}

	t.Run("empty name still yields a slug", func(t *testing.T) {
		require.Len(t, Slugify(""), 5)
	})

	t.Run("suffix varies", func(t *testing.T) {
		assert.NotEqual(t, Slugify("same"), Slugify("same"))
	})
}

func TestColorValid(t *testing.T) {
	for _, c := range Palette {
		assert.True(t, c.Valid())
	}
	assert.False(t, Color("magenta").Valid())
	assert.False(t, Color("").Valid())
}

func TestNoteCenter(t *testing.T) {
	n := Note{X: 300, Y: 200}
	x, y := n.Center()
	assert.Equal(t, 400.0, x)
	assert.Equal(t, 300.0, y)
}
