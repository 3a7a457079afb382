package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stickfinity/server/domain"
)

func TestMinimapLayoutEmptyBoard(t *testing.T) {
	b, scale := MinimapLayout(nil)

	assert.Equal(t, -2500.0, b.MinX)
	assert.Equal(t, 2500.0, b.MaxX)
	assert.Equal(t, MinimapSize/b.Width(), scale)
}

func TestMinimapLayoutFitsNotes(t *testing.T) {
	notes := []domain.Note{
		{X: -1000, Y: 0},
		{X: 3000, Y: 500},
	}
	b, scale := MinimapLayout(notes)

	assert.Equal(t, -3000.0, b.MinX)
	assert.Equal(t, 3000.0+domain.NoteSize+minimapPadding, b.MaxX)

	// Aspect-fit: the wider axis sets the scale.
	require.Greater(t, b.Width(), b.Height())
	assert.Equal(t, MinimapSize/b.Width(), scale)

	// Every note projects inside the map square.
	for _, n := range notes {
		p := b.ToMap(Point{X: n.X, Y: n.Y}, scale)
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.LessOrEqual(t, p.X, MinimapSize)
	}
}

func TestViewportRect(t *testing.T) {
	tr := Transform{X: -200, Y: 100, Scale: 2}
	r := ViewportRect(tr, 800, 600)

	assert.Equal(t, 100.0, r.MinX)
	assert.Equal(t, -50.0, r.MinY)
	assert.Equal(t, 400.0, r.Width())
	assert.Equal(t, 300.0, r.Height())
}

func TestMinimapNavigateCentersTarget(t *testing.T) {
	notes := []domain.Note{{X: 0, Y: 0}}
	b, scale := MinimapLayout(notes)
	tr := NewTransform()

	// Click the map pixel corresponding to canvas (0, 0).
	click := b.ToMap(Point{X: 0, Y: 0}, scale)
	panX, panY := MinimapNavigate(click, b, scale, tr, 800, 600)

	// With that pan applied, canvas (0, 0) lands on the viewport center.
	moved := Transform{X: panX, Y: panY, Scale: tr.Scale}
	center := moved.ToScreen(Point{X: 0, Y: 0})
	assert.InDelta(t, 400.0, center.X, 1e-9)
	assert.InDelta(t, 300.0, center.Y, 1e-9)
}
