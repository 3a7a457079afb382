package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToCanvasToScreenRoundTrip(t *testing.T) {
	transforms := []Transform{
		NewTransform(),
		{X: 120, Y: -48, Scale: 1},
		{X: -9999.5, Y: 33333, Scale: 0.1},
		{X: 0.25, Y: 0.75, Scale: 5},
		{X: 17, Y: 19, Scale: 2.5},
	}
	points := []Point{
		{X: 0, Y: 0},
		{X: 400, Y: 300},
		{X: -1e6, Y: 1e6},
		{X: 0.001, Y: -0.001},
	}

	for _, tr := range transforms {
		for _, p := range points {
			got := tr.ToScreen(tr.ToCanvas(p))
			assert.InDelta(t, p.X, got.X, 1e-9)
			assert.InDelta(t, p.Y, got.Y, 1e-9)
		}
	}
}

func TestToCanvas(t *testing.T) {
	tr := Transform{X: 100, Y: 50, Scale: 2}
	got := tr.ToCanvas(Point{X: 300, Y: 250})
	assert.Equal(t, Point{X: 100, Y: 100}, got)
}

func TestZoomClamping(t *testing.T) {
	tr := NewTransform()

	// Arbitrarily large wheel deltas never drive scale out of range.
	for i := 0; i < 50; i++ {
		tr = tr.Zoom(1e9)
	}
	assert.Equal(t, MinScale, tr.Scale)

	for i := 0; i < 50; i++ {
		tr = tr.Zoom(-1e9)
	}
	assert.Equal(t, MaxScale, tr.Scale)

	tr = NewTransform()
	tr = tr.Zoom(100) // scale 1 - 0.1
	assert.InDelta(t, 0.9, tr.Scale, 1e-9)
}

func TestPanIsScreenSpace(t *testing.T) {
	tr := Transform{X: 0, Y: 0, Scale: 0.5}
	tr = tr.Pan(10, -20)
	// Pan is a direct screen translation, untouched by scale.
	assert.Equal(t, 10.0, tr.X)
	assert.Equal(t, -20.0, tr.Y)
	assert.Equal(t, 0.5, tr.Scale)
}
