// Package canvas is the client-side collaborative canvas engine: the shared
// board state, the live cursor map, the pointer gesture state machine and the
// math that maps between screen pixels and the unbounded canvas plane.
package canvas

// Point is a position in either screen or canvas space; the transform decides
// which.
type Point struct {
	X float64
	Y float64
}

// Scale bounds for the view transform. Construction and Zoom keep Scale
// inside this range, so ToCanvas never divides by zero.
const (
	MinScale = 0.1
	MaxScale = 5.0

	zoomSensitivity = 0.001
)

// Transform is the view state: a pan offset in screen pixels and a zoom
// scale. It is owned by the gesture controller and read by everything else
// for projection.
type Transform struct {
	X     float64
	Y     float64
	Scale float64
}

// NewTransform returns the identity view: no pan, scale 1.
func NewTransform() Transform {
	return Transform{Scale: 1}
}

// ToCanvas maps a screen-space point into canvas space.
func (t Transform) ToCanvas(p Point) Point {
	return Point{
		X: (p.X - t.X) / t.Scale,
		Y: (p.Y - t.Y) / t.Scale,
	}
}

// ToScreen is the inverse of ToCanvas.
func (t Transform) ToScreen(p Point) Point {
	return Point{
		X: p.X*t.Scale + t.X,
		Y: p.Y*t.Scale + t.Y,
	}
}

// Pan translates the view by a screen-pixel delta. Panning is a direct
// screen-space translation, not scale-compensated.
func (t Transform) Pan(dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return t
}

// Zoom applies a wheel delta to the scale, clamped to [MinScale, MaxScale].
func (t Transform) Zoom(deltaY float64) Transform {
	t.Scale = clampScale(t.Scale - deltaY*zoomSensitivity)
	return t
}

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
