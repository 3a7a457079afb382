package canvas

import "github.com/stickfinity/server/domain"

// Minimap geometry. The map is a fixed square; board bounds get generous
// padding so there is always somewhere to navigate to.
const (
	MinimapSize    = 150.0
	minimapPadding = 2000.0
)

// Bounds is an axis-aligned rectangle in canvas space.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

func (b Bounds) Width() float64  { return b.MaxX - b.MinX }
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// MinimapLayout computes the padded bounds of all notes and the canvas-to-map
// scale that fits them in the map square, preserving aspect ratio.
func MinimapLayout(notes []domain.Note) (Bounds, float64) {
	b := Bounds{MinX: -500, MinY: -500, MaxX: 500, MaxY: 500}
	if len(notes) > 0 {
		b = Bounds{MinX: notes[0].X, MinY: notes[0].Y, MaxX: notes[0].X, MaxY: notes[0].Y}
		for _, n := range notes {
			b.MinX = min(b.MinX, n.X)
			b.MinY = min(b.MinY, n.Y)
			b.MaxX = max(b.MaxX, n.X+domain.NoteSize)
			b.MaxY = max(b.MaxY, n.Y+domain.NoteSize)
		}
	}
	b.MinX -= minimapPadding
	b.MinY -= minimapPadding
	b.MaxX += minimapPadding
	b.MaxY += minimapPadding

	scale := min(MinimapSize/b.Width(), MinimapSize/b.Height())
	return b, scale
}

// ToMap projects a canvas point into minimap pixels.
func (b Bounds) ToMap(p Point, scale float64) Point {
	return Point{X: (p.X - b.MinX) * scale, Y: (p.Y - b.MinY) * scale}
}

// ViewportRect returns the visible canvas rectangle for a viewport of the
// given screen size under the transform, by inverting the projection.
func ViewportRect(t Transform, viewportW, viewportH float64) Bounds {
	minX := -t.X / t.Scale
	minY := -t.Y / t.Scale
	return Bounds{
		MinX: minX,
		MinY: minY,
		MaxX: minX + viewportW/t.Scale,
		MaxY: minY + viewportH/t.Scale,
	}
}

// MinimapNavigate converts a click at map pixel coordinates into the pan
// offset that centers the viewport on the clicked canvas point.
func MinimapNavigate(click Point, b Bounds, mapScale float64, t Transform, viewportW, viewportH float64) (panX, panY float64) {
	targetX := click.X/mapScale + b.MinX
	targetY := click.Y/mapScale + b.MinY
	panX = viewportW/2 - targetX*t.Scale
	panY = viewportH/2 - targetY*t.Scale
	return panX, panY
}
