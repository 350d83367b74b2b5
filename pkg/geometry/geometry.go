// Package geometry converts between screen coordinates and canvas coordinates.
//
// The canvas content layer is translated by the viewport pan, and the whole
// canvas sits to the right of a fixed external region (the sidebar). A screen
// point therefore maps to canvas space as screen - offset - pan. The same
// formula serves mouse and single-touch input.
package geometry

import "github.com/aretw0/intheflow/pkg/domain"

// DefaultSidebarWidth is the horizontal space consumed by the tool sidebar.
const DefaultSidebarWidth = 256

// DefaultOffset is the external offset of the canvas when the sidebar is shown.
var DefaultOffset = domain.Point{X: DefaultSidebarWidth, Y: 0}

// ToCanvas converts a screen point into canvas coordinates.
func ToCanvas(screen, pan, offset domain.Point) domain.Point {
	return screen.Sub(offset).Sub(pan)
}

// ToScreen is the inverse of ToCanvas.
func ToScreen(canvas, pan, offset domain.Point) domain.Point {
	return canvas.Add(offset).Add(pan)
}

// PanFrom computes the pan during a gesture: the pan at gesture start moved by
// the pointer's displacement since then.
func PanFrom(panAtStart, pointerAtStart, current domain.Point) domain.Point {
	return panAtStart.Add(current.Sub(pointerAtStart))
}

// Centroid returns the mean of the given points. It returns the zero point for
// an empty slice.
func Centroid(points ...domain.Point) domain.Point {
	if len(points) == 0 {
		return domain.Point{}
	}
	var sum domain.Point
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(points)))
}

// Viewport is the ephemeral pan state of a canvas plus its fixed external offset.
// It never participates in undo history.
type Viewport struct {
	Pan    domain.Point `json:"pan"`
	Offset domain.Point `json:"offset"`
}

// NewViewport creates a viewport at the origin with the given external offset.
func NewViewport(offset domain.Point) Viewport {
	return Viewport{Offset: offset}
}

// ToCanvas converts a screen point using this viewport.
func (v Viewport) ToCanvas(screen domain.Point) domain.Point {
	return ToCanvas(screen, v.Pan, v.Offset)
}

// ToScreen converts a canvas point using this viewport.
func (v Viewport) ToScreen(canvas domain.Point) domain.Point {
	return ToScreen(canvas, v.Pan, v.Offset)
}

// WithPan returns a copy of the viewport with a new pan.
func (v Viewport) WithPan(pan domain.Point) Viewport {
	v.Pan = pan
	return v
}

// ConnectionPath returns the SVG cubic Bezier path of an edge drawn from a
// source handle to a target point, with horizontal control offsets of 50 units.
func ConnectionPath(from, to domain.Point) string {
	return bezier(from, to)
}
