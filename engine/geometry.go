package engine

import "math"

// Point is a position in page space.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in page space. Character boxes and
// selection rectangles both use it.
type Rect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Normalize returns r with Left <= Right and Bottom <= Top.
func (r Rect) Normalize() Rect {
	if r.Left > r.Right {
		r.Left, r.Right = r.Right, r.Left
	}
	if r.Bottom > r.Top {
		r.Bottom, r.Top = r.Top, r.Bottom
	}
	return r
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 {
	return math.Abs(r.Right - r.Left)
}

// Height returns the vertical extent.
func (r Rect) Height() float64 {
	return math.Abs(r.Top - r.Bottom)
}

// Center returns the center point.
func (r Rect) Center() Point {
	return Point{X: (r.Left + r.Right) / 2, Y: (r.Top + r.Bottom) / 2}
}

// IsEmpty reports whether r has zero area.
func (r Rect) IsEmpty() bool {
	return r.Width() == 0 || r.Height() == 0
}

// IsZero reports whether every edge of r is zero.
func (r Rect) IsZero() bool {
	return r == Rect{}
}

// Contains reports whether p lies inside r or on its edge.
func (r Rect) Contains(p Point) bool {
	n := r.Normalize()
	return p.X >= n.Left && p.X <= n.Right && p.Y >= n.Bottom && p.Y <= n.Top
}

// Intersects reports whether r and other overlap or touch.
func (r Rect) Intersects(other Rect) bool {
	a, b := r.Normalize(), other.Normalize()
	return !(a.Right < b.Left || a.Left > b.Right || a.Top < b.Bottom || a.Bottom > b.Top)
}

// Union returns the smallest rectangle containing r and other.
func (r Rect) Union(other Rect) Rect {
	a, b := r.Normalize(), other.Normalize()
	return Rect{
		Left:   math.Min(a.Left, b.Left),
		Top:    math.Max(a.Top, b.Top),
		Right:  math.Max(a.Right, b.Right),
		Bottom: math.Min(a.Bottom, b.Bottom),
	}
}

// Expand grows r by dx on the left and right and dy on the top and bottom.
func (r Rect) Expand(dx, dy float64) Rect {
	n := r.Normalize()
	return Rect{Left: n.Left - dx, Top: n.Top + dy, Right: n.Right + dx, Bottom: n.Bottom - dy}
}

// Distance returns the distance from p to the nearest point of r, or 0 if
// r contains p.
func (r Rect) Distance(p Point) float64 {
	n := r.Normalize()
	dx := math.Max(0, math.Max(n.Left-p.X, p.X-n.Right))
	dy := math.Max(0, math.Max(n.Bottom-p.Y, p.Y-n.Top))
	return math.Hypot(dx, dy)
}
