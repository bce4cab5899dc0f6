package boxset

import "image"

// Bounds is a half-open axis-aligned rectangle in grid pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// Width returns X2 - X1.
func (b Bounds) Width() int { return b.X2 - b.X1 }

// Height returns Y2 - Y1.
func (b Bounds) Height() int { return b.Y2 - b.Y1 }

// Empty reports whether the rectangle contains no pixels.
func (b Bounds) Empty() bool { return b.X1 >= b.X2 || b.Y1 >= b.Y2 }

// TopLeft returns (X1, Y1).
func (b Bounds) TopLeft() image.Point { return image.Pt(b.X1, b.Y1) }

// Rect converts the bounds to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle { return image.Rect(b.X1, b.Y1, b.X2, b.Y2) }

// Union returns the smallest bounds containing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		X1: min(b.X1, o.X1),
		Y1: min(b.Y1, o.Y1),
		X2: max(b.X2, o.X2),
		Y2: max(b.Y2, o.Y2),
	}
}

// Gap returns the number of empty columns and rows separating b and o.
// Both are zero when the rectangles overlap or share an edge.
func (b Bounds) Gap(o Bounds) (dx, dy int) {
	dx = max(0, max(b.X1, o.X1)-min(b.X2, o.X2))
	dy = max(0, max(b.Y1, o.Y1)-min(b.Y2, o.Y2))
	return dx, dy
}

// Within reports whether o lies within margin pixels of b on both axes.
func (b Bounds) Within(o Bounds, margin int) bool {
	dx, dy := b.Gap(o)
	return dx <= margin && dy <= margin
}
