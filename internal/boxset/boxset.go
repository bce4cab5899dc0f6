package boxset

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrShape is returned when a mask does not match its bounds, or when the
	// bounds are not the tight box of the mask's set cells.
	ErrShape = errors.New("mask shape mismatch")

	// ErrEmptyRegion is returned when a region has no member pixels.
	ErrEmptyRegion = errors.New("region has no member pixels")

	// ErrUntraceableBoundary is returned when a mask boundary is not a single
	// closed loop.
	ErrUntraceableBoundary = errors.New("boundary is not a single closed polygon")
)

// BoxSet is a detected region: a bounding box, a membership mask local to the
// box, and an identity.
//
// The zero value is not usable; construct with New or FromPixels.
type BoxSet struct {
	id     int
	bounds Bounds
	mask   *Mask
}

// New creates a BoxSet from bounds and a mask local to them.
//
// The mask must be exactly bounds.Width()×bounds.Height(), contain at least
// one set cell, and touch every edge of the bounds. The mask is copied.
func New(id int, bounds Bounds, mask *Mask) (*BoxSet, error) {
	if mask == nil || bounds.Empty() {
		return nil, fmt.Errorf("%w: empty bounds (%d,%d)-(%d,%d)", ErrShape, bounds.X1, bounds.Y1, bounds.X2, bounds.Y2)
	}
	if err := mask.check(); err != nil {
		return nil, err
	}
	if mask.Width != bounds.Width() || mask.Height != bounds.Height() {
		return nil, fmt.Errorf("%w: mask %dx%d, bounds %dx%d", ErrShape, mask.Width, mask.Height, bounds.Width(), bounds.Height())
	}
	x1, y1, x2, y2, ok := mask.extent()
	if !ok {
		return nil, fmt.Errorf("box %d: %w", id, ErrEmptyRegion)
	}
	if x1 != 0 || y1 != 0 || x2 != mask.Width || y2 != mask.Height {
		return nil, fmt.Errorf("%w: bounds are not tight, set cells span (%d,%d)-(%d,%d)", ErrShape, x1, y1, x2, y2)
	}
	return &BoxSet{id: id, bounds: bounds, mask: mask.Clone()}, nil
}

// FromPixels builds a BoxSet with tight bounds around the given absolute
// pixel coordinates. Duplicate points are allowed.
func FromPixels(id int, pixels []image.Point) (*BoxSet, error) {
	if len(pixels) == 0 {
		return nil, fmt.Errorf("box %d: %w", id, ErrEmptyRegion)
	}

	b := Bounds{X1: pixels[0].X, Y1: pixels[0].Y, X2: pixels[0].X + 1, Y2: pixels[0].Y + 1}
	for _, p := range pixels[1:] {
		b = b.Union(Bounds{X1: p.X, Y1: p.Y, X2: p.X + 1, Y2: p.Y + 1})
	}

	m := NewMask(b.Width(), b.Height())
	for _, p := range pixels {
		m.cells[(p.Y-b.Y1)*m.Width+(p.X-b.X1)] = true
	}
	return &BoxSet{id: id, bounds: b, mask: m}, nil
}

// ID returns the region identity.
func (b *BoxSet) ID() int { return b.id }

// Bounds returns the tight bounding box.
func (b *BoxSet) Bounds() Bounds { return b.bounds }

// Mask returns a copy of the local membership mask.
func (b *BoxSet) Mask() *Mask { return b.mask.Clone() }

// Size returns the number of member pixels.
func (b *BoxSet) Size() int { return b.mask.Count() }

// Pixels calls fn with the absolute coordinates of every member pixel in
// row-major order.
func (b *BoxSet) Pixels(fn func(x, y int)) {
	for y := 0; y < b.mask.Height; y++ {
		for x := 0; x < b.mask.Width; x++ {
			if b.mask.cells[y*b.mask.Width+x] {
				fn(b.bounds.X1+x, b.bounds.Y1+y)
			}
		}
	}
}

// Window sets target cells wherever this region has a member pixel.
//
// Member pixel (x, y) lands on target cell (x - origin.X, y - origin.Y).
// Use the zero origin to rasterise into a grid-sized buffer, or
// Bounds().TopLeft() to reproduce the local mask. Cells that fall outside the
// target are clipped. The BoxSet itself is not modified.
func (b *BoxSet) Window(target *Mask, origin image.Point) error {
	if target == nil {
		return fmt.Errorf("%w: nil target", ErrShape)
	}
	if err := target.check(); err != nil {
		return err
	}

	offX := b.bounds.X1 - origin.X
	offY := b.bounds.Y1 - origin.Y
	for y := 0; y < b.mask.Height; y++ {
		ty := y + offY
		if ty < 0 || ty >= target.Height {
			continue
		}
		for x := 0; x < b.mask.Width; x++ {
			tx := x + offX
			if tx < 0 || tx >= target.Width {
				continue
			}
			if b.mask.cells[y*b.mask.Width+x] {
				target.cells[ty*target.Width+tx] = true
			}
		}
	}
	return nil
}

// Center returns the unweighted centroid of member pixels in absolute grid
// coordinates.
func (b *BoxSet) Center() (x, y float64, err error) {
	var sx, sy, n int
	b.Pixels(func(px, py int) {
		sx += px
		sy += py
		n++
	})
	if n == 0 {
		return 0, 0, fmt.Errorf("box %d: %w", b.id, ErrEmptyRegion)
	}
	return float64(sx) / float64(n), float64(sy) / float64(n), nil
}

// Merge returns a new BoxSet covering both regions.
//
// The bounds are the union of both bounds, the mask is the logical OR of both
// masks and the ID is the lower of the two. Neither operand is modified.
//
// Merge panics with an ErrShape error if either operand's mask does not
// match its bounds. New and FromPixels never produce such a BoxSet.
func (b *BoxSet) Merge(other *BoxSet) *BoxSet {
	for _, op := range []*BoxSet{b, other} {
		if err := op.checkShape(); err != nil {
			panic(fmt.Errorf("merge box %d: %w", op.id, err))
		}
	}

	u := b.bounds.Union(other.bounds)
	m := NewMask(u.Width(), u.Height())
	origin := u.TopLeft()
	for _, op := range []*BoxSet{b, other} {
		if err := op.Window(m, origin); err != nil {
			panic(fmt.Errorf("merge box %d: %w", op.id, err))
		}
	}
	return &BoxSet{id: min(b.id, other.id), bounds: u, mask: m}
}

// checkShape verifies the mask buffer and that it matches the bounds.
func (b *BoxSet) checkShape() error {
	if b.mask == nil {
		return fmt.Errorf("%w: nil mask", ErrShape)
	}
	if err := b.mask.check(); err != nil {
		return err
	}
	if b.mask.Width != b.bounds.Width() || b.mask.Height != b.bounds.Height() {
		return fmt.Errorf("%w: mask %dx%d, bounds %dx%d",
			ErrShape, b.mask.Width, b.mask.Height, b.bounds.Width(), b.bounds.Height())
	}
	return nil
}

func (b *BoxSet) String() string {
	return fmt.Sprintf("BoxSet(%d: (%d,%d)-(%d,%d), %d px)",
		b.id, b.bounds.X1, b.bounds.Y1, b.bounds.X2, b.bounds.Y2, b.Size())
}
