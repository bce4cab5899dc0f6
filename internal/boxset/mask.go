package boxset

import "fmt"

// Mask is a fixed-size boolean grid with explicit dimensions.
type Mask struct {
	Width  int
	Height int
	cells  []bool
}

// NewMask creates an all-false mask.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{Width: width, Height: height, cells: make([]bool, width*height)}
}

// MaskFromRows builds a mask from equal-length rows.
func MaskFromRows(rows [][]bool) (*Mask, error) {
	if len(rows) == 0 {
		return NewMask(0, 0), nil
	}
	m := NewMask(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != m.Width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrShape, y, len(row), m.Width)
		}
		copy(m.cells[y*m.Width:], row)
	}
	return m, nil
}

// At reports whether (x, y) is set. Positions outside the mask are false.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.cells[y*m.Width+x]
}

// Set stores v at (x, y). Positions outside the mask are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.cells[y*m.Width+x] = v
}

// Count returns the number of set cells.
func (m *Mask) Count() int {
	n := 0
	for _, c := range m.cells {
		if c {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (m *Mask) Clone() *Mask {
	c := &Mask{Width: m.Width, Height: m.Height, cells: make([]bool, len(m.cells))}
	copy(c.cells, m.cells)
	return c
}

// Equal reports whether both masks have the same shape and cells.
func (m *Mask) Equal(o *Mask) bool {
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	for i, c := range m.cells {
		if c != o.cells[i] {
			return false
		}
	}
	return true
}

// Sub copies the w×h region starting at (x, y). Cells outside m read false.
func (m *Mask) Sub(x, y, w, h int) *Mask {
	s := NewMask(w, h)
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			s.cells[dy*w+dx] = m.At(x+dx, y+dy)
		}
	}
	return s
}

// extent returns the tight box of set cells, or ok=false when none are set.
func (m *Mask) extent() (x1, y1, x2, y2 int, ok bool) {
	x1, y1 = m.Width, m.Height
	for y := 0; y < m.Height; y++ {
		row := m.cells[y*m.Width : (y+1)*m.Width]
		for x, c := range row {
			if !c {
				continue
			}
			x1, y1 = min(x1, x), min(y1, y)
			x2, y2 = max(x2, x+1), max(y2, y+1)
			ok = true
		}
	}
	return x1, y1, x2, y2, ok
}

// check verifies the cell buffer matches the declared dimensions.
func (m *Mask) check() error {
	if m.Width < 0 || m.Height < 0 || len(m.cells) != m.Width*m.Height {
		return fmt.Errorf("%w: %dx%d mask with %d cells", ErrShape, m.Width, m.Height, len(m.cells))
	}
	return nil
}
