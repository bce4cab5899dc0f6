package grid

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Grid is a row-major 2-D array of intensity values.
//
// Non-finite values (NaN, ±Inf) mark invalid pixels. A Grid is treated as
// immutable once handed to the detection pipeline; Set exists for loaders
// and tests that build one up.
type Grid struct {
	Width  int
	Height int
	Data   []float64
}

// New creates a zero-filled grid of the given size.
func New(width, height int) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Grid{
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
	}
}

// FromRows builds a grid from a slice of equal-length rows.
func FromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	width := len(rows[0])
	g := New(width, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d values, want %d", y, len(row), width)
		}
		copy(g.Data[y*width:(y+1)*width], row)
	}
	return g, nil
}

// At returns the value at (x, y). No bounds checking is performed.
func (g *Grid) At(x, y int) float64 {
	return g.Data[y*g.Width+x]
}

// Set stores v at (x, y). No bounds checking is performed.
func (g *Grid) Set(x, y int, v float64) {
	g.Data[y*g.Width+x] = v
}

// Valid reports whether (x, y) lies inside the grid and holds a finite value.
func (g *Grid) Valid(x, y int) bool {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return false
	}
	return IsFinite(g.Data[y*g.Width+x])
}

// Bounds returns the grid extent as an image rectangle anchored at the origin.
func (g *Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Stats summarises the finite pixels of a grid.
type Stats struct {
	// Valid is the number of finite pixels.
	Valid int `json:"valid"`

	// Invalid is the number of non-finite (masked) pixels.
	Invalid int `json:"invalid"`

	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Stats computes summary statistics over the finite pixels.
//
// StdDev is the sample standard deviation. For a grid with no finite
// pixels every value field is zero.
func (g *Grid) Stats() Stats {
	values := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if IsFinite(v) {
			values = append(values, v)
		}
	}

	s := Stats{Valid: len(values), Invalid: len(g.Data) - len(values)}
	if len(values) == 0 {
		return s
	}

	s.Min, s.Max = values[0], values[0]
	for _, v := range values[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s
}
