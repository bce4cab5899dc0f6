// Package integral provides a summed-area table over an intensity grid.
//
// An Image answers sum, count, mean and standard deviation queries over any
// axis-aligned rectangle in O(1). Rectangles are half-open: (x1, y1) is
// inclusive and (x2, y2) is exclusive. Non-finite grid cells contribute
// nothing to sums and are excluded from the valid-pixel count, so means and
// deviations are computed over valid pixels only.
//
// An Image is immutable after New returns and is safe for concurrent reads.
package integral

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/ironsheep/sourcefinder/internal/grid"
)

var (
	// ErrRange is returned for empty rectangles or rectangles that leave the grid.
	ErrRange = errors.New("rectangle out of range")

	// ErrEmptyRegion is returned when a statistic needs at least one valid pixel.
	ErrEmptyRegion = errors.New("no valid pixels in region")
)

// Image is a summed-area table with one guard row and column of zeros.
//
// Cell (x, y) of each table holds the total over grid cells [0,y)×[0,x),
// so the tables are (Width+1)×(Height+1).
type Image struct {
	width  int
	height int
	stride int
	sum    []float64
	sumSq  []float64
	count  []int32
}

// New builds the integral image for g.
//
// Row prefix sums are computed in parallel bands; the vertical accumulation
// that follows is sequential.
func New(g *grid.Grid) *Image {
	stride := g.Width + 1
	size := stride * (g.Height + 1)
	ii := &Image{
		width:  g.Width,
		height: g.Height,
		stride: stride,
		sum:    make([]float64, size),
		sumSq:  make([]float64, size),
		count:  make([]int32, size),
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > g.Height {
		workers = g.Height
	}
	if workers < 1 {
		workers = 1
	}
	band := (g.Height + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < g.Height; start += band {
		end := start + band
		if end > g.Height {
			end = g.Height
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for y := start; y < end; y++ {
				ii.rowPrefix(g, y)
			}
		}(start, end)
	}
	wg.Wait()

	for y := 2; y <= g.Height; y++ {
		row := y * stride
		prev := row - stride
		for x := 1; x <= g.Width; x++ {
			ii.sum[row+x] += ii.sum[prev+x]
			ii.sumSq[row+x] += ii.sumSq[prev+x]
			ii.count[row+x] += ii.count[prev+x]
		}
	}

	return ii
}

// rowPrefix fills table row y+1 with the running totals of grid row y.
func (ii *Image) rowPrefix(g *grid.Grid, y int) {
	row := (y + 1) * ii.stride
	src := g.Data[y*g.Width : (y+1)*g.Width]

	var s, sq float64
	var n int32
	for x, v := range src {
		if grid.IsFinite(v) {
			s += v
			sq += v * v
			n++
		}
		ii.sum[row+x+1] = s
		ii.sumSq[row+x+1] = sq
		ii.count[row+x+1] = n
	}
}

// Width returns the width of the underlying grid.
func (ii *Image) Width() int { return ii.width }

// Height returns the height of the underlying grid.
func (ii *Image) Height() int { return ii.height }

func (ii *Image) check(x1, y1, x2, y2 int) error {
	if x1 < 0 || y1 < 0 || x2 > ii.width || y2 > ii.height || x1 >= x2 || y1 >= y2 {
		return fmt.Errorf("%w: (%d,%d)-(%d,%d) in %dx%d grid", ErrRange, x1, y1, x2, y2, ii.width, ii.height)
	}
	return nil
}

// corners applies the four-corner identity to table t.
func corners[T float64 | int32](t []T, stride, x1, y1, x2, y2 int) T {
	return t[y2*stride+x2] - t[y1*stride+x2] - t[y2*stride+x1] + t[y1*stride+x1]
}

// Sum returns the total of valid pixel values in [x1,x2)×[y1,y2).
func (ii *Image) Sum(x1, y1, x2, y2 int) (float64, error) {
	if err := ii.check(x1, y1, x2, y2); err != nil {
		return 0, err
	}
	return corners(ii.sum, ii.stride, x1, y1, x2, y2), nil
}

// Count returns the number of valid pixels in [x1,x2)×[y1,y2).
func (ii *Image) Count(x1, y1, x2, y2 int) (int, error) {
	if err := ii.check(x1, y1, x2, y2); err != nil {
		return 0, err
	}
	return int(corners(ii.count, ii.stride, x1, y1, x2, y2)), nil
}

// Mean returns the mean of valid pixel values in [x1,x2)×[y1,y2).
func (ii *Image) Mean(x1, y1, x2, y2 int) (float64, error) {
	if err := ii.check(x1, y1, x2, y2); err != nil {
		return 0, err
	}
	n := corners(ii.count, ii.stride, x1, y1, x2, y2)
	if n == 0 {
		return 0, fmt.Errorf("%w: (%d,%d)-(%d,%d)", ErrEmptyRegion, x1, y1, x2, y2)
	}
	return corners(ii.sum, ii.stride, x1, y1, x2, y2) / float64(n), nil
}

// MeanStdDev returns the mean and population standard deviation of valid
// pixel values in [x1,x2)×[y1,y2).
func (ii *Image) MeanStdDev(x1, y1, x2, y2 int) (mean, std float64, err error) {
	if err := ii.check(x1, y1, x2, y2); err != nil {
		return 0, 0, err
	}
	n := corners(ii.count, ii.stride, x1, y1, x2, y2)
	if n == 0 {
		return 0, 0, fmt.Errorf("%w: (%d,%d)-(%d,%d)", ErrEmptyRegion, x1, y1, x2, y2)
	}
	s := corners(ii.sum, ii.stride, x1, y1, x2, y2)
	sq := corners(ii.sumSq, ii.stride, x1, y1, x2, y2)
	mean = s / float64(n)
	variance := sq/float64(n) - mean*mean
	if variance < 0 {
		// Cancellation on near-constant windows.
		variance = 0
	}
	return mean, math.Sqrt(variance), nil
}

// Window returns the square window of side size centred on (cx, cy),
// clipped to the grid. An even size extends one pixel further up and left.
func (ii *Image) Window(cx, cy, size int) (x1, y1, x2, y2 int) {
	half := size / 2
	x1, y1 = cx-half, cy-half
	x2, y2 = x1+size, y1+size
	if x1 < 0 {
		x1 = 0
	}
	if y1 < 0 {
		y1 = 0
	}
	if x2 > ii.width {
		x2 = ii.width
	}
	if y2 > ii.height {
		y2 = ii.height
	}
	return x1, y1, x2, y2
}
