// Package search finds connected regions of significant pixels in a grid.
//
// # Algorithm
//
//  1. Threshold: a pixel qualifies when it is finite and exceeds either a
//     global cut or a local mean + sigma·stddev computed over a sliding
//     window with an integral image.
//  2. Grouping: qualifying pixels are grouped into 8-connected components
//     with an iterative stack-based flood fill. Pixel state lives in a flat
//     arena indexed by y·width+x, so each pixel is examined at most once per
//     neighbour and consumed exactly once.
//  3. Emission: each component becomes a BoxSet with tight bounds and a
//     local mask.
//
// Components are emitted in the row-major order of their first pixel and
// receive IDs 1, 2, 3, ... in that order. The ID counter belongs to a single
// Run call; concurrent runs never share it.
package search

import (
	"fmt"
	"image"

	"github.com/ironsheep/sourcefinder/internal/boxset"
	"github.com/ironsheep/sourcefinder/internal/grid"
)

// Pixel states in the search arena.
const (
	unvisited uint8 = iota
	rejected
	queued
	assigned
)

// Run finds all connected components of qualifying pixels in g.
//
// Parameters:
//   - g: the grid to search. It is not modified.
//   - cfg: threshold configuration; see Config.
//
// Returns:
//   - []*boxset.BoxSet: one region per component, in row-major seed order.
//     Empty (not nil) when nothing qualifies.
//   - error: non-nil only for an invalid configuration.
func Run(g *grid.Grid, cfg Config) ([]*boxset.BoxSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search config: %w", err)
	}

	s := &scan{
		g:     g,
		th:    newThresholder(g, cfg),
		state: make([]uint8, g.Width*g.Height),
		ids:   &counter{},
	}
	return s.run(), nil
}

// counter hands out monotonically increasing IDs for one search run.
type counter struct {
	last int
}

func (c *counter) next() int {
	c.last++
	return c.last
}

type scan struct {
	g     *grid.Grid
	th    thresholder
	state []uint8
	ids   *counter
	stack []int
	comp  []image.Point
}

func (s *scan) run() []*boxset.BoxSet {
	regions := make([]*boxset.BoxSet, 0)
	w := s.g.Width

	for y := 0; y < s.g.Height; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if s.state[i] != unvisited {
				continue
			}
			if !s.th.qualifies(x, y) {
				s.state[i] = rejected
				continue
			}

			s.fill(i)
			// comp is non-empty and in-grid, so FromPixels cannot fail.
			b, err := boxset.FromPixels(s.ids.next(), s.comp)
			if err != nil {
				continue
			}
			regions = append(regions, b)
		}
	}
	return regions
}

// fill grows the component seeded at flat index seed, which must qualify.
// The component's pixels are left in s.comp.
func (s *scan) fill(seed int) {
	w, h := s.g.Width, s.g.Height
	s.comp = s.comp[:0]
	s.stack = append(s.stack[:0], seed)
	s.state[seed] = queued

	for len(s.stack) > 0 {
		i := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		s.state[i] = assigned

		x, y := i%w, i/w
		s.comp = append(s.comp, image.Pt(x, y))

		// 8-connected neighbours
		for dy := -1; dy <= 1; dy++ {
			ny := y + dy
			if ny < 0 || ny >= h {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				nx := x + dx
				if (dx == 0 && dy == 0) || nx < 0 || nx >= w {
					continue
				}
				n := ny*w + nx
				if s.state[n] != unvisited {
					continue
				}
				if s.th.qualifies(nx, ny) {
					s.state[n] = queued
					s.stack = append(s.stack, n)
				} else {
					s.state[n] = rejected
				}
			}
		}
	}
}
