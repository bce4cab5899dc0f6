// Package postprocess consolidates raw search detections into a final
// catalog-ready set.
//
// Two passes run in order:
//
//  1. Merge: regions whose bounding boxes overlap, touch, or lie within
//     MergeMargin pixels of each other on both axes are merged. Merged boxes
//     grow, so the pass repeats until no pair qualifies.
//  2. Filter: regions smaller than MinSize pixels, or whose brightest member
//     pixel is below MinPeak, are dropped.
//
// Region IDs are never renumbered; a merged region keeps the lowest ID of
// its members. The output is sorted by ID and does not depend on the order
// of the input slice.
package postprocess

import (
	"math"
	"sort"

	"github.com/ironsheep/sourcefinder/internal/boxset"
	"github.com/ironsheep/sourcefinder/internal/grid"
)

// Config holds postprocessing parameters.
type Config struct {
	// MergeMargin is the largest gap, in pixels, between two bounding boxes
	// that still merges them. Negative disables merging.
	MergeMargin int `json:"merge_margin"`

	// MinSize is the minimum member pixel count a region must have.
	MinSize int `json:"min_size"`

	// MinPeak is the minimum brightest-pixel value a region must have.
	MinPeak float64 `json:"min_peak"`
}

// DefaultConfig merges touching regions and keeps everything else.
func DefaultConfig() Config {
	return Config{
		MergeMargin: 0,
		MinSize:     1,
		MinPeak:     math.Inf(-1),
	}
}

// Run applies the merge pass then the filter pass.
func Run(g *grid.Grid, regions []*boxset.BoxSet, cfg Config) []*boxset.BoxSet {
	merged := Merge(regions, cfg.MergeMargin)
	return Filter(g, merged, cfg.MinSize, cfg.MinPeak)
}

// Merge merges regions whose bounding boxes lie within margin pixels of
// each other until a fixed point is reached. A negative margin returns the
// regions sorted by ID without merging.
func Merge(regions []*boxset.BoxSet, margin int) []*boxset.BoxSet {
	current := make([]*boxset.BoxSet, len(regions))
	copy(current, regions)
	sortByID(current)

	if margin < 0 {
		return current
	}

	for {
		next, changed := mergeOnce(current, margin)
		if !changed {
			return next
		}
		current = next
	}
}

// mergeOnce unions every pair of regions that are within margin, then
// merges each group. The groups are computed on the input boxes only; boxes
// that grow into range of others are picked up by the next round.
func mergeOnce(regions []*boxset.BoxSet, margin int) ([]*boxset.BoxSet, bool) {
	n := len(regions)
	uf := newUnionFind(n)

	// Sweep in order of left edge: once a box starts more than margin
	// columns past the current box's right edge, so do all later ones.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return regions[order[a]].Bounds().X1 < regions[order[b]].Bounds().X1
	})

	changed := false
	for a := 0; a < n; a++ {
		ba := regions[order[a]].Bounds()
		for b := a + 1; b < n; b++ {
			bb := regions[order[b]].Bounds()
			if bb.X1-ba.X2 > margin {
				break
			}
			if ba.Within(bb, margin) && uf.union(order[a], order[b]) {
				changed = true
			}
		}
	}
	if !changed {
		return regions, false
	}

	// regions is sorted by ID, so each group folds in ID order and the
	// group's first member carries the lowest ID.
	groups := make(map[int]*boxset.BoxSet, n)
	roots := make([]int, 0, n)
	for i, r := range regions {
		root := uf.find(i)
		if acc, ok := groups[root]; ok {
			groups[root] = acc.Merge(r)
			continue
		}
		groups[root] = r
		roots = append(roots, root)
	}

	out := make([]*boxset.BoxSet, 0, len(roots))
	for _, root := range roots {
		out = append(out, groups[root])
	}
	sortByID(out)
	return out, true
}

// Filter drops regions with fewer than minSize member pixels or a peak
// value below minPeak. Non-finite grid values are ignored when finding the
// peak; a region with no finite member pixel has peak -Inf.
func Filter(g *grid.Grid, regions []*boxset.BoxSet, minSize int, minPeak float64) []*boxset.BoxSet {
	out := make([]*boxset.BoxSet, 0, len(regions))
	for _, r := range regions {
		if r.Size() < minSize {
			continue
		}
		if Peak(g, r) < minPeak {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Peak returns the largest finite grid value under the region's mask.
func Peak(g *grid.Grid, r *boxset.BoxSet) float64 {
	peak := math.Inf(-1)
	r.Pixels(func(x, y int) {
		if v := g.At(x, y); grid.IsFinite(v) && v > peak {
			peak = v
		}
	})
	return peak
}

func sortByID(regions []*boxset.BoxSet) {
	sort.SliceStable(regions, func(a, b int) bool {
		return regions[a].ID() < regions[b].ID()
	})
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// union joins the sets of a and b, reporting whether they were separate.
func (u *unionFind) union(a, b int) bool {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return false
	}
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
	return true
}
