package boxset

import "fmt"

// Transform converts pixel coordinates to world coordinates.
type Transform interface {
	PixelToWorld(x, y float64) (float64, float64)
}

// TransformFunc adapts a plain function to the Transform interface.
type TransformFunc func(x, y float64) (float64, float64)

// PixelToWorld calls f(x, y).
func (f TransformFunc) PixelToWorld(x, y float64) (float64, float64) { return f(x, y) }

// Vertex is a polygon corner in absolute pixel coordinates.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge directions on the vertex lattice, clockwise on screen (Y down).
const (
	dirRight = iota
	dirDown
	dirLeft
	dirUp
)

var (
	stepX = [4]int{1, 0, -1, 0}
	stepY = [4]int{0, 1, 0, -1}
)

// Polygon traces the outline of the mask and returns its corner vertices in
// clockwise screen order, starting at the top-left corner of the first
// member pixel in row-major order. Collinear runs are collapsed.
//
// # Algorithm
//
//  1. Every member pixel edge that faces a non-member contributes one
//     directed unit edge on the (W+1)×(H+1) corner lattice, oriented so the
//     member pixel lies on the right-hand side.
//  2. Edges are followed from the start corner. Where four pixels meet in a
//     diagonal pattern the corner has two outgoing edges; the left turn is
//     taken, which keeps diagonally touching pixels on one outline.
//  3. If any edge is left unvisited when the walk returns to the start, the
//     boundary has more than one loop and ErrUntraceableBoundary is returned.
func (b *BoxSet) Polygon() ([]Vertex, error) {
	m := b.mask
	vw := m.Width + 1
	out := make([]uint8, vw*(m.Height+1))

	total := 0
	start := -1
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.At(x, y) {
				continue
			}
			if start < 0 {
				start = y*vw + x
			}
			if !m.At(x, y-1) {
				out[y*vw+x] |= 1 << dirRight
				total++
			}
			if !m.At(x+1, y) {
				out[y*vw+x+1] |= 1 << dirDown
				total++
			}
			if !m.At(x, y+1) {
				out[(y+1)*vw+x+1] |= 1 << dirLeft
				total++
			}
			if !m.At(x-1, y) {
				out[(y+1)*vw+x] |= 1 << dirUp
				total++
			}
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("box %d: %w", b.id, ErrEmptyRegion)
	}

	// The start corner has no pixel above or left of it, so its only
	// outgoing edge runs right.
	var corners []int
	v, d := start, dirRight
	walked := 0
	for {
		out[v] &^= 1 << d
		walked++
		next := v + stepY[d]*vw + stepX[d]

		nd := d
		switch bits := out[next]; {
		case bits == 0:
			// Only the start corner is exhausted on arrival.
			nd = -1
		case bits&(bits-1) != 0:
			nd = (d + 3) % 4
		default:
			for bits>>nd&1 == 0 {
				nd = (nd + 1) % 4
			}
		}
		if next == start {
			break
		}
		if nd < 0 {
			return nil, fmt.Errorf("box %d: %w: open outline", b.id, ErrUntraceableBoundary)
		}
		if nd != d {
			corners = append(corners, next)
		}
		v, d = next, nd
	}

	if walked != total {
		return nil, fmt.Errorf("box %d: %w: %d of %d boundary edges form other loops",
			b.id, ErrUntraceableBoundary, total-walked, total)
	}

	verts := make([]Vertex, 0, len(corners)+1)
	verts = append(verts, b.cornerVertex(start, vw))
	for _, c := range corners {
		verts = append(verts, b.cornerVertex(c, vw))
	}
	return verts, nil
}

func (b *BoxSet) cornerVertex(v, vw int) Vertex {
	return Vertex{
		X: float64(b.bounds.X1+v%vw) - 0.5,
		Y: float64(b.bounds.Y1+v/vw) - 0.5,
	}
}

// Annotation traces the region outline, maps each vertex through t and
// renders every polygon edge as a Karma "LINE x1 y1 x2 y2" record.
//
// An outline that is not a single loop returns ErrUntraceableBoundary. This
// is expected for merged regions and for masks with holes; callers should
// report it and continue with the next region.
func (b *BoxSet) Annotation(t Transform) ([]string, error) {
	verts, err := b.Polygon()
	if err != nil {
		return nil, err
	}

	world := make([]Vertex, len(verts))
	for i, p := range verts {
		wx, wy := t.PixelToWorld(p.X, p.Y)
		world[i] = Vertex{X: wx, Y: wy}
	}

	lines := make([]string, len(world))
	for i, p := range world {
		q := world[(i+1)%len(world)]
		lines[i] = fmt.Sprintf("LINE %.8f %.8f %.8f %.8f", p.X, p.Y, q.X, q.Y)
	}
	return lines, nil
}
