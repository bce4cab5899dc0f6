package grid

import "fmt"

// Point is a labelled pixel position.
type Point struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Label string `json:"label,omitempty"`
}

// Sample is the value of one pixel. Value is nil for invalid pixels so
// the result always marshals to JSON.
type Sample struct {
	Point
	Value *float64 `json:"value"`
	Valid bool     `json:"valid"`
}

// SampleAt reads the pixel at (x, y). Coordinates are 0-based from the
// top-left corner.
func (g *Grid) SampleAt(x, y int) (*Sample, error) {
	if x < 0 || x >= g.Width || y < 0 || y >= g.Height {
		return nil, fmt.Errorf("coordinates (%d,%d) outside %dx%d grid", x, y, g.Width, g.Height)
	}
	s := &Sample{Point: Point{X: x, Y: y}}
	if v := g.At(x, y); IsFinite(v) {
		s.Value = &v
		s.Valid = true
	}
	return s, nil
}

// SampleMany reads several labelled pixels in input order. On error no
// partial results are returned.
func (g *Grid) SampleMany(points []Point) ([]*Sample, error) {
	out := make([]*Sample, 0, len(points))
	for _, p := range points {
		s, err := g.SampleAt(p.X, p.Y)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", p.Label, err)
		}
		s.Label = p.Label
		out = append(out, s)
	}
	return out, nil
}
