package output

import (
	"bytes"
	"encoding/csv"
	"errors"
	"image"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/ironsheep/sourcefinder/internal/boxset"
	"github.com/ironsheep/sourcefinder/internal/grid"
)

var identity = boxset.TransformFunc(func(x, y float64) (float64, float64) { return x, y })

// block builds a filled w×h region at (x, y) and sets those grid cells to v.
func block(t *testing.T, g *grid.Grid, id, x, y, w, h int, v float64) *boxset.BoxSet {
	t.Helper()
	var pts []image.Point
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			g.Set(i, j, v)
			pts = append(pts, image.Pt(i, j))
		}
	}
	b, err := boxset.FromPixels(id, pts)
	if err != nil {
		t.Fatalf("FromPixels failed: %v", err)
	}
	return b
}

func TestMeasure(t *testing.T) {
	g := grid.New(10, 10)
	b := block(t, g, 1, 2, 2, 3, 3, 5)

	s, err := Measure(b, g, identity, 2)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"x", s.X, 3},
		{"y", s.Y, 3},
		{"x1", s.X1, 2},
		{"y1", s.Y1, 2},
		{"x2", s.X2, 5},
		{"y2", s.Y2, 5},
		{"total", s.TotalFlux, 45},
		{"integrated", s.IntegratedFlux, 22.5},
		{"peak", s.PeakFlux, 5},
		{"peak95", s.PeakFlux95, 5},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if s.Pixels != 9 {
		t.Errorf("Pixels: got %d, want 9", s.Pixels)
	}
}

func TestMeasure_Percentile(t *testing.T) {
	g := grid.New(20, 1)
	pts := make([]image.Point, 0, 20)
	for x := 0; x < 20; x++ {
		g.Set(x, 0, float64(20-x))
		pts = append(pts, image.Pt(x, 0))
	}
	b, _ := boxset.FromPixels(1, pts)

	s, err := Measure(b, g, identity, 1)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if s.PeakFlux != 20 {
		t.Errorf("PeakFlux: got %v, want 20", s.PeakFlux)
	}
	if !scalar.EqualWithinAbs(s.PeakFlux95, 19.05, 1e-9) {
		t.Errorf("PeakFlux95: got %v, want 19.05", s.PeakFlux95)
	}
	if s.TotalFlux != 210 {
		t.Errorf("TotalFlux: got %v, want 210", s.TotalFlux)
	}
}

func TestPercentile(t *testing.T) {
	seq := func(n int) []float64 {
		v := make([]float64, n)
		for i := range v {
			v[i] = float64(i + 1)
		}
		return v
	}

	// Expected values match numpy.percentile's default linear method.
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{"single value", []float64{7}, 0.95, 7},
		{"two values", []float64{1, 2}, 0.95, 1.95},
		{"one to ten", seq(10), 0.95, 9.55},
		{"one to twenty", seq(20), 0.95, 19.05},
		{"exact rank", seq(21), 0.95, 20},
		{"median", seq(4), 0.5, 2.5},
		{"maximum", seq(5), 1, 5},
		{"minimum", seq(5), 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentile(tt.values, tt.p); !scalar.EqualWithinAbs(got, tt.want, 1e-9) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeasure_NoFinitePixels(t *testing.T) {
	g := grid.New(3, 3)
	g.Set(1, 1, math.NaN())
	b, _ := boxset.FromPixels(4, []image.Point{{1, 1}})

	if _, err := Measure(b, g, identity, 1); !errors.Is(err, boxset.ErrEmptyRegion) {
		t.Errorf("got %v, want ErrEmptyRegion", err)
	}
}

func TestMeasure_UsesTransform(t *testing.T) {
	g := grid.New(10, 10)
	b := block(t, g, 1, 4, 4, 1, 1, 1)

	shift := boxset.TransformFunc(func(x, y float64) (float64, float64) { return x + 100, -y })
	s, err := Measure(b, g, shift, 1)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if s.X != 104 || s.Y != -4 {
		t.Errorf("centre: got (%v,%v), want (104,-4)", s.X, s.Y)
	}
	if s.X2 != 105 || s.Y2 != -5 {
		t.Errorf("far corner: got (%v,%v), want (105,-5)", s.X2, s.Y2)
	}
}

func TestWriteCatalog(t *testing.T) {
	g := grid.New(10, 10)
	a := block(t, g, 1, 2, 2, 3, 3, 5)
	b := block(t, g, 2, 8, 8, 1, 1, 7)

	var buf bytes.Buffer
	if err := WriteCatalog(&buf, []*boxset.BoxSet{a, b}, g, identity, 1); err != nil {
		t.Fatalf("WriteCatalog failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("catalog is not valid CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows: got %d, want 4", len(rows))
	}

	if got := strings.Join(rows[0], ","); got != "ID,x,y,x1,y1,x2,y2,Total Flux,Integrated Flux,Peak Flux,Peak Flux (95 Percentile)" {
		t.Errorf("header: got %q", got)
	}
	if rows[1][1] != "(degrees)" {
		t.Errorf("units row: got %q", rows[1])
	}
	if got := strings.Join(rows[2], ","); got != "1,3,3,2,2,5,5,45,45,5,5" {
		t.Errorf("first source: got %q", got)
	}
	if rows[3][0] != "2" || rows[3][9] != "7" {
		t.Errorf("second source: got %q", rows[3])
	}
}

func TestWriteCatalog_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCatalog(&buf, nil, grid.New(2, 2), identity, 1); err != nil {
		t.Fatalf("WriteCatalog failed: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("catalog is not valid CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("rows: got %d, want header and units only", len(rows))
	}
}
