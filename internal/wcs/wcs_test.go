package wcs

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestIdentity(t *testing.T) {
	id := Identity()
	for _, p := range [][2]float64{{0, 0}, {3.5, -2}, {100, 7}} {
		x, y := id.PixelToWorld(p[0], p[1])
		if x != p[0] || y != p[1] {
			t.Errorf("Identity(%v): got (%v,%v)", p, x, y)
		}
	}
}

func TestLinear_PixelToWorld(t *testing.T) {
	l, err := NewLinear([2]float64{10, 20}, [2]float64{180, -45}, [4]float64{-0.5, 0, 0, 0.25})
	if err != nil {
		t.Fatalf("NewLinear failed: %v", err)
	}

	tests := []struct {
		px, py float64
		wx, wy float64
	}{
		{10, 20, 180, -45},
		{12, 20, 179, -45},
		{10, 24, 180, -44},
		{8, 16, 181, -46},
	}

	for _, tt := range tests {
		x, y := l.PixelToWorld(tt.px, tt.py)
		if !near(x, tt.wx) || !near(y, tt.wy) {
			t.Errorf("PixelToWorld(%v,%v): got (%v,%v), want (%v,%v)", tt.px, tt.py, x, y, tt.wx, tt.wy)
		}
	}
}

func TestLinear_RoundTrip(t *testing.T) {
	l, err := NewLinear([2]float64{3, 4}, [2]float64{10, 20}, [4]float64{0.1, 0.02, -0.03, 0.2})
	if err != nil {
		t.Fatalf("NewLinear failed: %v", err)
	}

	wx, wy := l.PixelToWorld(17.25, -3)
	px, py, err := l.WorldToPixel(wx, wy)
	if err != nil {
		t.Fatalf("WorldToPixel failed: %v", err)
	}
	if !near(px, 17.25) || !near(py, -3) {
		t.Errorf("round trip: got (%v,%v), want (17.25,-3)", px, py)
	}
}

func TestNewLinear_Singular(t *testing.T) {
	_, err := NewLinear([2]float64{}, [2]float64{}, [4]float64{1, 2, 2, 4})
	if !errors.Is(err, ErrSingular) {
		t.Errorf("got %v, want ErrSingular", err)
	}
}

func TestBeamAreaPixels(t *testing.T) {
	// A 4x2 pixel beam.
	got := BeamAreaPixels(Beam{BMaj: 0.004, BMin: 0.002}, 0.001)
	want := math.Pi * 8 / (4 * math.Ln2)
	if !near(got, want) {
		t.Errorf("BeamAreaPixels: got %v, want %v", got, want)
	}

	// A negative cdelt (RA increasing to the left) gives the same area.
	if neg := BeamAreaPixels(Beam{BMaj: 0.004, BMin: 0.002}, -0.001); !near(neg, want) {
		t.Errorf("negative cdelt: got %v, want %v", neg, want)
	}
}

func TestFromHeader(t *testing.T) {
	sys, err := FromHeader(Header{
		CRPix: [2]float64{1, 1},
		CRVal: [2]float64{50, 10},
		CDelt: [2]float64{-0.01, 0.01},
		BMaj:  0.03,
		BMin:  0.03,
	})
	if err != nil {
		t.Fatalf("FromHeader failed: %v", err)
	}

	// FITS pixel 1 is grid pixel 0.
	x, y := sys.PixelToWorld(0, 0)
	if !near(x, 50) || !near(y, 10) {
		t.Errorf("reference pixel: got (%v,%v), want (50,10)", x, y)
	}
	x, y = sys.PixelToWorld(2, 1)
	if !near(x, 49.98) || !near(y, 10.01) {
		t.Errorf("offset pixel: got (%v,%v), want (49.98,10.01)", x, y)
	}

	want := math.Pi * 9 / (4 * math.Ln2)
	if !near(sys.BeamArea, want) {
		t.Errorf("BeamArea: got %v, want %v", sys.BeamArea, want)
	}
}

func TestFromHeader_BeamUsesCDeltMagnitude(t *testing.T) {
	h := Header{CRPix: [2]float64{1, 1}, CDelt: [2]float64{0.002, 0.002}, BMaj: 0.01, BMin: 0.004}
	pos, err := FromHeader(h)
	if err != nil {
		t.Fatalf("FromHeader failed: %v", err)
	}
	h.CDelt[0] = -0.002
	neg, err := FromHeader(h)
	if err != nil {
		t.Fatalf("FromHeader failed: %v", err)
	}

	want := math.Pi * 5 * 2 / (4 * math.Ln2)
	if !near(pos.BeamArea, want) || !near(neg.BeamArea, want) {
		t.Errorf("BeamArea: got %v and %v, want %v for both", pos.BeamArea, neg.BeamArea, want)
	}
}

func TestFromHeader_CDMatrix(t *testing.T) {
	cd := [2][2]float64{{0, 0.5}, {0.5, 0}}
	sys, err := FromHeader(Header{CRPix: [2]float64{1, 1}, CD: &cd, BMaj: 1, BMin: 1})
	if err != nil {
		t.Fatalf("FromHeader failed: %v", err)
	}

	x, y := sys.PixelToWorld(2, 0)
	if !near(x, 0) || !near(y, 1) {
		t.Errorf("rotated axes: got (%v,%v), want (0,1)", x, y)
	}

	// Without CDELT the beam is measured in units of the pixel scale.
	want := math.Pi * 4 / (4 * math.Ln2)
	if !near(sys.BeamArea, want) {
		t.Errorf("BeamArea: got %v, want %v", sys.BeamArea, want)
	}
}

func TestFromHeader_Invalid(t *testing.T) {
	tests := []struct {
		name string
		h    Header
	}{
		{"no scale", Header{}},
		{"zero cdelt axis", Header{CDelt: [2]float64{0.1, 0}}},
		{"singular cd", Header{CD: &[2][2]float64{{1, 1}, {1, 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromHeader(tt.h); err == nil {
				t.Error("FromHeader should fail")
			}
		})
	}
}

func TestFromHeader_NoBeam(t *testing.T) {
	sys, err := FromHeader(Header{CDelt: [2]float64{1, 1}})
	if err != nil {
		t.Fatalf("FromHeader failed: %v", err)
	}
	if sys.BeamArea != 1 {
		t.Errorf("BeamArea: got %v, want 1", sys.BeamArea)
	}
}

func TestLoadFor(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "field.png")

	sys, err := LoadFor(img)
	if err != nil {
		t.Fatalf("LoadFor without sidecar failed: %v", err)
	}
	if sys.BeamArea != 1 {
		t.Errorf("default BeamArea: got %v, want 1", sys.BeamArea)
	}
	if x, y := sys.PixelToWorld(4, 5); x != 4 || y != 5 {
		t.Errorf("default transform: got (%v,%v), want (4,5)", x, y)
	}

	header := `{"crpix": [11, 21], "crval": [1, 2], "cdelt": [0.5, 0.5]}`
	if err := os.WriteFile(SidecarPath(img), []byte(header), 0644); err != nil {
		t.Fatalf("failed to write sidecar: %v", err)
	}
	sys, err = LoadFor(img)
	if err != nil {
		t.Fatalf("LoadFor failed: %v", err)
	}
	if x, y := sys.PixelToWorld(10, 20); !near(x, 1) || !near(y, 2) {
		t.Errorf("reference pixel: got (%v,%v), want (1,2)", x, y)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Load should fail for a missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("Load should fail for malformed JSON")
	}
}
