// Package wcs maps pixel positions to world coordinates and reports the
// telescope beam size in pixels.
//
// Only the linear part of a FITS world coordinate system is modelled:
//
//	world = CRVAL + CD * (pixel - CRPIX)
//
// Pixel positions are 0-based, matching grid indices. FITS headers use
// 1-based CRPIX values; Load converts them.
package wcs

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when a CD matrix has no inverse.
var ErrSingular = errors.New("wcs: singular CD matrix")

// Linear is an affine pixel to world transform.
type Linear struct {
	CRPix [2]float64 // reference pixel, 0-based
	CRVal [2]float64 // world coordinates at CRPix
	CD    *mat.Dense // 2x2 world units per pixel
}

// NewLinear builds a transform from a reference pixel (0-based), its world
// value and a 2x2 CD matrix given row-major.
func NewLinear(crpix, crval [2]float64, cd [4]float64) (*Linear, error) {
	m := mat.NewDense(2, 2, cd[:])
	if mat.Det(m) == 0 {
		return nil, ErrSingular
	}
	return &Linear{CRPix: crpix, CRVal: crval, CD: m}, nil
}

// Identity returns the transform that maps every pixel to itself.
func Identity() *Linear {
	return &Linear{CD: mat.NewDense(2, 2, []float64{1, 0, 0, 1})}
}

// PixelToWorld converts a 0-based pixel position to world coordinates.
func (l *Linear) PixelToWorld(x, y float64) (float64, float64) {
	d := mat.NewVecDense(2, []float64{x - l.CRPix[0], y - l.CRPix[1]})
	var w mat.VecDense
	w.MulVec(l.CD, d)
	return l.CRVal[0] + w.AtVec(0), l.CRVal[1] + w.AtVec(1)
}

// WorldToPixel is the inverse of PixelToWorld.
func (l *Linear) WorldToPixel(wx, wy float64) (float64, float64, error) {
	var inv mat.Dense
	if err := inv.Inverse(l.CD); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	d := mat.NewVecDense(2, []float64{wx - l.CRVal[0], wy - l.CRVal[1]})
	var p mat.VecDense
	p.MulVec(&inv, d)
	return l.CRPix[0] + p.AtVec(0), l.CRPix[1] + p.AtVec(1), nil
}

// PixelScale returns the geometric mean pixel size in world units.
func (l *Linear) PixelScale() float64 {
	return math.Sqrt(math.Abs(mat.Det(l.CD)))
}

// Beam is the restoring beam's full width at half maximum along its major
// and minor axes, in world units.
type Beam struct {
	BMaj float64 `json:"bmaj"`
	BMin float64 `json:"bmin"`
}

// BeamAreaPixels returns the area of a Gaussian beam in pixels, where cdelt
// is the world size of one pixel.
func BeamAreaPixels(b Beam, cdelt float64) float64 {
	s1 := b.BMaj / cdelt
	s2 := b.BMin / cdelt
	return math.Pi * s1 * s2 / (4 * math.Ln2)
}

// Header is the JSON sidecar describing an image's coordinate system. CRPix
// follows the FITS 1-based convention. CD takes precedence over CDelt.
type Header struct {
	CRPix [2]float64     `json:"crpix"`
	CRVal [2]float64     `json:"crval"`
	CDelt [2]float64     `json:"cdelt,omitempty"`
	CD    *[2][2]float64 `json:"cd,omitempty"`
	BMaj  float64        `json:"bmaj,omitempty"`
	BMin  float64        `json:"bmin,omitempty"`
}

// System bundles a transform with the beam area it implies.
type System struct {
	*Linear
	BeamArea float64 // pixels; 1 when the header has no beam
}

// Default is the identity system with unit beam area.
func Default() *System {
	return &System{Linear: Identity(), BeamArea: 1}
}

// FromHeader builds a System from a decoded header.
func FromHeader(h Header) (*System, error) {
	var cd [4]float64
	switch {
	case h.CD != nil:
		cd = [4]float64{h.CD[0][0], h.CD[0][1], h.CD[1][0], h.CD[1][1]}
	case h.CDelt[0] != 0 && h.CDelt[1] != 0:
		cd = [4]float64{h.CDelt[0], 0, 0, h.CDelt[1]}
	default:
		return nil, fmt.Errorf("wcs header needs cd or non-zero cdelt")
	}

	lin, err := NewLinear([2]float64{h.CRPix[0] - 1, h.CRPix[1] - 1}, h.CRVal, cd)
	if err != nil {
		return nil, err
	}

	sys := &System{Linear: lin, BeamArea: 1}
	if h.BMaj > 0 && h.BMin > 0 {
		cdelt := math.Abs(h.CDelt[0])
		if cdelt == 0 {
			cdelt = lin.PixelScale()
		}
		sys.BeamArea = BeamAreaPixels(Beam{BMaj: h.BMaj, BMin: h.BMin}, cdelt)
	}
	return sys, nil
}

// Load reads a JSON header sidecar from path.
func Load(path string) (*System, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wcs header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to parse wcs header %s: %w", path, err)
	}
	sys, err := FromHeader(h)
	if err != nil {
		return nil, fmt.Errorf("invalid wcs header %s: %w", path, err)
	}
	return sys, nil
}

// SidecarPath returns the conventional header path for an image file.
func SidecarPath(imagePath string) string {
	return imagePath + ".wcs.json"
}

// LoadFor loads the sidecar next to imagePath, falling back to Default when
// none exists.
func LoadFor(imagePath string) (*System, error) {
	p := SidecarPath(imagePath)
	if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(p)
}
