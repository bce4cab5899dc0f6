package output

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/sourcefinder/internal/grid"
)

// stretch maps finite grid values linearly onto 0..255.
type stretch struct {
	lo, scale float64
}

func newStretch(g *grid.Grid) stretch {
	st := g.Stats()
	if st.Valid == 0 || st.Max <= st.Min {
		return stretch{lo: st.Min}
	}
	return stretch{lo: st.Min, scale: 255 / (st.Max - st.Min)}
}

func (s stretch) level(v float64) uint8 {
	l := (v - s.lo) * s.scale
	switch {
	case l <= 0:
		return 0
	case l >= 255:
		return 255
	}
	return uint8(l + 0.5)
}

// Render draws g as an 8-bit grayscale image stretched between its finite
// minimum and maximum. Invalid pixels are transparent.
func Render(g *grid.Grid) *image.NRGBA {
	return renderWith(g, newStretch(g))
}

func renderWith(g *grid.Grid, s stretch) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := g.At(x, y)
			if !grid.IsFinite(v) {
				continue
			}
			l := s.level(v)
			img.SetNRGBA(x, y, color.NRGBA{R: l, G: l, B: l, A: 255})
		}
	}
	return img
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}
