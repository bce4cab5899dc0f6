package output

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/sourcefinder/internal/boxset"
	"github.com/ironsheep/sourcefinder/internal/grid"
)

// OverlayOptions controls Overlay rendering.
type OverlayOptions struct {
	Scale      float64 // output size multiplier; values <= 0 mean 1
	Labels     bool    // draw each source's ID next to its box
	LabelColor string  // hex color for labels, e.g. "#ffff00"
	TintAlpha  float64 // 0..1 blend of source color over the image
}

// DefaultOverlayOptions labels sources in yellow with a half-strength tint.
func DefaultOverlayOptions() OverlayOptions {
	return OverlayOptions{
		Scale:      1,
		Labels:     true,
		LabelColor: "#ffff00",
		TintAlpha:  0.5,
	}
}

// SourceColor returns the palette color for a source ID. Hues step by the
// golden angle so neighbouring IDs are easy to tell apart.
func SourceColor(id int) colorful.Color {
	hue := math.Mod(float64(id)*137.508, 360)
	return colorful.Hsv(hue, 0.85, 1)
}

// Overlay renders g in grayscale with each region's member pixels tinted in
// its palette color. Invalid pixels are drawn black.
func Overlay(g *grid.Grid, regions []*boxset.BoxSet, opts OverlayOptions) (*image.NRGBA, error) {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.TintAlpha < 0 || opts.TintAlpha > 1 {
		return nil, fmt.Errorf("tint alpha must be in [0,1], got %v", opts.TintAlpha)
	}

	labelColor := color.NRGBA{R: 255, G: 255, A: 255}
	if opts.Labels && opts.LabelColor != "" {
		c, err := colorful.Hex(opts.LabelColor)
		if err != nil {
			return nil, fmt.Errorf("invalid label color %q: %w", opts.LabelColor, err)
		}
		r, gg, b := c.RGB255()
		labelColor = color.NRGBA{R: r, G: gg, B: b, A: 255}
	}

	img := Render(g)
	for i, p := range img.Pix {
		if i%4 == 3 && p == 0 {
			img.Pix[i] = 255
		}
	}

	for _, b := range regions {
		tint := SourceColor(b.ID())
		b.Pixels(func(x, y int) {
			base := img.NRGBAAt(x, y)
			bc := colorful.Color{R: float64(base.R) / 255, G: float64(base.G) / 255, B: float64(base.B) / 255}
			r, gg, bl := bc.BlendRgb(tint, opts.TintAlpha).Clamped().RGB255()
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: gg, B: bl, A: 255})
		})
	}

	if opts.Scale != 1 {
		w := int(math.Round(float64(g.Width) * opts.Scale))
		h := int(math.Round(float64(g.Height) * opts.Scale))
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("overlay scale %v too small for %dx%d image", opts.Scale, g.Width, g.Height)
		}
		img = imaging.Resize(img, w, h, imaging.NearestNeighbor)
	}

	if opts.Labels {
		for _, b := range regions {
			drawLabel(img, b.Bounds(), opts.Scale, strconv.Itoa(b.ID()), labelColor)
		}
	}
	return img, nil
}

// drawLabel writes text just above the region's box, or below it when the
// box touches the top edge.
func drawLabel(img *image.NRGBA, bb boxset.Bounds, scale float64, text string, c color.NRGBA) {
	face := basicfont.Face7x13
	x := int(float64(bb.X1) * scale)
	y := int(float64(bb.Y1)*scale) - 2
	if y-face.Ascent < 0 {
		y = int(float64(bb.Y2)*scale) + face.Ascent
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
