package output

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/effect"

	"github.com/ironsheep/sourcefinder/internal/boxset"
	"github.com/ironsheep/sourcefinder/internal/grid"
)

// CutoutMask rasterises every region into one grid-sized mask and grows it
// by margin pixels in each direction, including diagonally.
func CutoutMask(g *grid.Grid, regions []*boxset.BoxSet, margin int) (*boxset.Mask, error) {
	if margin < 0 {
		return nil, fmt.Errorf("cutout margin must be >= 0, got %d", margin)
	}

	mask := boxset.NewMask(g.Width, g.Height)
	var union image.Rectangle
	for _, b := range regions {
		if err := b.Window(mask, image.Point{}); err != nil {
			return nil, fmt.Errorf("source %d: %w", b.ID(), err)
		}
		union = union.Union(b.Bounds().Rect())
	}
	if margin == 0 || mask.Count() == 0 {
		return mask, nil
	}

	// Growth never reaches past the union box plus margin.
	area := union.Inset(-margin).Intersect(g.Bounds())
	grown := growMask(mask, area, margin)
	for y := 0; y < area.Dy(); y++ {
		for x := 0; x < area.Dx(); x++ {
			if grown.GrayAt(x, y).Y > 0 {
				mask.Set(area.Min.X+x, area.Min.Y+y, true)
			}
		}
	}
	return mask, nil
}

// growMask dilates the part of mask inside area by steps pixels, one 3x3
// pass per step. The result is area-sized with its origin at area.Min.
func growMask(mask *boxset.Mask, area image.Rectangle, steps int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, area.Dx(), area.Dy()))
	for y := 0; y < area.Dy(); y++ {
		for x := 0; x < area.Dx(); x++ {
			if mask.At(area.Min.X+x, area.Min.Y+y) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	for i := 0; i < steps; i++ {
		d := effect.Dilate(img, 1)
		for p := range img.Pix {
			img.Pix[p] = d.Pix[4*p]
		}
	}
	return img
}

// CutoutGrid returns a copy of g with every pixel outside the grown source
// mask set to NaN.
func CutoutGrid(g *grid.Grid, regions []*boxset.BoxSet, margin int) (*grid.Grid, error) {
	mask, err := CutoutMask(g, regions, margin)
	if err != nil {
		return nil, err
	}

	out := grid.New(g.Width, g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if mask.At(x, y) {
				out.Set(x, y, g.At(x, y))
			} else {
				out.Set(x, y, math.NaN())
			}
		}
	}
	return out, nil
}

// Cutout renders the cutout grid. The grayscale stretch is taken from the
// full image so cutout brightness matches Render.
func Cutout(g *grid.Grid, regions []*boxset.BoxSet, margin int) (*image.NRGBA, error) {
	cut, err := CutoutGrid(g, regions, margin)
	if err != nil {
		return nil, err
	}

	return renderWith(cut, newStretch(g)), nil
}
