package output

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/sourcefinder/internal/boxset"
	"github.com/ironsheep/sourcefinder/internal/grid"
)

// Stamp renders a postage stamp around one source: its bounding box grown
// by margin pixels and clipped to the grid, scaled by scale. The grayscale
// stretch comes from the full grid.
func Stamp(g *grid.Grid, b *boxset.BoxSet, margin int, scale float64) (*image.NRGBA, error) {
	if margin < 0 {
		return nil, fmt.Errorf("stamp margin must be >= 0, got %d", margin)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("stamp scale must be > 0, got %v", scale)
	}

	bb := b.Bounds()
	rect := image.Rect(bb.X1-margin, bb.Y1-margin, bb.X2+margin, bb.Y2+margin).Intersect(g.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("source %d lies outside the %dx%d grid", b.ID(), g.Width, g.Height)
	}

	stamp := imaging.Crop(Render(g), rect)
	if scale != 1 {
		w := int(float64(rect.Dx())*scale + 0.5)
		h := int(float64(rect.Dy())*scale + 0.5)
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("stamp scale %v too small", scale)
		}
		stamp = imaging.Resize(stamp, w, h, imaging.NearestNeighbor)
	}
	return stamp, nil
}

// Find returns the region with the given ID, or nil.
func Find(regions []*boxset.BoxSet, id int) *boxset.BoxSet {
	for _, b := range regions {
		if b.ID() == id {
			return b
		}
	}
	return nil
}
