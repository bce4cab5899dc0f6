package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/sourcefinder/internal/boxset"
	"github.com/ironsheep/sourcefinder/internal/grid"
)

// catalogHeader is the column row of the catalog CSV.
var catalogHeader = []string{
	"ID", "x", "y", "x1", "y1", "x2", "y2",
	"Total Flux", "Integrated Flux", "Peak Flux", "Peak Flux (95 Percentile)",
}

// catalogUnits is the second header row; flux columns carry image units.
var catalogUnits = []string{
	"", "(degrees)", "(degrees)", "(degrees)", "(degrees)", "(degrees)", "(degrees)",
	"", "", "", "",
}

// Source is the measured record for one region.
type Source struct {
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
	Pixels int     `json:"pixels"`

	TotalFlux      float64 `json:"total_flux"`
	IntegratedFlux float64 `json:"integrated_flux"`
	PeakFlux       float64 `json:"peak_flux"`
	PeakFlux95     float64 `json:"peak_flux_95"`
}

// Measure computes the flux record of b over g. Positions are the region
// centroid and the two bounding-box corners, mapped through t. beamArea is
// the beam size in pixels; integrated flux is total flux divided by it.
func Measure(b *boxset.BoxSet, g *grid.Grid, t boxset.Transform, beamArea float64) (*Source, error) {
	cx, cy, err := b.Center()
	if err != nil {
		return nil, fmt.Errorf("source %d: %w", b.ID(), err)
	}

	values := make([]float64, 0, b.Size())
	b.Pixels(func(x, y int) {
		if v := g.At(x, y); grid.IsFinite(v) {
			values = append(values, v)
		}
	})
	if len(values) == 0 {
		return nil, fmt.Errorf("source %d: %w", b.ID(), boxset.ErrEmptyRegion)
	}
	sort.Float64s(values)

	total := 0.0
	for _, v := range values {
		total += v
	}
	if beamArea <= 0 {
		beamArea = 1
	}

	bb := b.Bounds()
	s := &Source{
		ID:             b.ID(),
		Pixels:         len(values),
		TotalFlux:      total,
		IntegratedFlux: total / beamArea,
		PeakFlux:       values[len(values)-1],
		PeakFlux95:     percentile(values, 0.95),
	}
	s.X, s.Y = t.PixelToWorld(cx, cy)
	s.X1, s.Y1 = t.PixelToWorld(float64(bb.X1), float64(bb.Y1))
	s.X2, s.Y2 = t.PixelToWorld(float64(bb.X2), float64(bb.Y2))
	return s, nil
}

// percentile returns the p-quantile of sorted values with linear
// interpolation between closest ranks, the numpy default. stat.LinInterp
// interpolates on p*n, so p is rescaled to land on (n-1)*p + 1.
func percentile(sorted []float64, p float64) float64 {
	n := float64(len(sorted))
	return stat.Quantile(math.Min(1, (p*(n-1)+1)/n), stat.LinInterp, sorted, nil)
}

// MeasureAll measures every region, stopping at the first failure.
func MeasureAll(regions []*boxset.BoxSet, g *grid.Grid, t boxset.Transform, beamArea float64) ([]*Source, error) {
	out := make([]*Source, 0, len(regions))
	for _, b := range regions {
		s, err := Measure(b, g, t, beamArea)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// WriteCatalog writes one CSV row per region after the header and units
// rows.
func WriteCatalog(w io.Writer, regions []*boxset.BoxSet, g *grid.Grid, t boxset.Transform, beamArea float64) error {
	sources, err := MeasureAll(regions, g, t, beamArea)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(catalogHeader); err != nil {
		return fmt.Errorf("failed to write catalog header: %w", err)
	}
	if err := cw.Write(catalogUnits); err != nil {
		return fmt.Errorf("failed to write catalog header: %w", err)
	}
	for _, s := range sources {
		if err := cw.Write(s.record()); err != nil {
			return fmt.Errorf("failed to write source %d: %w", s.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Source) record() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		strconv.Itoa(s.ID),
		f(s.X), f(s.Y), f(s.X1), f(s.Y1), f(s.X2), f(s.Y2),
		f(s.TotalFlux), f(s.IntegratedFlux), f(s.PeakFlux), f(s.PeakFlux95),
	}
}
