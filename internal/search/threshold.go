package search

import (
	"fmt"
	"math"

	"github.com/ironsheep/sourcefinder/internal/grid"
	"github.com/ironsheep/sourcefinder/internal/integral"
)

// Mode selects how the per-pixel threshold is established.
type Mode string

const (
	// Global applies Config.Threshold to every pixel.
	Global Mode = "global"

	// Local uses mean + Sigma·stddev over a Window×Window box centred on
	// each pixel, computed from the integral image.
	Local Mode = "local"
)

// Config holds search parameters.
type Config struct {
	// Mode is Global or Local. Empty means Global.
	Mode Mode `json:"mode"`

	// Threshold is the fixed cut for Global mode. Ignored in Local mode.
	Threshold float64 `json:"threshold"`

	// Window is the side length of the local statistics box (Local mode).
	Window int `json:"window"`

	// Sigma is the number of local standard deviations above the local mean
	// a pixel must reach (Local mode).
	Sigma float64 `json:"sigma"`
}

// DefaultConfig returns a global threshold of 0.5.
func DefaultConfig() Config {
	return Config{
		Mode:      Global,
		Threshold: 0.5,
		Window:    51,
		Sigma:     5,
	}
}

// Validate reports configuration that cannot drive a search.
func (c Config) Validate() error {
	switch c.Mode {
	case Global, "":
		if math.IsNaN(c.Threshold) {
			return fmt.Errorf("threshold must be a number")
		}
	case Local:
		if c.Window < 1 {
			return fmt.Errorf("local window must be at least 1, got %d", c.Window)
		}
		if math.IsNaN(c.Sigma) || c.Sigma < 0 {
			return fmt.Errorf("local sigma must be non-negative, got %v", c.Sigma)
		}
	default:
		return fmt.Errorf("unknown threshold mode: %q", c.Mode)
	}
	return nil
}

// thresholder decides whether a single pixel qualifies.
type thresholder interface {
	qualifies(x, y int) bool
}

type globalThreshold struct {
	g   *grid.Grid
	cut float64
}

func (t globalThreshold) qualifies(x, y int) bool {
	v := t.g.At(x, y)
	return grid.IsFinite(v) && v > t.cut
}

type localThreshold struct {
	g      *grid.Grid
	ii     *integral.Image
	window int
	sigma  float64
}

func (t localThreshold) qualifies(x, y int) bool {
	v := t.g.At(x, y)
	if !grid.IsFinite(v) {
		return false
	}
	x1, y1, x2, y2 := t.ii.Window(x, y, t.window)
	mean, std, err := t.ii.MeanStdDev(x1, y1, x2, y2)
	if err != nil {
		// The window contains (x, y), which is finite, so this only
		// happens for a corrupted integral image.
		return false
	}
	return v > mean+t.sigma*std
}

func newThresholder(g *grid.Grid, cfg Config) thresholder {
	if cfg.Mode == Local {
		return localThreshold{
			g:      g,
			ii:     integral.New(g),
			window: cfg.Window,
			sigma:  cfg.Sigma,
		}
	}
	return globalThreshold{g: g, cut: cfg.Threshold}
}
