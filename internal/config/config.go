// Package config loads sourcefinder settings from JSON.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/ironsheep/sourcefinder/internal/postprocess"
	"github.com/ironsheep/sourcefinder/internal/search"
)

// EnvPath names the environment variable holding the default config path.
const EnvPath = "SOURCEFINDER_CONFIG"

// Config holds detection and output parameters.
// Fields may be loaded from a JSON file and overridden by command-line flags.
type Config struct {
	// Detection parameters
	ThresholdMode search.Mode `json:"threshold_mode"`
	Threshold     float64     `json:"threshold"`
	Window        int         `json:"window"`
	Sigma         float64     `json:"sigma"`

	// Postprocessing. MinPeak unset means no peak floor.
	MergeMargin int      `json:"merge_margin"`
	MinSize     int      `json:"min_size"`
	MinPeak     *float64 `json:"min_peak,omitempty"`

	// Output
	CutoutMargin int     `json:"cutout_margin"`
	OverlayScale float64 `json:"overlay_scale"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	s := search.DefaultConfig()
	p := postprocess.DefaultConfig()
	return &Config{
		ThresholdMode: s.Mode,
		Threshold:     s.Threshold,
		Window:        s.Window,
		Sigma:         s.Sigma,
		MergeMargin:   p.MergeMargin,
		MinSize:       p.MinSize,
		CutoutMargin:  3,
		OverlayScale:  1,
	}
}

// Validate clamps values to safe ranges. It fails only on settings that
// have no sensible replacement.
func (c *Config) Validate() error {
	if c.ThresholdMode == "" {
		c.ThresholdMode = search.Global
	}
	if c.ThresholdMode != search.Global && c.ThresholdMode != search.Local {
		return fmt.Errorf("unknown threshold mode %q", c.ThresholdMode)
	}
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
		return fmt.Errorf("threshold must be finite, got %v", c.Threshold)
	}
	if c.Window <= 0 {
		c.Window = search.DefaultConfig().Window
	}
	if c.Sigma < 0 || math.IsNaN(c.Sigma) {
		c.Sigma = search.DefaultConfig().Sigma
	}
	if c.MergeMargin < -1 {
		c.MergeMargin = -1
	}
	if c.MinSize < 1 {
		c.MinSize = 1
	}
	if c.MinPeak != nil && math.IsNaN(*c.MinPeak) {
		c.MinPeak = nil
	}
	if c.CutoutMargin < 0 {
		c.CutoutMargin = 0
	}
	if c.OverlayScale <= 0 {
		c.OverlayScale = 1
	}
	return nil
}

// SearchConfig returns the detection parameters.
func (c *Config) SearchConfig() search.Config {
	return search.Config{
		Mode:      c.ThresholdMode,
		Threshold: c.Threshold,
		Window:    c.Window,
		Sigma:     c.Sigma,
	}
}

// PostprocessConfig returns the merge and filter parameters.
func (c *Config) PostprocessConfig() postprocess.Config {
	p := postprocess.Config{
		MergeMargin: c.MergeMargin,
		MinSize:     c.MinSize,
		MinPeak:     math.Inf(-1),
	}
	if c.MinPeak != nil {
		p.MinPeak = *c.MinPeak
	}
	return p
}

// Load reads configuration from the given JSON file path. If the file does
// not exist it returns DefaultConfig(). Fields missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads the file named by SOURCEFINDER_CONFIG, or returns
// defaults when the variable is unset.
func LoadDefault() (*Config, error) {
	path := getEnv(EnvPath, "")
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
