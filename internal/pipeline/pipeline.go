// Package pipeline runs source detection end to end on a loaded grid.
package pipeline

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ironsheep/sourcefinder/internal/boxset"
	"github.com/ironsheep/sourcefinder/internal/config"
	"github.com/ironsheep/sourcefinder/internal/grid"
	"github.com/ironsheep/sourcefinder/internal/postprocess"
	"github.com/ironsheep/sourcefinder/internal/search"
)

// Result is the outcome of one detection run.
type Result struct {
	Raw     int              // regions found by the search stage
	Sources []*boxset.BoxSet // final regions, sorted by ID
	Elapsed time.Duration
}

// Run searches g for sources and postprocesses them.
func Run(g *grid.Grid, cfg *config.Config) (*Result, error) {
	start := time.Now()

	raw, err := search.Run(g, cfg.SearchConfig())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	debugf("search: %d regions (%s threshold)", len(raw), cfg.ThresholdMode)

	final := postprocess.Run(g, raw, cfg.PostprocessConfig())
	debugf("postprocess: %d sources after merge and filter", len(final))

	return &Result{
		Raw:     len(raw),
		Sources: final,
		Elapsed: time.Since(start),
	}, nil
}

func debugf(format string, args ...interface{}) {
	if os.Getenv("SOURCEFINDER_LOG_LEVEL") == "debug" {
		log.Printf(format, args...)
	}
}
