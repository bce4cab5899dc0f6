package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ironsheep/sourcefinder/internal/config"
	"github.com/ironsheep/sourcefinder/internal/grid"
	"github.com/ironsheep/sourcefinder/internal/output"
	"github.com/ironsheep/sourcefinder/internal/pipeline"
	"github.com/ironsheep/sourcefinder/internal/search"
	"github.com/ironsheep/sourcefinder/internal/server"
	"github.com/ironsheep/sourcefinder/internal/wcs"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `sourcefinder - find sources in 2-D intensity images

Usage:
  sourcefinder [options] <image>    detect sources and write products
  sourcefinder mcp [-config file]   run the MCP server on stdin/stdout

Options:
`

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("sourcefinder %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	// Configure logging to stderr (stdout carries MCP traffic or the catalog)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if os.Getenv("SOURCEFINDER_LOG_LEVEL") == "debug" {
		log.Printf("sourcefinder v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	var err error
	if len(os.Args) > 1 && os.Args[1] == "mcp" {
		err = runServer(os.Args[2:])
	} else {
		err = run(os.Args[1:], os.Stdout, os.Stderr)
	}
	if err == flag.ErrHelp {
		return
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("sourcefinder mcp", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "JSON config file (default $"+config.EnvPath+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	return server.NewWithConfig(cfg, Version).Run()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadDefault()
	}
	return config.Load(path)
}

// options holds the command-line settings of a detection run.
type options struct {
	configPath  string
	wcsPath     string
	catalog     string
	annotations string
	cutout      string
	overlay     string

	mode         string
	threshold    float64
	window       int
	sigma        float64
	mergeMargin  int
	minSize      int
	minPeak      float64
	cutoutMargin int
	overlayScale float64
}

func newFlagSet(o *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("sourcefinder", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment variables:\n  %s=path    default config file\n  SOURCEFINDER_LOG_LEVEL=debug    enable debug logging\n", config.EnvPath)
	}

	def := config.DefaultConfig()
	fs.StringVar(&o.configPath, "config", "", "JSON config file (default $"+config.EnvPath+")")
	fs.StringVar(&o.wcsPath, "wcs", "", "JSON coordinate header (default <image>.wcs.json if present)")
	fs.StringVar(&o.catalog, "catalog", "", "write the CSV catalog to this file ('-' for stdout)")
	fs.StringVar(&o.annotations, "annotations", "", "write a Karma annotation file")
	fs.StringVar(&o.cutout, "cutout", "", "write a PNG cutout of the sources")
	fs.StringVar(&o.overlay, "overlay", "", "write a PNG overlay with labelled sources")

	fs.StringVar(&o.mode, "mode", string(def.ThresholdMode), "threshold mode: global or local")
	fs.Float64Var(&o.threshold, "threshold", def.Threshold, "global threshold")
	fs.IntVar(&o.window, "window", def.Window, "local statistics window size")
	fs.Float64Var(&o.sigma, "sigma", def.Sigma, "local threshold in standard deviations")
	fs.IntVar(&o.mergeMargin, "merge-margin", def.MergeMargin, "merge sources within this many pixels (-1 disables)")
	fs.IntVar(&o.minSize, "min-size", def.MinSize, "minimum source size in pixels")
	fs.Float64Var(&o.minPeak, "min-peak", 0, "minimum source peak value (unset: no floor)")
	fs.IntVar(&o.cutoutMargin, "cutout-margin", def.CutoutMargin, "pixels to grow the cutout mask by")
	fs.Float64Var(&o.overlayScale, "overlay-scale", def.OverlayScale, "overlay size multiplier")
	return fs
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(fs *flag.FlagSet, o *options, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.ThresholdMode = search.Mode(o.mode)
		case "threshold":
			cfg.Threshold = o.threshold
		case "window":
			cfg.Window = o.window
		case "sigma":
			cfg.Sigma = o.sigma
		case "merge-margin":
			cfg.MergeMargin = o.mergeMargin
		case "min-size":
			cfg.MinSize = o.minSize
		case "min-peak":
			peak := o.minPeak
			cfg.MinPeak = &peak
		case "cutout-margin":
			cfg.CutoutMargin = o.cutoutMargin
		case "overlay-scale":
			cfg.OverlayScale = o.overlayScale
		}
	})
}

func run(args []string, stdout, stderr io.Writer) error {
	var o options
	fs := newFlagSet(&o, stderr)
	if len(args) > 0 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		fs.Usage()
		return flag.ErrHelp
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one image path, got %d", fs.NArg())
	}
	imagePath := fs.Arg(0)

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	applyFlags(fs, &o, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	g, err := grid.NewCache().Load(imagePath)
	if err != nil {
		return err
	}

	sys, err := loadWCS(o.wcsPath, imagePath)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(g, cfg)
	if err != nil {
		return err
	}
	log.Printf("Found %d sources (%d before postprocessing) in %s", len(res.Sources), res.Raw, imagePath)

	if o.catalog == "" && o.annotations == "" && o.cutout == "" && o.overlay == "" {
		o.catalog = "-"
	}

	if o.catalog != "" {
		err := writeTo(o.catalog, stdout, func(w io.Writer) error {
			return output.WriteCatalog(w, res.Sources, g, sys, sys.BeamArea)
		})
		if err != nil {
			return err
		}
	}

	if o.annotations != "" {
		err := writeTo(o.annotations, stdout, func(w io.Writer) error {
			warnings, err := output.WriteAnnotations(w, res.Sources, sys)
			if len(warnings) > 0 {
				log.Printf("%d source outlines skipped", len(warnings))
			}
			return err
		})
		if err != nil {
			return err
		}
	}

	if o.cutout != "" {
		img, err := output.Cutout(g, res.Sources, cfg.CutoutMargin)
		if err != nil {
			return err
		}
		if err := writeTo(o.cutout, stdout, func(w io.Writer) error { return output.WritePNG(w, img) }); err != nil {
			return err
		}
	}

	if o.overlay != "" {
		opts := output.DefaultOverlayOptions()
		opts.Scale = cfg.OverlayScale
		img, err := output.Overlay(g, res.Sources, opts)
		if err != nil {
			return err
		}
		if err := writeTo(o.overlay, stdout, func(w io.Writer) error { return output.WritePNG(w, img) }); err != nil {
			return err
		}
	}
	return nil
}

func loadWCS(path, imagePath string) (*wcs.System, error) {
	if path != "" {
		return wcs.Load(path)
	}
	return wcs.LoadFor(imagePath)
}

// writeTo runs write against the named file, or stdout for "-".
func writeTo(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Printf("Wrote %s", path)
	return nil
}
