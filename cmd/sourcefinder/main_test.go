package main

import (
	"bytes"
	"flag"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/sourcefinder/internal/config"
)

// writeField writes a 20x20 grayscale PNG with two bright 2x2 sources.
func writeField(t *testing.T, dir string) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 20, 20))
	for _, p := range []image.Point{{3, 3}, {14, 12}} {
		for y := p.Y; y < p.Y+2; y++ {
			for x := p.X; x < p.X+2; x++ {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	path := filepath.Join(dir, "field.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestRun_CatalogToStdout(t *testing.T) {
	t.Setenv(config.EnvPath, "")
	path := writeField(t, t.TempDir())

	var stdout bytes.Buffer
	if err := run([]string{path}, &stdout, io.Discard); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("catalog lines: got %d, want 4:\n%s", len(lines), stdout.String())
	}
	if !strings.HasPrefix(lines[0], "ID,x,y,") {
		t.Errorf("header: got %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "1,3.5,3.5,") {
		t.Errorf("first source: got %q", lines[2])
	}
}

func TestRun_AllProducts(t *testing.T) {
	t.Setenv(config.EnvPath, "")
	dir := t.TempDir()
	path := writeField(t, dir)

	out := func(name string) string { return filepath.Join(dir, name) }
	args := []string{
		"-catalog", out("cat.csv"),
		"-annotations", out("field.ann"),
		"-cutout", out("cutout.png"),
		"-overlay", out("overlay.png"),
		"-overlay-scale", "2",
		path,
	}

	var stdout bytes.Buffer
	if err := run(args, &stdout, io.Discard); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("nothing should go to stdout when files are given, got %q", stdout.String())
	}

	for _, name := range []string{"cat.csv", "field.ann", "cutout.png", "overlay.png"} {
		info, err := os.Stat(out(name))
		if err != nil {
			t.Errorf("%s not written: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}

	f, err := os.Open(out("overlay.png"))
	if err != nil {
		t.Fatalf("failed to open overlay: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("overlay is not a PNG: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 40 {
		t.Errorf("overlay size: got %dx%d, want 40x40", cfg.Width, cfg.Height)
	}
}

func TestRun_FlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeField(t, dir)

	cfgPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(cfgPath, []byte(`{"merge_margin": 20}`), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(config.EnvPath, cfgPath)

	tests := []struct {
		name string
		args []string
		rows int
	}{
		{"config merges", []string{path}, 3},
		{"flag disables merge", []string{"-merge-margin", "-1", path}, 4},
		{"peak floor", []string{"-min-peak", "2", path}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			if err := run(tt.args, &stdout, io.Discard); err != nil {
				t.Fatalf("run failed: %v", err)
			}
			lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
			if len(lines) != tt.rows {
				t.Errorf("catalog lines: got %d, want %d", len(lines), tt.rows)
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	t.Setenv(config.EnvPath, "")
	path := writeField(t, t.TempDir())

	tests := []struct {
		name string
		args []string
	}{
		{"no image", []string{}},
		{"two images", []string{path, path}},
		{"missing image", []string{"/nonexistent/field.png"}},
		{"bad mode", []string{"-mode", "otsu", path}},
		{"unknown flag", []string{"-frobnicate", path}},
		{"missing wcs", []string{"-wcs", "/nonexistent/wcs.json", path}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(tt.args, io.Discard, io.Discard); err == nil {
				t.Error("run should fail")
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	var stderr bytes.Buffer
	err := run([]string{"--help"}, io.Discard, &stderr)
	if err != flag.ErrHelp {
		t.Errorf("got %v, want flag.ErrHelp", err)
	}
	if !strings.Contains(stderr.String(), "sourcefinder mcp") {
		t.Errorf("usage should mention the mcp subcommand, got %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "-merge-margin") {
		t.Error("usage should list flags")
	}
}
