package output

import (
	"bytes"
	"image"
	"strings"
	"testing"

	"github.com/ironsheep/sourcefinder/internal/boxset"
)

func TestWriteAnnotations(t *testing.T) {
	single, _ := boxset.FromPixels(1, []image.Point{{2, 3}})
	ring, _ := boxset.FromPixels(2, []image.Point{
		{10, 10}, {11, 10}, {12, 10},
		{10, 11}, {12, 11},
		{10, 12}, {11, 12}, {12, 12},
	})
	bar, _ := boxset.FromPixels(3, []image.Point{{0, 20}, {1, 20}, {2, 20}})

	var buf bytes.Buffer
	warnings, err := WriteAnnotations(&buf, []*boxset.BoxSet{single, ring, bar}, identity)
	if err != nil {
		t.Fatalf("WriteAnnotations failed: %v", err)
	}

	if len(warnings) != 1 || warnings[0].ID != 2 {
		t.Errorf("warnings: got %v, want one for source 2", warnings)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "# KARMA ANNOTATION FILE\n\nCOORD W\nPA STANDARD\nCOLOR GREEN\n\n") {
		t.Errorf("missing Karma header, got %q", out)
	}

	lines := 0
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "LINE ") {
			lines++
		}
	}
	if lines != 8 {
		t.Errorf("LINE records: got %d, want 8", lines)
	}
	if !strings.Contains(out, "LINE 1.50000000 2.50000000 2.50000000 2.50000000\n") {
		t.Error("missing first edge of source 1")
	}
}

func TestWriteAnnotations_Empty(t *testing.T) {
	var buf bytes.Buffer
	warnings, err := WriteAnnotations(&buf, nil, identity)
	if err != nil {
		t.Fatalf("WriteAnnotations failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings: got %v, want none", warnings)
	}
	if buf.String() != karmaHeader {
		t.Errorf("got %q, want header only", buf.String())
	}
}
