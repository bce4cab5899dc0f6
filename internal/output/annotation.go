package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/ironsheep/sourcefinder/internal/boxset"
)

const karmaHeader = "# KARMA ANNOTATION FILE\n\nCOORD W\nPA STANDARD\nCOLOR GREEN\n\n"

// Warning records a region whose outline could not be written.
type Warning struct {
	ID  int    `json:"id"`
	Err string `json:"error"`
}

func (w Warning) String() string {
	return fmt.Sprintf("source %d: %s", w.ID, w.Err)
}

// WriteAnnotations writes a Karma annotation file outlining every region.
//
// Regions whose boundary cannot be traced as a single loop are skipped,
// logged and returned as warnings; the remaining regions are still written.
// Any other error aborts the write.
func WriteAnnotations(w io.Writer, regions []*boxset.BoxSet, t boxset.Transform) ([]Warning, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(karmaHeader); err != nil {
		return nil, fmt.Errorf("failed to write annotation header: %w", err)
	}

	var warnings []Warning
	for _, b := range regions {
		lines, err := b.Annotation(t)
		if errors.Is(err, boxset.ErrUntraceableBoundary) {
			log.Printf("Skipping outline of source %d: %v", b.ID(), err)
			warnings = append(warnings, Warning{ID: b.ID(), Err: err.Error()})
			continue
		}
		if err != nil {
			return warnings, fmt.Errorf("source %d: %w", b.ID(), err)
		}
		for _, l := range lines {
			if _, err := bw.WriteString(l + "\n"); err != nil {
				return warnings, fmt.Errorf("failed to write annotation: %w", err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return warnings, fmt.Errorf("failed to write annotation: %w", err)
	}
	return warnings, nil
}
