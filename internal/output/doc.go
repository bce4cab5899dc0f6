// Package output writes detection results.
//
// Four products are supported:
//
//   - Catalog: CSV with one row per source giving its centroid, bounding-box
//     corners and flux measurements. Positions pass through a
//     boxset.Transform, normally a wcs.System.
//   - Annotations: a Karma annotation file drawing each source's outline as
//     LINE records. Sources whose outline is not a single loop are reported
//     as warnings and skipped.
//   - Cutout: the image with everything outside the (grown) source mask
//     blanked, as a grid or a PNG with transparent background.
//   - Overlay: a grayscale PNG with sources tinted and labelled by ID.
//
// Example:
//
//	f, _ := os.Create("catalog.csv")
//	defer f.Close()
//	if err := output.WriteCatalog(f, regions, g, sys, sys.BeamArea); err != nil {
//	    log.Fatal(err)
//	}
package output
