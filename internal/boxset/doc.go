// Package boxset provides the region value produced by source detection.
//
// A BoxSet couples a bounding box with an exact pixel membership mask and a
// stable integer identity. BoxSets are created by the search stage, merged
// by postprocessing and read by the output writers; once constructed a
// BoxSet is never mutated.
//
// # Coordinate System
//
// All coordinates are 0-based pixel indices in the source grid:
//   - X increases rightward, Y increases downward
//   - Bounds are half-open: (X1, Y1) inclusive, (X2, Y2) exclusive
//   - Pixel (i, j) is centred on (i, j); its corners lie at ±0.5
//
// Mask cells are local to the bounds: mask cell (0, 0) is grid pixel
// (X1, Y1).
//
// # Invariants
//
// Every BoxSet has at least one member pixel and its bounds are the tight
// bounding box of its members: no mask border row or column is all false.
// Constructors enforce this and return ErrShape otherwise.
//
// # Boundary Tracing
//
// Polygon and Annotation follow the pixel-edge ("crack") boundary of the
// mask. Members are 8-connected, so two pixels touching only at a corner
// belong to one outline. A mask whose boundary splits into more than one
// loop (a hole, or disjoint parts after a merge) returns
// ErrUntraceableBoundary; callers are expected to report it and move on.
package boxset
