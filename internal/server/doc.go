// Package server implements the MCP (Model Context Protocol) server for
// source detection.
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods are initialize, tools/list, tools/call and ping.
//
// # Available Tools
//
//   - image_info: load an image and report size, format and pixel statistics
//   - pixel_info: intensity and world coordinate at chosen pixels
//   - sources_find: detect sources and return positions and fluxes as JSON
//   - sources_catalog: the same measurements as CSV text
//   - sources_annotate: Karma annotation outlines
//   - sources_cutout: PNG of the image restricted to the sources
//   - sources_overlay: PNG with sources tinted and labelled
//   - sources_stamp: PNG zoomed on a single source
//
// Every sources_* tool accepts the detection settings (threshold_mode,
// threshold, window, sigma, merge_margin, min_size, min_peak) as optional
// overrides of the server's configuration, plus an optional wcs_path.
//
// # Image Caching
//
// Loaded grids are cached by path for the lifetime of the server, so
// repeated calls on one image with different settings skip decoding.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and the Go error string in data. Malformed request lines get a
// -32700 parse error.
package server
