package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"os"

	"github.com/ironsheep/sourcefinder/internal/boxset"
	"github.com/ironsheep/sourcefinder/internal/grid"
	"github.com/ironsheep/sourcefinder/internal/output"
	"github.com/ironsheep/sourcefinder/internal/pipeline"
	"github.com/ironsheep/sourcefinder/internal/search"
	"github.com/ironsheep/sourcefinder/internal/wcs"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "sources_find").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	case "image_info":
		return s.handleImageInfo(args)
	case "pixel_info":
		return s.handlePixelInfo(args)
	case "sources_find":
		return s.handleSourcesFind(args)
	case "sources_catalog":
		return s.handleSourcesCatalog(args)
	case "sources_annotate":
		return s.handleSourcesAnnotate(args)
	case "sources_cutout":
		return s.handleSourcesCutout(args)
	case "sources_overlay":
		return s.handleSourcesOverlay(args)
	case "sources_stamp":
		return s.handleSourcesStamp(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Detection ===

// detectArgs are the detection overrides shared by the sources_* tools.
// Nil fields keep the server's configured value.
type detectArgs struct {
	Path          string   `json:"path"`
	ThresholdMode *string  `json:"threshold_mode"`
	Threshold     *float64 `json:"threshold"`
	Window        *int     `json:"window"`
	Sigma         *float64 `json:"sigma"`
	MergeMargin   *int     `json:"merge_margin"`
	MinSize       *int     `json:"min_size"`
	MinPeak       *float64 `json:"min_peak"`
	WCSPath       string   `json:"wcs_path"`
}

// detection is the state shared by every sources_* handler.
type detection struct {
	grid   *grid.Grid
	result *pipeline.Result
	system *wcs.System
}

func (s *Server) detect(a detectArgs) (*detection, error) {
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	cfg := *s.cfg
	if a.ThresholdMode != nil {
		cfg.ThresholdMode = search.Mode(*a.ThresholdMode)
	}
	if a.Threshold != nil {
		cfg.Threshold = *a.Threshold
	}
	if a.Window != nil {
		cfg.Window = *a.Window
	}
	if a.Sigma != nil {
		cfg.Sigma = *a.Sigma
	}
	if a.MergeMargin != nil {
		cfg.MergeMargin = *a.MergeMargin
	}
	if a.MinSize != nil {
		cfg.MinSize = *a.MinSize
	}
	if a.MinPeak != nil {
		cfg.MinPeak = a.MinPeak
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	sys, err := s.loadWCS(a.Path, a.WCSPath)
	if err != nil {
		return nil, err
	}

	res, err := pipeline.Run(g, &cfg)
	if err != nil {
		return nil, err
	}
	return &detection{grid: g, result: res, system: sys}, nil
}

// loadWCS reads an explicit coordinate header, or the image's sidecar.
func (s *Server) loadWCS(imagePath, wcsPath string) (*wcs.System, error) {
	if wcsPath != "" {
		return wcs.Load(wcsPath)
	}
	return wcs.LoadFor(imagePath)
}

// === Image Information ===

type imageInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return grid.LoadInfo(s.cache, a.Path)
}

type pixelInfoArgs struct {
	Path    string       `json:"path"`
	Points  []grid.Point `json:"points"`
	WCSPath string       `json:"wcs_path"`
}

// PixelSample is a grid sample with its world coordinate.
type PixelSample struct {
	*grid.Sample
	WorldX float64 `json:"world_x"`
	WorldY float64 `json:"world_y"`
}

func (s *Server) handlePixelInfo(args json.RawMessage) (interface{}, error) {
	var a pixelInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if len(a.Points) == 0 {
		return nil, fmt.Errorf("at least one point is required")
	}

	g, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	sys, err := s.loadWCS(a.Path, a.WCSPath)
	if err != nil {
		return nil, err
	}
	samples, err := g.SampleMany(a.Points)
	if err != nil {
		return nil, err
	}

	out := make([]*PixelSample, len(samples))
	for i, smp := range samples {
		wx, wy := sys.PixelToWorld(float64(smp.X), float64(smp.Y))
		out[i] = &PixelSample{Sample: smp, WorldX: wx, WorldY: wy}
	}
	return map[string]interface{}{"samples": out}, nil
}

// === Source Handlers ===

// SourceResult is one measured source with its pixel bounding box.
type SourceResult struct {
	*output.Source
	Bounds boxset.Bounds `json:"bounds"`
}

// FindResult is the sources_find response.
type FindResult struct {
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	RawCount  int             `json:"raw_count"`
	Count     int             `json:"count"`
	BeamArea  float64         `json:"beam_area_pixels"`
	ElapsedMS float64         `json:"elapsed_ms"`
	Sources   []*SourceResult `json:"sources"`
}

func (s *Server) handleSourcesFind(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	d, err := s.detect(a)
	if err != nil {
		return nil, err
	}

	measured, err := output.MeasureAll(d.result.Sources, d.grid, d.system, d.system.BeamArea)
	if err != nil {
		return nil, err
	}
	sources := make([]*SourceResult, len(measured))
	for i, m := range measured {
		sources[i] = &SourceResult{Source: m, Bounds: d.result.Sources[i].Bounds()}
	}

	return &FindResult{
		Width:     d.grid.Width,
		Height:    d.grid.Height,
		RawCount:  d.result.Raw,
		Count:     len(sources),
		BeamArea:  d.system.BeamArea,
		ElapsedMS: float64(d.result.Elapsed.Microseconds()) / 1000,
		Sources:   sources,
	}, nil
}

// TextResult carries a generated text file.
type TextResult struct {
	Count      int              `json:"count"`
	Text       string           `json:"text"`
	OutputPath string           `json:"output_path,omitempty"`
	Warnings   []output.Warning `json:"warnings,omitempty"`
}

type textArgs struct {
	detectArgs
	OutputPath string `json:"output_path"`
}

func (s *Server) handleSourcesCatalog(args json.RawMessage) (interface{}, error) {
	var a textArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	d, err := s.detect(a.detectArgs)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := output.WriteCatalog(&buf, d.result.Sources, d.grid, d.system, d.system.BeamArea); err != nil {
		return nil, err
	}
	return finishText(&TextResult{Count: len(d.result.Sources), Text: buf.String()}, a.OutputPath)
}

func (s *Server) handleSourcesAnnotate(args json.RawMessage) (interface{}, error) {
	var a textArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	d, err := s.detect(a.detectArgs)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	warnings, err := output.WriteAnnotations(&buf, d.result.Sources, d.system)
	if err != nil {
		return nil, err
	}
	return finishText(&TextResult{Count: len(d.result.Sources), Text: buf.String(), Warnings: warnings}, a.OutputPath)
}

func finishText(r *TextResult, path string) (*TextResult, error) {
	if path == "" {
		return r, nil
	}
	if err := os.WriteFile(path, []byte(r.Text), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.OutputPath = path
	return r, nil
}

// ImageResult contains a rendered image.
type ImageResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Count       int    `json:"count"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

func encodeImage(img image.Image, count int) (*ImageResult, error) {
	var buf bytes.Buffer
	if err := output.WritePNG(&buf, img); err != nil {
		return nil, err
	}
	return &ImageResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		Count:       count,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

type cutoutArgs struct {
	detectArgs
	Margin *int `json:"margin"`
}

func (s *Server) handleSourcesCutout(args json.RawMessage) (interface{}, error) {
	var a cutoutArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	d, err := s.detect(a.detectArgs)
	if err != nil {
		return nil, err
	}

	margin := s.cfg.CutoutMargin
	if a.Margin != nil {
		margin = *a.Margin
	}
	img, err := output.Cutout(d.grid, d.result.Sources, margin)
	if err != nil {
		return nil, err
	}
	return encodeImage(img, len(d.result.Sources))
}

type overlayArgs struct {
	detectArgs
	Scale      float64 `json:"scale"`
	Labels     *bool   `json:"labels"`
	LabelColor string  `json:"label_color"`
}

func (s *Server) handleSourcesOverlay(args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	d, err := s.detect(a.detectArgs)
	if err != nil {
		return nil, err
	}

	opts := output.DefaultOverlayOptions()
	opts.Scale = s.cfg.OverlayScale
	if a.Scale != 0 {
		opts.Scale = a.Scale
	}
	if a.Labels != nil {
		opts.Labels = *a.Labels
	}
	if a.LabelColor != "" {
		opts.LabelColor = a.LabelColor
	}

	img, err := output.Overlay(d.grid, d.result.Sources, opts)
	if err != nil {
		return nil, err
	}
	return encodeImage(img, len(d.result.Sources))
}

type stampArgs struct {
	detectArgs
	ID     int     `json:"id"`
	Margin *int    `json:"margin"`
	Scale  float64 `json:"scale"`
}

func (s *Server) handleSourcesStamp(args json.RawMessage) (interface{}, error) {
	var a stampArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	d, err := s.detect(a.detectArgs)
	if err != nil {
		return nil, err
	}

	b := output.Find(d.result.Sources, a.ID)
	if b == nil {
		return nil, fmt.Errorf("no source with id %d (found %d sources)", a.ID, len(d.result.Sources))
	}
	margin := 5
	if a.Margin != nil {
		margin = *a.Margin
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	img, err := output.Stamp(d.grid, b, margin, a.Scale)
	if err != nil {
		return nil, err
	}
	return encodeImage(img, 1)
}
