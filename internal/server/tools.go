package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

// detectionProperties are the optional overrides accepted by every tool
// that runs detection.
func detectionProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty(),
		"threshold_mode": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"global", "local"},
			"description": "global: fixed cut; local: mean + sigma*stddev over a sliding window",
		},
		"threshold": map[string]interface{}{
			"type":        "number",
			"description": "Pixel value a source pixel must exceed (global mode)",
		},
		"window": map[string]interface{}{
			"type":        "integer",
			"description": "Side length of the local statistics window in pixels (local mode)",
		},
		"sigma": map[string]interface{}{
			"type":        "number",
			"description": "Standard deviations above the local mean (local mode)",
		},
		"merge_margin": map[string]interface{}{
			"type":        "integer",
			"description": "Merge sources whose bounding boxes are at most this many pixels apart. -1 disables merging",
		},
		"min_size": map[string]interface{}{
			"type":        "integer",
			"description": "Drop sources with fewer member pixels",
		},
		"min_peak": map[string]interface{}{
			"type":        "number",
			"description": "Drop sources whose brightest pixel is below this value",
		},
		"wcs_path": map[string]interface{}{
			"type":        "string",
			"description": "Optional JSON coordinate header. Defaults to <path>.wcs.json when present, else pixel coordinates",
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_info",
			Description: "Load an image as an intensity grid and return its dimensions, format and pixel statistics.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "pixel_info",
			Description: "Read intensity values at one or more pixels, with their world coordinates when a coordinate header is available.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"points": map[string]interface{}{
						"type":        "array",
						"description": "Pixels to sample",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":     map[string]interface{}{"type": "integer"},
								"y":     map[string]interface{}{"type": "integer"},
								"label": map[string]interface{}{"type": "string"},
							},
							"required": []string{"x", "y"},
						},
					},
					"wcs_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional JSON coordinate header. Defaults to <path>.wcs.json when present",
					},
				},
				"required": []string{"path", "points"},
			},
		},
		{
			Name:        "sources_find",
			Description: "Detect sources (connected bright regions) and return each one's position, bounding box and flux measurements.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": detectionProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "sources_catalog",
			Description: "Detect sources and return the catalog as CSV text, optionally writing it to a file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(detectionProperties(), map[string]interface{}{
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file to write the CSV to",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "sources_annotate",
			Description: "Detect sources and return a Karma annotation file outlining each one. Sources whose outline is not a single loop are listed as warnings.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(detectionProperties(), map[string]interface{}{
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file to write the annotations to",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "sources_cutout",
			Description: "Detect sources and return the image with everything outside the sources (plus a margin) made transparent, as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(detectionProperties(), map[string]interface{}{
					"margin": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels to grow the source mask by. Defaults to the configured cutout margin",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "sources_stamp",
			Description: "Detect sources and return a postage stamp around one of them, as base64 PNG. Use this to zoom into a single detection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(detectionProperties(), map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "integer",
						"description": "Source ID as reported by sources_find",
					},
					"margin": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels of context around the bounding box. Default 5",
						"default":     5,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
				}),
				"required": []string{"path", "id"},
			},
		},
		{
			Name:        "sources_overlay",
			Description: "Detect sources and return a grayscale rendering with each source tinted and labelled by ID, as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(detectionProperties(), map[string]interface{}{
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
					"labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw source IDs. Default true",
						"default":     true,
					},
					"label_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color for labels (e.g., '#FFFF00')",
						"default":     "#FFFF00",
					},
				}),
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
