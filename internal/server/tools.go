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

func rotationProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Clockwise rotation that makes the image upright: 0, 90, 180 or 270. Other values are treated as 0. Default 0",
		"default":     0,
	}
}

// GetToolDefinitions returns all available tools. The server builds the list
// once and serves the same value to every tools/list request.
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image information
		{
			Name:        "image_load",
			Description: "Load an image file and return its upright dimensions, format and whether it is grayscale.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file after EXIF orientation.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Marker detection
		{
			Name:        "marker_detect",
			Description: "Detect 4x4 fiducial markers in an image file. Returns each marker's id, centre, four corners (clockwise from the marker's top-left) and confidence, plus the detection time and the frame size after rotation. Invalid input returns an empty result with a 0x0 frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     pathProperty(),
					"rotation": rotationProperty(),
					"row_padding": map[string]interface{}{
						"type":        "integer",
						"description": "Bytes of padding to add after each row of the luma buffer, to simulate camera row strides. Default 0",
						"default":     0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "marker_detect_frame",
			Description: "Detect markers in a raw 8-bit luma plane, exactly as a camera frame is analyzed. Malformed geometry or a short buffer returns an empty result instead of an error. Optionally returns a JPEG snapshot of the frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"luma_base64": map[string]interface{}{
						"type":        "string",
						"description": "Base64-encoded luma bytes, row after row",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Frame width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Frame height in pixels",
					},
					"row_stride": map[string]interface{}{
						"type":        "integer",
						"description": "Bytes between the starts of consecutive rows. Default: width",
					},
					"rotation": rotationProperty(),
					"snapshot": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the frame as a base64 JPEG. Default false",
						"default":     false,
					},
				},
				"required": []string{"luma_base64", "width", "height"},
			},
		},
		{
			Name:        "marker_annotate",
			Description: "Detect markers in an image file and return the upright image as base64 PNG with each marker outlined, its centre marked and its id drawn at corner 0.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     pathProperty(),
					"rotation": rotationProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Dictionary
		{
			Name:        "marker_generate",
			Description: "Render a printable marker from the built-in dictionary as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "integer",
						"description": "Marker id (0-49)",
					},
					"cell_size": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels per grid cell. Default 20",
						"default":     20,
					},
					"quiet_zone": map[string]interface{}{
						"type":        "integer",
						"description": "White margin around the marker, in cells. Default 1",
						"default":     1,
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "marker_dictionary",
			Description: "Describe the built-in marker dictionary: name, size, Hamming distance, error correction and every code's cell pattern (1 = white).",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Diagnostics
		{
			Name:        "analyzer_stats",
			Description: "Frame analyzer counters (frames, empty, tracking, slow, last and max time) and the latest frame result.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}
