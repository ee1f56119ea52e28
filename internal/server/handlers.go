package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"time"

	dimaging "github.com/disintegration/imaging"

	"github.com/ironsheep/marker-tools-mcp/internal/analyzer"
	"github.com/ironsheep/marker-tools-mcp/internal/aruco"
	"github.com/ironsheep/marker-tools-mcp/internal/detection"
	"github.com/ironsheep/marker-tools-mcp/internal/frame"
	"github.com/ironsheep/marker-tools-mcp/internal/imaging"
)

// snapshotTimeout bounds how long marker_detect_frame waits for its JPEG.
const snapshotTimeout = 5 * time.Second

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "marker_detect").
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
		s.log.WithError(err).WithField("tool", params.Name).Info("Tool execution failed")
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
	switch name {
	// Image information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Marker detection
	case "marker_detect":
		return s.handleMarkerDetect(args)
	case "marker_detect_frame":
		return s.handleMarkerDetectFrame(args)
	case "marker_annotate":
		return s.handleMarkerAnnotate(args)

	// Dictionary
	case "marker_generate":
		return s.handleMarkerGenerate(args)
	case "marker_dictionary":
		return s.handleMarkerDictionary(args)

	// Diagnostics
	case "analyzer_stats":
		return s.handleAnalyzerStats(args)

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

// unmarshalArgs decodes tool arguments. Tools without required arguments
// accept an absent arguments object.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// === Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Marker Detection Handlers ===

type markerDetectArgs struct {
	Path       string `json:"path"`
	Rotation   int32  `json:"rotation"`
	RowPadding int    `json:"row_padding"`
}

// detectFile runs the file pipeline on the luma plane of the image at path.
func (s *Server) detectFile(path string, rotation int32, rowPadding int) (image.Image, detection.Result, error) {
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, detection.Result{}, err
	}
	buf, w, h, stride, err := imaging.LumaPlane(img, rowPadding)
	if err != nil {
		return nil, detection.Result{}, err
	}
	return img, s.files.Detect(buf, int32(w), int32(h), int32(stride), rotation), nil
}

func (s *Server) handleMarkerDetect(args json.RawMessage) (interface{}, error) {
	var a markerDetectArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	_, result, err := s.detectFile(a.Path, a.Rotation, a.RowPadding)
	if err != nil {
		return nil, err
	}
	return toWire(result), nil
}

type markerDetectFrameArgs struct {
	LumaBase64 string `json:"luma_base64"`
	Width      int32  `json:"width"`
	Height     int32  `json:"height"`
	RowStride  *int32 `json:"row_stride"`
	Rotation   int32  `json:"rotation"`
	Snapshot   bool   `json:"snapshot"`
}

type markerDetectFrameResult struct {
	wireResult
	SnapshotBase64 string `json:"snapshot_base64,omitempty"`
	SnapshotMime   string `json:"snapshot_mime_type,omitempty"`
}

// handleMarkerDetectFrame feeds a raw luma plane through the frame analyzer,
// the same path live camera frames take.
func (s *Server) handleMarkerDetectFrame(args json.RawMessage) (interface{}, error) {
	var a markerDetectFrameArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(a.LumaBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid luma_base64: %w", err)
	}
	stride := a.Width
	if a.RowStride != nil {
		stride = *a.RowStride
	}

	var snap chan []byte
	if a.Snapshot && frame.Validate(len(data), int(a.Width), int(a.Height), int(stride)) == nil {
		snap = make(chan []byte, 1)
		if err := s.analyzer.RequestSnapshot(func(jpeg []byte) { snap <- jpeg }); err != nil {
			return nil, err
		}
	}

	result := s.analyzer.Analyze(analyzer.Frame{
		Width:           int(a.Width),
		Height:          int(a.Height),
		RotationDegrees: int(a.Rotation),
		Planes:          []analyzer.Plane{{Data: data, RowStride: int(stride), PixelStride: 1}},
	})

	out := markerDetectFrameResult{wireResult: toWire(result)}
	if snap != nil {
		select {
		case jpeg := <-snap:
			out.SnapshotBase64 = base64.StdEncoding.EncodeToString(jpeg)
			out.SnapshotMime = "image/jpeg"
		case <-time.After(snapshotTimeout):
			return nil, fmt.Errorf("snapshot not ready after %s", snapshotTimeout)
		}
	}
	return out, nil
}

type markerAnnotateArgs struct {
	Path     string `json:"path"`
	Rotation int32  `json:"rotation"`
}

type markerAnnotateResult struct {
	Detection wireResult `json:"detection"`
	*imaging.EncodedImage
}

func (s *Server) handleMarkerAnnotate(args json.RawMessage) (interface{}, error) {
	var a markerAnnotateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	img, result, err := s.detectFile(a.Path, a.Rotation, 0)
	if err != nil {
		return nil, err
	}

	// Corners are in upright coordinates; draw on the upright image.
	switch frame.NormalizeRotation(int(a.Rotation)) {
	case frame.Rotate90:
		img = dimaging.Rotate270(img)
	case frame.Rotate180:
		img = dimaging.Rotate180(img)
	case frame.Rotate270:
		img = dimaging.Rotate90(img)
	}

	encoded, err := imaging.Annotate(img, result.Markers)
	if err != nil {
		return nil, err
	}
	return markerAnnotateResult{Detection: toWire(result), EncodedImage: encoded}, nil
}

// === Dictionary Handlers ===

type markerGenerateArgs struct {
	ID        *int `json:"id"`
	CellSize  int  `json:"cell_size"`
	QuietZone *int `json:"quiet_zone"`
}

type markerGenerateResult struct {
	ID         int    `json:"id"`
	Dictionary string `json:"dictionary"`
	*imaging.EncodedImage
}

func (s *Server) handleMarkerGenerate(args json.RawMessage) (interface{}, error) {
	var a markerGenerateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ID == nil {
		return nil, fmt.Errorf("id is required")
	}
	if a.CellSize == 0 {
		a.CellSize = 20
	}
	quiet := 1
	if a.QuietZone != nil {
		quiet = *a.QuietZone
	}

	img, err := aruco.Render(s.dict, *a.ID, a.CellSize, quiet)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return markerGenerateResult{ID: *a.ID, Dictionary: s.dict.Name, EncodedImage: encoded}, nil
}

type dictionaryEntry struct {
	ID    int      `json:"id"`
	Code  string   `json:"code"`
	Cells []string `json:"cells"`
}

type dictionaryResult struct {
	Name              string            `json:"name"`
	Size              int               `json:"size"`
	MarkerBits        int               `json:"marker_bits"`
	MinDistance       int               `json:"min_distance"`
	MaxCorrectionBits int               `json:"max_correction_bits"`
	Markers           []dictionaryEntry `json:"markers"`
}

func (s *Server) handleMarkerDictionary(args json.RawMessage) (interface{}, error) {
	d := s.dict
	out := dictionaryResult{
		Name:              d.Name,
		Size:              d.Len(),
		MarkerBits:        aruco.MarkerBits,
		MinDistance:       d.MinDistance,
		MaxCorrectionBits: d.MaxCorrectionBits,
		Markers:           make([]dictionaryEntry, 0, d.Len()),
	}
	for id := 0; id < d.Len(); id++ {
		code, err := d.Code(id)
		if err != nil {
			return nil, err
		}
		grid, err := d.Cells(id)
		if err != nil {
			return nil, err
		}
		e := dictionaryEntry{ID: id, Code: fmt.Sprintf("0x%04X", code)}
		for _, row := range grid {
			var line []byte
			for _, white := range row {
				if white {
					line = append(line, '1')
				} else {
					line = append(line, '0')
				}
			}
			e.Cells = append(e.Cells, string(line))
		}
		out.Markers = append(out.Markers, e)
	}
	return out, nil
}

// === Diagnostics Handlers ===

type analyzerStatsResult struct {
	Stats  analyzer.Stats `json:"stats"`
	Latest wireResult     `json:"latest"`
}

func (s *Server) handleAnalyzerStats(args json.RawMessage) (interface{}, error) {
	return analyzerStatsResult{
		Stats:  s.analyzer.Stats(),
		Latest: toWire(s.analyzer.Latest()),
	}, nil
}
