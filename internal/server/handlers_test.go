package server

import (
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/marker-tools-mcp/internal/aruco"
	"github.com/ironsheep/marker-tools-mcp/internal/detection"
)

// createMarkerScene renders marker id (20px cells, no quiet zone) onto a white
// 320x240 canvas at (100,60).
func createMarkerScene(t *testing.T, id int) *image.Gray {
	t.Helper()
	m, err := aruco.Render(aruco.Dictionary4x4x50(), id, 20, 0)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	img := image.NewGray(image.Rect(0, 0, 320, 240))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	for y := 0; y < 120; y++ {
		for x := 0; x < 120; x++ {
			img.SetGray(100+x, 60+y, m.GrayAt(x, y))
		}
	}
	return img
}

func writeTestPNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and decodes the text content into out.
func callTool(t *testing.T, s *Server, name string, args interface{}, out interface{}) *MCPError {
	t.Helper()
	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp.Error
	}

	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(content[0]["text"].(string)), out); err != nil {
			t.Fatalf("failed to decode tool result: %v", err)
		}
	}
	return nil
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New(nil)
	path := writeTestPNG(t, createMarkerScene(t, 1))

	var info map[string]interface{}
	if e := callTool(t, s, "image_load", map[string]interface{}{"path": path}, &info); e != nil {
		t.Fatalf("unexpected error: %+v", e)
	}
	if info["width"] != float64(320) || info["height"] != float64(240) || info["grayscale"] != true {
		t.Errorf("unexpected info: %v", info)
	}

	var dims map[string]interface{}
	if e := callTool(t, s, "image_dimensions", map[string]interface{}{"path": path}, &dims); e != nil {
		t.Fatalf("unexpected error: %+v", e)
	}
	if dims["width"] != float64(320) || dims["height"] != float64(240) {
		t.Errorf("unexpected dimensions: %v", dims)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := New(nil)

	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`"bad"`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("invalid params: got %+v, want -32602", resp.Error)
	}

	tests := []struct {
		name string
		tool string
		args interface{}
	}{
		{"unknown tool", "nonexistent_tool", map[string]interface{}{}},
		{"missing file", "marker_detect", map[string]interface{}{"path": "/nonexistent/image.png"}},
		{"wrong argument type", "marker_detect", map[string]interface{}{"path": 7}},
		{"bad base64", "marker_detect_frame", map[string]interface{}{"luma_base64": "%%%", "width": 2, "height": 2}},
		{"generate without id", "marker_generate", map[string]interface{}{}},
		{"generate unknown id", "marker_generate", map[string]interface{}{"id": 99}},
		{"negative padding", "marker_detect", map[string]interface{}{"path": "x.png", "row_padding": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := callTool(t, s, tt.tool, tt.args, nil)
			if e == nil {
				t.Fatal("expected error")
			}
			if e.Code != -32000 {
				t.Errorf("code: got %d, want -32000", e.Code)
			}
		})
	}
}

func TestHandleMarkerDetect(t *testing.T) {
	s := New(nil)
	path := writeTestPNG(t, createMarkerScene(t, 7))

	for _, padding := range []int{0, 13} {
		var got wireResult
		if e := callTool(t, s, "marker_detect", map[string]interface{}{"path": path, "row_padding": padding}, &got); e != nil {
			t.Fatalf("unexpected error: %+v", e)
		}
		if got.FrameWidth != 320 || got.FrameHeight != 240 {
			t.Errorf("padding %d: frame %dx%d, want 320x240", padding, got.FrameWidth, got.FrameHeight)
		}
		if got.MarkerCount != 1 || !got.IsTracking || got.Markers[0].ID != 7 {
			t.Fatalf("padding %d: got %+v, want marker 7", padding, got)
		}
		m := got.Markers[0]
		if m.CenterX < 158 || m.CenterX > 161 || m.CenterY < 118 || m.CenterY > 121 {
			t.Errorf("padding %d: centre (%v,%v), want near (159.5,119.5)", padding, m.CenterX, m.CenterY)
		}
		if m.Confidence != 1 {
			t.Errorf("confidence: got %v, want 1", m.Confidence)
		}
	}
}

func TestHandleMarkerDetect_Rotation(t *testing.T) {
	s := New(nil)
	path := writeTestPNG(t, createMarkerScene(t, 7))

	var got wireResult
	if e := callTool(t, s, "marker_detect", map[string]interface{}{"path": path, "rotation": 90}, &got); e != nil {
		t.Fatalf("unexpected error: %+v", e)
	}
	if got.FrameWidth != 240 || got.FrameHeight != 320 {
		t.Errorf("frame: got %dx%d, want 240x320", got.FrameWidth, got.FrameHeight)
	}
	if got.MarkerCount != 1 || got.Markers[0].ID != 7 {
		t.Errorf("got %+v, want marker 7", got.Markers)
	}
}

func TestHandleMarkerDetectFrame(t *testing.T) {
	s := New(nil)
	scene := createMarkerScene(t, 12)

	// Pad every row by 16 bytes, leaving the last row unpadded.
	const stride = 336
	buf := make([]byte, 239*stride+320)
	for y := 0; y < 240; y++ {
		copy(buf[y*stride:], scene.Pix[y*scene.Stride:y*scene.Stride+320])
	}

	var got markerDetectFrameResult
	args := map[string]interface{}{
		"luma_base64": base64.StdEncoding.EncodeToString(buf),
		"width":       320,
		"height":      240,
		"row_stride":  stride,
		"snapshot":    true,
	}
	if e := callTool(t, s, "marker_detect_frame", args, &got); e != nil {
		t.Fatalf("unexpected error: %+v", e)
	}
	if got.MarkerCount != 1 || got.Markers[0].ID != 12 {
		t.Errorf("got %+v, want marker 12", got.Markers)
	}
	if got.SnapshotMime != "image/jpeg" || got.SnapshotBase64 == "" {
		t.Error("snapshot missing")
	}

	var stats analyzerStatsResult
	if e := callTool(t, s, "analyzer_stats", nil, &stats); e != nil {
		t.Fatalf("unexpected error: %+v", e)
	}
	if stats.Stats.Frames != 1 || stats.Stats.TrackingFrames != 1 {
		t.Errorf("stats: got %+v", stats.Stats)
	}
	if stats.Latest.MarkerCount != 1 {
		t.Errorf("latest: got %+v", stats.Latest)
	}
}

func TestHandleMarkerDetectFrame_MalformedIsEmpty(t *testing.T) {
	s := New(nil)
	empty := toWire(detection.Empty())

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"one byte short", map[string]interface{}{
			"luma_base64": base64.StdEncoding.EncodeToString(make([]byte, 99)), "width": 10, "height": 10,
		}},
		{"stride below width", map[string]interface{}{
			"luma_base64": base64.StdEncoding.EncodeToString(make([]byte, 100)), "width": 10, "height": 10, "row_stride": 9,
		}},
		{"zero height", map[string]interface{}{
			"luma_base64": base64.StdEncoding.EncodeToString(make([]byte, 100)), "width": 10, "height": 0,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["snapshot"] = true
			var got markerDetectFrameResult
			if e := callTool(t, s, "marker_detect_frame", tt.args, &got); e != nil {
				t.Fatalf("unexpected error: %+v", e)
			}
			if diff := cmp.Diff(empty, got.wireResult); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
			if got.SnapshotBase64 != "" {
				t.Error("malformed frame produced a snapshot")
			}
		})
	}
}

func TestHandleMarkerAnnotate(t *testing.T) {
	s := New(nil)
	path := writeTestPNG(t, createMarkerScene(t, 3))

	var got struct {
		Detection   wireResult `json:"detection"`
		Width       int        `json:"width"`
		Height      int        `json:"height"`
		ImageBase64 string     `json:"image_base64"`
	}
	if e := callTool(t, s, "marker_annotate", map[string]interface{}{"path": path, "rotation": 270}, &got); e != nil {
		t.Fatalf("unexpected error: %+v", e)
	}
	if got.Detection.MarkerCount != 1 || got.Detection.Markers[0].ID != 3 {
		t.Errorf("detection: got %+v", got.Detection)
	}
	if got.Width != 240 || got.Height != 320 {
		t.Errorf("annotated image: got %dx%d, want 240x320", got.Width, got.Height)
	}
	if _, err := base64.StdEncoding.DecodeString(got.ImageBase64); err != nil {
		t.Errorf("invalid base64: %v", err)
	}
}

func TestHandleMarkerGenerate(t *testing.T) {
	s := New(nil)

	var got markerGenerateResult
	if e := callTool(t, s, "marker_generate", map[string]interface{}{"id": 0, "cell_size": 5, "quiet_zone": 0}, &got); e != nil {
		t.Fatalf("unexpected error: %+v", e)
	}
	if got.ID != 0 || got.Dictionary != s.dict.Name {
		t.Errorf("got id %d dictionary %q", got.ID, got.Dictionary)
	}
	if got.EncodedImage == nil || got.Width != 30 || got.Height != 30 {
		t.Fatalf("unexpected image: %+v", got.EncodedImage)
	}

	data, err := base64.StdEncoding.DecodeString(got.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	path := filepath.Join(t.TempDir(), "marker.png")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write marker: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open marker: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if c := color.GrayModel.Convert(img.At(2, 2)).(color.Gray); c.Y != 0 {
		t.Errorf("border pixel: got %d, want 0", c.Y)
	}

	var defaults markerGenerateResult
	if e := callTool(t, s, "marker_generate", map[string]interface{}{"id": 1}, &defaults); e != nil {
		t.Fatalf("unexpected error: %+v", e)
	}
	if defaults.Width != 160 {
		t.Errorf("default size: got %d, want 160", defaults.Width)
	}
}

func TestHandleMarkerDictionary(t *testing.T) {
	s := New(nil)

	var got dictionaryResult
	if e := callTool(t, s, "marker_dictionary", nil, &got); e != nil {
		t.Fatalf("unexpected error: %+v", e)
	}
	if got.Size != 50 || len(got.Markers) != 50 || got.MarkerBits != 4 {
		t.Fatalf("unexpected dictionary: size=%d markers=%d bits=%d", got.Size, len(got.Markers), got.MarkerBits)
	}
	want := dictionaryEntry{ID: 0, Code: "0x9E37", Cells: []string{"1001", "1110", "0011", "0111"}}
	if diff := cmp.Diff(want, got.Markers[0]); diff != "" {
		t.Errorf("marker 0 mismatch (-want +got):\n%s", diff)
	}
}

func TestToWire_EmptySentinel(t *testing.T) {
	data, err := json.Marshal(toWire(detection.Empty()))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"markers":[],"detectionTimeMs":0,"frameWidth":0,"frameHeight":0,"isTracking":false,"markerCount":0}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestToWire_Marker(t *testing.T) {
	corners := [4]detection.Point2D{{X: 10, Y: 10}, {X: 30, Y: 10}, {X: 30, Y: 30}, {X: 10, Y: 30}}
	r := detection.Build([]detection.DetectedMarker{{
		ID: 7, Center: detection.CenterOf(corners), Corners: corners, Confidence: detection.PlaceholderConfidence,
	}}, 3, 640, 480)

	want := wireResult{
		Markers: []wireMarker{{
			ID: 7, CenterX: 20, CenterY: 20,
			Corners:    [4][2]float32{{10, 10}, {30, 10}, {30, 30}, {10, 30}},
			Confidence: 1,
		}},
		DetectionTimeMs: 3,
		FrameWidth:      640,
		FrameHeight:     480,
		IsTracking:      true,
		MarkerCount:     1,
	}
	if diff := cmp.Diff(want, toWire(r)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
