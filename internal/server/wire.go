package server

import "github.com/ironsheep/marker-tools-mcp/internal/detection"

// wireResult is the shape MCP clients receive for a detection. It mirrors the
// marker result object of the mobile client that consumes this boundary:
// centre as separate coordinates, corners as [x, y] pairs, and tracking
// summary fields precomputed.
type wireResult struct {
	Markers         []wireMarker `json:"markers"`
	DetectionTimeMs int64        `json:"detectionTimeMs"`
	FrameWidth      int32        `json:"frameWidth"`
	FrameHeight     int32        `json:"frameHeight"`
	IsTracking      bool         `json:"isTracking"`
	MarkerCount     int          `json:"markerCount"`
}

type wireMarker struct {
	ID         int32         `json:"id"`
	CenterX    float32       `json:"centerX"`
	CenterY    float32       `json:"centerY"`
	Corners    [4][2]float32 `json:"corners"`
	Confidence float32       `json:"confidence"`
}

// toWire translates r. Every field is always present, and markers is never
// null, so the empty sentinel has a single encoding.
func toWire(r detection.Result) wireResult {
	out := wireResult{
		Markers:         make([]wireMarker, 0, len(r.Markers)),
		DetectionTimeMs: r.ProcessingTimeMs,
		FrameWidth:      r.EffectiveWidth,
		FrameHeight:     r.EffectiveHeight,
		IsTracking:      r.IsTracking(),
		MarkerCount:     r.MarkerCount(),
	}
	for _, m := range r.Markers {
		wm := wireMarker{
			ID:         m.ID,
			CenterX:    m.Center.X,
			CenterY:    m.Center.Y,
			Confidence: m.Confidence,
		}
		for i, c := range m.Corners {
			wm.Corners[i] = [2]float32{c.X, c.Y}
		}
		out.Markers = append(out.Markers, wm)
	}
	return out
}
