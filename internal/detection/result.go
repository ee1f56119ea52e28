package detection

// PlaceholderConfidence is reported for every marker. The recognizer does not
// score its detections, so this is a fixed value, not a measurement.
const PlaceholderConfidence float32 = 1.0

// Point2D is a pixel-space coordinate in the upright (post-rotation) frame.
type Point2D struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// DetectedMarker is one recognized fiducial.
//
// Corners keep the recognizer's winding order (clockwise from the marker's own
// top-left corner). Center is the arithmetic mean of the four corners.
type DetectedMarker struct {
	ID         int32      `json:"id"`
	Center     Point2D    `json:"center"`
	Corners    [4]Point2D `json:"corners"`
	Confidence float32    `json:"confidence"`
}

// Result is the outcome of one detection call.
//
// EffectiveWidth and EffectiveHeight are the frame size after rotation. They
// are zero only in the empty sentinel returned for rejected input.
type Result struct {
	Markers          []DetectedMarker `json:"markers"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	EffectiveWidth   int32            `json:"effective_width"`
	EffectiveHeight  int32            `json:"effective_height"`
}

// IsTracking reports whether at least one marker was found.
func (r Result) IsTracking() bool {
	return len(r.Markers) > 0
}

// MarkerCount returns the number of detected markers.
func (r Result) MarkerCount() int {
	return len(r.Markers)
}

// IsEmptySentinel reports whether r has the shape produced by Empty. A valid
// frame without markers is not the sentinel because its size is non-zero.
func (r Result) IsEmptySentinel() bool {
	return len(r.Markers) == 0 && r.ProcessingTimeMs == 0 &&
		r.EffectiveWidth == 0 && r.EffectiveHeight == 0
}

// Empty returns the degenerate result used for every failure path.
//
// Markers is a non-nil empty slice so the result always encodes as
// {"markers":[],...} and never as null.
func Empty() Result {
	return Result{Markers: []DetectedMarker{}}
}

// Build assembles a result without further validation; the pipeline owns the
// invariants.
func Build(markers []DetectedMarker, elapsedMs int64, width, height int32) Result {
	if markers == nil {
		markers = []DetectedMarker{}
	}
	return Result{
		Markers:          markers,
		ProcessingTimeMs: elapsedMs,
		EffectiveWidth:   width,
		EffectiveHeight:  height,
	}
}

// CenterOf returns the mean of the four corners.
func CenterOf(corners [4]Point2D) Point2D {
	var sx, sy float32
	for _, c := range corners {
		sx += c.X
		sy += c.Y
	}
	return Point2D{X: sx / 4, Y: sy / 4}
}
