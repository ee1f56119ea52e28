package analyzer

import (
	"bytes"
	"image"
	"strconv"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ironsheep/marker-tools-mcp/internal/detection"
)

// steppingClock advances by step on every call.
type steppingClock struct {
	t    time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func markerDetector(ids ...int32) detection.Detector {
	return detection.DetectorFunc(func(img *image.Gray) ([]detection.Candidate, error) {
		out := make([]detection.Candidate, 0, len(ids))
		for _, id := range ids {
			out = append(out, detection.Candidate{
				ID:      id,
				Corners: [4]detection.Point2D{{X: 1, Y: 1}, {X: 9, Y: 1}, {X: 9, Y: 9}, {X: 1, Y: 9}},
			})
		}
		return out, nil
	})
}

func newTestAnalyzer(det detection.Detector, step time.Duration, opts ...Option) *Analyzer {
	clock := &steppingClock{t: time.Unix(0, 0), step: step}
	return New(detection.NewPipeline(det, detection.WithClock(clock.Now)), opts...)
}

// lumaFrame builds a frame with a single padded luma plane and counts
// releases.
func lumaFrame(width, height, stride, rotation int, released *int) Frame {
	data := bytes.Repeat([]byte{0x80}, (height-1)*stride+width)
	return Frame{
		Width:           width,
		Height:          height,
		RotationDegrees: rotation,
		Planes:          []Plane{{Data: data, RowStride: stride, PixelStride: 1}},
		Release:         func() { *released++ },
	}
}

func TestAnalyze_ReturnsPipelineResult(t *testing.T) {
	a := newTestAnalyzer(markerDetector(4), time.Millisecond)
	released := 0

	got := a.Analyze(lumaFrame(64, 48, 72, 90, &released))
	if got.MarkerCount() != 1 || got.Markers[0].ID != 4 {
		t.Fatalf("markers: got %+v", got.Markers)
	}
	if got.EffectiveWidth != 48 || got.EffectiveHeight != 64 {
		t.Errorf("effective size: got %dx%d, want 48x64", got.EffectiveWidth, got.EffectiveHeight)
	}
	if released != 1 {
		t.Errorf("released %d times, want 1", released)
	}
	if latest := a.Latest(); latest.MarkerCount() != 1 {
		t.Errorf("Latest: got %+v", latest)
	}
}

func TestAnalyze_AlwaysReleases(t *testing.T) {
	tests := []struct {
		name   string
		a      *Analyzer
		mutate func(*Frame)
	}{
		{"valid frame", newTestAnalyzer(markerDetector(), 0), func(*Frame) {}},
		{"no planes", newTestAnalyzer(markerDetector(), 0), func(f *Frame) { f.Planes = nil }},
		{"interleaved plane", newTestAnalyzer(markerDetector(), 0), func(f *Frame) { f.Planes[0].PixelStride = 2 }},
		{"short buffer", newTestAnalyzer(markerDetector(), 0), func(f *Frame) { f.Planes[0].Data = f.Planes[0].Data[:10] }},
		{"panicking analysis", New(nil), func(*Frame) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			released := 0
			f := lumaFrame(16, 8, 16, 0, &released)
			tt.mutate(&f)

			tt.a.Analyze(f)
			if released != 1 {
				t.Errorf("released %d times, want 1", released)
			}
		})
	}
}

func TestAnalyze_UnusableFramesGiveEmpty(t *testing.T) {
	a := New(nil)
	released := 0
	f := lumaFrame(16, 8, 16, 0, &released)

	got := a.Analyze(f)
	if !got.IsEmptySentinel() {
		t.Errorf("got %+v, want empty sentinel", got)
	}
	if a.Stats().EmptyFrames != 1 {
		t.Errorf("EmptyFrames: got %d, want 1", a.Stats().EmptyFrames)
	}
}

func TestAnalyze_GeometryOutOfInt32Range(t *testing.T) {
	if strconv.IntSize < 64 {
		t.Skip("int cannot hold values beyond int32 on this platform")
	}
	wide := int64(1)<<32 + 640

	tests := []struct {
		name  string
		frame func(f *Frame)
	}{
		{"width", func(f *Frame) { f.Width = int(wide) }},
		{"height", func(f *Frame) { f.Height = int(int64(1)<<32 + 480) }},
		{"row stride", func(f *Frame) { f.Planes[0].RowStride = int(wide) }},
		{"rotation", func(f *Frame) { f.RotationDegrees = int(int64(1)<<32 + 90) }},
		{"negative width", func(f *Frame) { f.Width = int(-wide) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(markerDetector(2), time.Millisecond)
			released := 0
			f := lumaFrame(640, 480, 640, 0, &released)
			tt.frame(&f)

			got := a.Analyze(f)
			if !got.IsEmptySentinel() {
				t.Errorf("got %dx%d with %d markers, want empty sentinel",
					got.EffectiveWidth, got.EffectiveHeight, got.MarkerCount())
			}
			if released != 1 {
				t.Errorf("released %d times, want 1", released)
			}
			if a.Stats().EmptyFrames != 1 {
				t.Errorf("EmptyFrames: got %d, want 1", a.Stats().EmptyFrames)
			}
		})
	}
}

func TestAnalyze_NilRelease(t *testing.T) {
	a := newTestAnalyzer(markerDetector(), 0)
	f := Frame{Width: 4, Height: 4, Planes: []Plane{{Data: make([]byte, 16), RowStride: 4, PixelStride: 1}}}
	if got := a.Analyze(f); got.IsEmptySentinel() {
		t.Errorf("got empty sentinel for a valid frame")
	}
}

func TestStats(t *testing.T) {
	a := newTestAnalyzer(markerDetector(1, 2), 3*time.Millisecond)
	blank := newTestAnalyzer(markerDetector(), 0)
	released := 0

	a.Analyze(lumaFrame(32, 32, 32, 0, &released))
	a.Analyze(lumaFrame(32, 32, 40, 180, &released))
	bad := lumaFrame(32, 32, 32, 0, &released)
	bad.Planes[0].RowStride = 8
	a.Analyze(bad)

	want := Stats{Frames: 3, EmptyFrames: 1, TrackingFrames: 2, LastMs: 0, MaxMs: 3}
	if got := a.Stats(); got != want {
		t.Errorf("stats: got %+v, want %+v", got, want)
	}

	blank.Analyze(lumaFrame(32, 32, 32, 0, &released))
	if got := blank.Stats(); got.TrackingFrames != 0 || got.EmptyFrames != 0 || got.Frames != 1 {
		t.Errorf("no-marker stats: got %+v", got)
	}
}

func TestLatest_BeforeFirstFrame(t *testing.T) {
	a := newTestAnalyzer(markerDetector(), 0)
	if got := a.Latest(); !got.IsEmptySentinel() {
		t.Errorf("got %+v, want empty sentinel", got)
	}
}

func TestSlowFrames(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	a := newTestAnalyzer(markerDetector(3), 60*time.Millisecond,
		WithLogger(log), WithSlowFrameThreshold(50*time.Millisecond), WithLogEvery(100))
	released := 0
	a.Analyze(lumaFrame(16, 16, 16, 0, &released))

	if got := a.Stats().SlowFrames; got != 1 {
		t.Errorf("SlowFrames: got %d, want 1", got)
	}
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["time_ms"] == int64(60) {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a slow-frame warning with time_ms=60")
	}

	fast := newTestAnalyzer(markerDetector(3), 10*time.Millisecond, WithSlowFrameThreshold(50*time.Millisecond))
	fast.Analyze(lumaFrame(16, 16, 16, 0, &released))
	if got := fast.Stats().SlowFrames; got != 0 {
		t.Errorf("SlowFrames for fast frame: got %d, want 0", got)
	}
}

func TestPeriodicDebugLog(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	a := newTestAnalyzer(markerDetector(), 0, WithLogger(log), WithLogEvery(3))
	released := 0
	for i := 0; i < 7; i++ {
		a.Analyze(lumaFrame(8, 8, 8, 0, &released))
	}

	var frames []uint64
	for _, e := range hook.AllEntries() {
		if e.Message == "Frame analyzed" {
			frames = append(frames, e.Data["frame"].(uint64))
		}
	}
	want := []uint64{1, 4, 7}
	if len(frames) != len(want) {
		t.Fatalf("debug lines for frames %v, want %v", frames, want)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("debug line %d for frame %d, want %d", i, frames[i], want[i])
		}
	}
}

func TestRequestSnapshot_OneShot(t *testing.T) {
	a := newTestAnalyzer(markerDetector(), 0)
	got := make(chan []byte, 2)
	if err := a.RequestSnapshot(func(b []byte) { got <- b }); err != nil {
		t.Fatalf("RequestSnapshot failed: %v", err)
	}

	released := 0
	a.Analyze(lumaFrame(40, 30, 48, 90, &released))
	a.Analyze(lumaFrame(40, 30, 48, 90, &released))
	a.Close()

	if len(got) != 1 {
		t.Fatalf("callback fired %d times, want 1", len(got))
	}
	img, err := imaging.Decode(bytes.NewReader(<-got))
	if err != nil {
		t.Fatalf("snapshot is not a decodable image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("snapshot size: got %dx%d, want 40x30", b.Dx(), b.Dy())
	}
}

func TestRequestSnapshot_WaitsForValidFrame(t *testing.T) {
	a := newTestAnalyzer(markerDetector(), 0)
	got := make(chan []byte, 1)
	if err := a.RequestSnapshot(func(b []byte) { got <- b }); err != nil {
		t.Fatalf("RequestSnapshot failed: %v", err)
	}

	released := 0
	bad := lumaFrame(16, 16, 16, 0, &released)
	bad.Planes[0].Data = nil
	a.Analyze(bad)
	a.Analyze(lumaFrame(16, 16, 16, 0, &released))
	a.Close()

	if len(got) != 1 {
		t.Errorf("callback fired %d times, want 1", len(got))
	}
}

func TestRequestSnapshot_AfterClose(t *testing.T) {
	a := newTestAnalyzer(markerDetector(), 0)
	a.Close()
	if err := a.RequestSnapshot(func([]byte) {}); err != ErrClosed {
		t.Errorf("got %v, want ErrClosed", err)
	}
	if err := newTestAnalyzer(markerDetector(), 0).RequestSnapshot(nil); err == nil {
		t.Error("expected error for nil callback")
	}
}
