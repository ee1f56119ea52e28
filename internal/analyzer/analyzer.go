package analyzer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/marker-tools-mcp/internal/detection"
	"github.com/ironsheep/marker-tools-mcp/internal/frame"
	"github.com/ironsheep/marker-tools-mcp/internal/logger"
)

const (
	// DefaultLogEvery is how many frames pass between periodic debug lines.
	DefaultLogEvery = 60

	// DefaultSlowFrameThreshold is the per-frame processing budget.
	DefaultSlowFrameThreshold = 50 * time.Millisecond

	// SnapshotQuality is the JPEG quality used for snapshots.
	SnapshotQuality = 85
)

// ErrClosed is returned by RequestSnapshot after Close.
var ErrClosed = errors.New("analyzer closed")

// Plane is one image plane of a camera frame.
type Plane struct {
	Data        []byte
	RowStride   int
	PixelStride int
}

// Frame is a camera frame borrowed from its producer. Release, when set, is
// called exactly once after the frame has been analyzed.
type Frame struct {
	Width           int
	Height          int
	RotationDegrees int
	Planes          []Plane
	Release         func()
}

// Stats summarizes the frames analyzed so far.
type Stats struct {
	Frames         uint64 `json:"frames"`
	EmptyFrames    uint64 `json:"empty_frames"`
	TrackingFrames uint64 `json:"tracking_frames"`
	SlowFrames     uint64 `json:"slow_frames"`
	LastMs         int64  `json:"last_ms"`
	MaxMs          int64  `json:"max_ms"`
}

// Analyzer feeds frames to a detection pipeline.
type Analyzer struct {
	pipeline *detection.Pipeline
	log      logrus.FieldLogger
	logEvery uint64
	slow     time.Duration

	mu       sync.Mutex
	stats    Stats
	snapshot func([]byte)
	closed   bool

	latest atomic.Pointer[detection.Result]
	wg     sync.WaitGroup
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger for periodic and slow-frame messages.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// WithLogEvery sets how many frames pass between periodic debug lines.
// Values below 1 are ignored.
func WithLogEvery(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.logEvery = uint64(n)
		}
	}
}

// WithSlowFrameThreshold sets the processing time above which a frame is
// reported as slow. Values below zero are ignored.
func WithSlowFrameThreshold(d time.Duration) Option {
	return func(a *Analyzer) {
		if d >= 0 {
			a.slow = d
		}
	}
}

// New creates an analyzer around p.
func New(p *detection.Pipeline, opts ...Option) *Analyzer {
	a := &Analyzer{
		pipeline: p,
		log:      logger.Discard(),
		logEvery: DefaultLogEvery,
		slow:     DefaultSlowFrameThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	empty := detection.Empty()
	a.latest.Store(&empty)
	return a
}

// Analyze detects markers in f and returns the result. The frame is always
// released, including when it is unusable or detection panics.
func (a *Analyzer) Analyze(f Frame) (result detection.Result) {
	if f.Release != nil {
		defer f.Release()
	}
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("panic", r).Error("Frame analysis failed")
			result = detection.Empty()
		}
		a.record(result)
	}()

	if len(f.Planes) == 0 {
		a.log.Warn("Frame has no planes")
		return detection.Empty()
	}
	luma := f.Planes[0]
	if luma.PixelStride > 1 {
		a.log.WithField("pixel_stride", luma.PixelStride).Warn("Interleaved luma planes are not supported")
		return detection.Empty()
	}

	if !fitsInt32(f.Width, f.Height, luma.RowStride, f.RotationDegrees) {
		a.log.WithFields(logrus.Fields{
			"width":      f.Width,
			"height":     f.Height,
			"row_stride": luma.RowStride,
			"rotation":   f.RotationDegrees,
		}).Warn("Frame geometry out of range")
		return detection.Empty()
	}

	result = a.pipeline.Detect(luma.Data, int32(f.Width), int32(f.Height), int32(luma.RowStride), int32(f.RotationDegrees))
	a.maybeSnapshot(luma, f.Width, f.Height)
	return result
}

// record updates statistics and the latest result, and logs.
func (a *Analyzer) record(result detection.Result) {
	a.latest.Store(&result)

	a.mu.Lock()
	a.stats.Frames++
	n := a.stats.Frames
	switch {
	case result.IsEmptySentinel():
		a.stats.EmptyFrames++
	case result.IsTracking():
		a.stats.TrackingFrames++
	}
	a.stats.LastMs = result.ProcessingTimeMs
	a.stats.MaxMs = max(a.stats.MaxMs, result.ProcessingTimeMs)
	slow := time.Duration(result.ProcessingTimeMs)*time.Millisecond > a.slow
	if slow {
		a.stats.SlowFrames++
	}
	a.mu.Unlock()

	fields := logrus.Fields{
		"frame":   n,
		"markers": result.MarkerCount(),
		"width":   result.EffectiveWidth,
		"height":  result.EffectiveHeight,
		"time_ms": result.ProcessingTimeMs,
	}
	if n%a.logEvery == 1 || a.logEvery == 1 {
		a.log.WithFields(fields).Debug("Frame analyzed")
	}
	if slow {
		a.log.WithFields(fields).WithField("budget_ms", a.slow.Milliseconds()).Warn("Detection exceeded frame budget")
	}
}

// Latest returns the most recent result, or Empty before the first frame.
func (a *Analyzer) Latest() detection.Result {
	return *a.latest.Load()
}

// Stats returns a copy of the running statistics.
func (a *Analyzer) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// RequestSnapshot arms a one-shot capture of the next valid frame. A later
// request replaces one that has not fired yet.
func (a *Analyzer) RequestSnapshot(cb func(jpeg []byte)) error {
	if cb == nil {
		return errors.New("snapshot callback is nil")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.snapshot = cb
	return nil
}

// maybeSnapshot copies the luma plane for a pending snapshot. The copy is made
// before the frame is released; encoding happens on its own goroutine.
func (a *Analyzer) maybeSnapshot(luma Plane, width, height int) {
	a.mu.Lock()
	cb := a.snapshot
	if cb == nil || a.closed {
		a.mu.Unlock()
		return
	}
	view, err := frame.New(luma.Data, width, height, luma.RowStride, 0)
	if err != nil {
		a.mu.Unlock()
		return
	}
	a.snapshot = nil
	a.wg.Add(1)
	a.mu.Unlock()

	img := copyGray(view.Gray())
	go func() {
		defer a.wg.Done()
		data, err := EncodeJPEG(img)
		if err != nil {
			a.log.WithError(err).Error("Snapshot encoding failed")
			return
		}
		cb(data)
	}()
}

// Close stops accepting snapshot requests and waits for pending encodes.
func (a *Analyzer) Close() {
	a.mu.Lock()
	a.closed = true
	a.snapshot = nil
	a.mu.Unlock()
	a.wg.Wait()
}

// EncodeJPEG encodes img at SnapshotQuality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(SnapshotQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// fitsInt32 reports whether every value survives conversion to int32.
func fitsInt32(vals ...int) bool {
	for _, v := range vals {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return false
		}
	}
	return true
}

func copyGray(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], src.Pix[y*src.Stride:])
	}
	return dst
}
