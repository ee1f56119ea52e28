package detection

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/marker-tools-mcp/internal/frame"
	"github.com/ironsheep/marker-tools-mcp/internal/logger"
)

// Candidate is the raw output of a recognizer: an id and four corners in the
// recognizer's winding order, in upright-frame pixel coordinates.
type Candidate struct {
	ID      int32
	Corners [4]Point2D
}

// Detector recognizes markers in an upright grayscale image.
//
// Implementations may keep reusable state between calls and need not be safe
// for concurrent use; Pipeline serializes access. The image passed in may
// alias a caller's camera buffer and must be treated as read-only.
type Detector interface {
	Detect(img *image.Gray) ([]Candidate, error)
}

// DetectorFunc adapts a plain function to Detector.
type DetectorFunc func(img *image.Gray) ([]Candidate, error)

// Detect calls f(img).
func (f DetectorFunc) Detect(img *image.Gray) ([]Candidate, error) {
	return f(img)
}

// ErrMalformedCandidate marks a detector output that cannot be turned into a
// marker (non-finite corner coordinates).
var ErrMalformedCandidate = errors.New("malformed marker candidate")

// Pipeline turns one borrowed luma plane into a Result.
//
// A Pipeline owns its Detector and a scratch buffer for rotated frames. Detect
// holds a mutex for the whole call, so at most one detection is in flight per
// Pipeline. Callers that need parallel detection should build one Pipeline
// (and one Detector) per goroutine.
type Pipeline struct {
	mu       sync.Mutex
	detector Detector
	scratch  []byte

	now   func() time.Time
	since func(time.Time) time.Duration
	log   logrus.FieldLogger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the clock used to measure processing time. Tests use it
// to make elapsed times deterministic.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
		p.since = func(t time.Time) time.Duration { return now().Sub(t) }
	}
}

// WithLogger sets the logger used to report rejected frames and detector
// failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPipeline creates a pipeline around det. The detector is injected rather
// than looked up so its lifetime is owned by whoever builds the pipeline.
func NewPipeline(det Detector, opts ...Option) *Pipeline {
	p := &Pipeline{
		detector: det,
		now:      time.Now,
		since:    time.Since,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Detect runs detection on a caller-owned luma plane.
//
// It never fails: rejected geometry, a short or missing buffer, detector
// errors or panics, and malformed detector output all yield Empty(). A valid
// frame with no markers yields an empty marker list with the real (rotated)
// frame size. buf is read-only for the duration of the call and is not
// retained afterwards.
func (p *Pipeline) Detect(buf []byte, width, height, rowStride, rotation int32) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.now()

	view, err := frame.New(buf, int(width), int(height), int(rowStride), int(rotation))
	if err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"width":      width,
			"height":     height,
			"row_stride": rowStride,
			"buffer_len": len(buf),
		}).Debug("Rejected frame")
		return Empty()
	}

	upright, scratch := view.Upright(p.scratch)
	p.scratch = scratch

	candidates, err := p.safeDetect(upright)
	if err != nil {
		p.log.WithError(err).Warn("Marker detection failed")
		return Empty()
	}

	markers, err := aggregate(candidates)
	if err != nil {
		p.log.WithError(err).Warn("Discarding detection output")
		return Empty()
	}

	elapsed := p.since(start)
	ew, eh := view.EffectiveSize()
	return Build(markers, roundMillis(elapsed), int32(ew), int32(eh))
}

// safeDetect converts a detector panic into an error so a single bad frame
// cannot take down the analysis loop.
func (p *Pipeline) safeDetect(img *image.Gray) (candidates []Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			candidates = nil
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()
	return p.detector.Detect(img)
}

// aggregate builds markers from candidates. Any malformed candidate discards
// the whole list so callers never see a partially built result.
func aggregate(candidates []Candidate) ([]DetectedMarker, error) {
	markers := make([]DetectedMarker, 0, len(candidates))
	for i, c := range candidates {
		for _, pt := range c.Corners {
			if !finite(pt.X) || !finite(pt.Y) {
				return nil, fmt.Errorf("%w: candidate %d (id %d) has corner %v", ErrMalformedCandidate, i, c.ID, pt)
			}
		}
		markers = append(markers, DetectedMarker{
			ID:         c.ID,
			Center:     CenterOf(c.Corners),
			Corners:    c.Corners,
			Confidence: PlaceholderConfidence,
		})
	}
	return markers, nil
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// roundMillis rounds to the nearest millisecond, clamping clock skew from an
// injected clock to zero.
func roundMillis(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Round(time.Millisecond).Milliseconds()
}
