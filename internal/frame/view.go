package frame

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrInvalidGeometry is returned for non-positive dimensions or a stride
	// smaller than the row width.
	ErrInvalidGeometry = errors.New("invalid frame geometry")

	// ErrBufferTooSmall is returned when the buffer cannot hold the last pixel
	// of the last row.
	ErrBufferTooSmall = errors.New("frame buffer too small")

	// ErrBufferUnavailable is returned when no buffer was supplied at all.
	ErrBufferUnavailable = errors.New("frame buffer unavailable")
)

// View is a zero-copy grayscale view over a caller-owned luma plane.
type View struct {
	gray     *image.Gray
	rotation Rotation
}

// RequiredLen returns the minimum number of bytes a buffer must hold for the
// given geometry: every full row but the last, plus the last row's pixels.
// The arithmetic is done in int64 so oversized int32 inputs cannot wrap.
func RequiredLen(width, height, rowStride int) int64 {
	return int64(height-1)*int64(rowStride) + int64(width)
}

// Validate checks frame geometry against the buffer length without building a
// view.
func Validate(bufLen, width, height, rowStride int) error {
	if width <= 0 || height <= 0 || rowStride <= 0 || rowStride < width {
		return fmt.Errorf("%w: w=%d h=%d stride=%d", ErrInvalidGeometry, width, height, rowStride)
	}
	required := RequiredLen(width, height, rowStride)
	if int64(bufLen) < required {
		return fmt.Errorf("%w: capacity=%d, required=%d (w=%d h=%d stride=%d)",
			ErrBufferTooSmall, bufLen, required, width, height, rowStride)
	}
	return nil
}

// New validates the geometry and wraps buf without copying it.
//
// Only the first RequiredLen bytes of buf are reachable through the view.
// Unsupported rotation values are normalized to 0.
func New(buf []byte, width, height, rowStride, rotation int) (*View, error) {
	if buf == nil {
		return nil, ErrBufferUnavailable
	}
	if err := Validate(len(buf), width, height, rowStride); err != nil {
		return nil, err
	}

	required := int(RequiredLen(width, height, rowStride))
	return &View{
		gray: &image.Gray{
			Pix:    buf[:required:required],
			Stride: rowStride,
			Rect:   image.Rect(0, 0, width, height),
		},
		rotation: NormalizeRotation(rotation),
	}, nil
}

// Gray returns the unrotated view. Its Pix aliases the caller's buffer.
func (v *View) Gray() *image.Gray {
	return v.gray
}

// Rotation returns the normalized rotation the view was built with.
func (v *View) Rotation() Rotation {
	return v.rotation
}

// Size returns the logical size before rotation.
func (v *View) Size() (width, height int) {
	b := v.gray.Rect
	return b.Dx(), b.Dy()
}

// EffectiveSize returns the logical size after rotation.
func (v *View) EffectiveSize() (width, height int) {
	w, h := v.Size()
	if v.rotation.SwapsAxes() {
		return h, w
	}
	return w, h
}

// Upright returns the view rotated to its upright orientation.
//
// With no rotation the zero-copy view is returned and scratch is handed back
// untouched. Otherwise the rotated pixels are written densely (stride equal
// to the rotated width) into scratch, which is grown when it is too short.
// The returned slice is the scratch buffer to reuse on the next call.
func (v *View) Upright(scratch []byte) (*image.Gray, []byte) {
	if v.rotation == Rotate0 {
		return v.gray, scratch
	}

	w, h := v.Size()
	n := w * h
	if cap(scratch) < n {
		scratch = make([]byte, n)
	}
	scratch = scratch[:n]

	ew, eh := v.EffectiveSize()
	dst := &image.Gray{
		Pix:    scratch,
		Stride: ew,
		Rect:   image.Rect(0, 0, ew, eh),
	}
	rotateInto(dst, v.gray, v.rotation)
	return dst, scratch
}
