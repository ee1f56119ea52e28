// Package frame wraps a caller-owned luma plane as a strided grayscale image.
//
// A camera pipeline hands over the first plane of a frame (the Y plane of
// YUV_420_888 and friends) together with its width, height, and row stride.
// The stride is frequently larger than the width because of hardware row
// alignment, so the bytes between the end of one logical row and the start of
// the next are padding and must never be interpreted as pixels.
//
// # Validation
//
// New rejects geometry that would make any pixel access reach outside the
// buffer:
//
//   - width, height, or stride not positive
//   - stride smaller than width
//   - len(buf) < (height-1)*stride + width
//
// The last row is allowed to be short (no trailing padding), which matches what
// camera HALs actually deliver.
//
// # Ownership
//
// The View aliases the caller's buffer without copying it. Nothing in this
// package writes to that buffer: rotations are produced into a scratch buffer
// owned by the caller of Upright, so the source frame is left untouched and may
// be returned to the camera as soon as detection finishes.
//
// # Rotation
//
// Rotation follows the camera convention: 90 means the image must be turned
// clockwise by 90 degrees to appear upright, 180 is a point reflection, and 270
// is a counter-clockwise quarter turn. Any other value is treated as 0.
package frame
