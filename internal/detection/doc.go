// Package detection turns a borrowed camera luma plane into a marker Result.
//
// Pipeline validates the frame geometry, wraps the buffer without copying it,
// rotates it upright when asked to, runs the injected Detector and builds the
// Result. It never returns an error: any rejected frame, detector failure or
// malformed detector output yields Empty(), the single degenerate result
// {markers: [], 0 ms, 0x0}. A valid frame without markers instead carries its
// real upright size, which is how callers tell the two apart.
//
// # Coordinates
//
// Marker corners and centres are in pixels of the upright (rotated) frame,
// origin at the top-left, Y pointing down. Corner order is whatever the
// Detector produces; the pipeline never reorders it.
//
// # Confidence
//
// The recognizer gives no score, so every marker carries
// PlaceholderConfidence (1.0). It is not a measured quantity.
//
// # Concurrency
//
// A Pipeline runs one detection at a time. Its Detector and rotation scratch
// buffer are owned by the Pipeline and are never shared.
package detection
