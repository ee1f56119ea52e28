// Package analyzer drives marker detection over a stream of camera frames.
//
// An Analyzer sits between the frame source and the detection pipeline. For
// every frame it hands the luma plane to the pipeline, releases the frame
// back to its producer, publishes the result as the latest one, keeps running
// statistics, and reports frames that take longer than the configured budget.
//
// # Snapshots
//
// RequestSnapshot arms a one-shot capture: the next valid frame is copied and
// encoded to JPEG on a background goroutine, and the encoded bytes are handed
// to the callback. Close waits for pending encodes to finish.
package analyzer
