// Package server implements the MCP (Model Context Protocol) server for
// fiducial marker detection.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Marker detection:
//   - marker_detect: Detect markers in an image file
//   - marker_detect_frame: Detect markers in a raw luma plane
//   - marker_annotate: Detect and draw markers onto the image
//
// Dictionary:
//   - marker_generate: Render a printable marker
//   - marker_dictionary: List the dictionary codes
//
// Diagnostics:
//   - analyzer_stats: Frame analyzer counters and latest result
//
// # Detection Results
//
// Every detection tool returns the same result object: markers (never null),
// detectionTimeMs, frameWidth and frameHeight. A frame rejected for its
// geometry or buffer size yields no markers and a 0x0 frame, while a valid
// frame without markers reports its real size. The translation from the
// detection package's Result happens in one place, toWire.
//
// # Error Handling
//
// Tool execution errors (unreadable files, bad arguments) are returned as
// JSON-RPC error responses with code -32000. Malformed frames are not errors.
package server
