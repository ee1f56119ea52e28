// Package imaging prepares image files for marker detection and renders the
// results back onto them.
//
// Files are decoded through ImageCache with EXIF orientation applied, so every
// image is upright before detection. LumaPlane converts an image into the
// strided 8-bit buffer layout a camera produces, optionally with padding at
// the end of each row, which lets file input exercise the same code path as
// live frames. Annotate and EncodePNG produce base64 PNGs for MCP responses.
//
// Coordinates are 0-based with (0,0) at the top-left corner, X increasing to
// the right and Y increasing downward.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The other functions are stateless and
// never modify their input images.
package imaging
