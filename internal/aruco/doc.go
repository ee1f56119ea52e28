// Package aruco recognizes square binary fiducial markers in grayscale images.
//
// A marker is a 6x6 grid of cells: a solid black border one cell wide around
// a 4x4 data area whose white and black cells encode the marker id. The
// built-in dictionary holds 50 such codes that stay at least four bits apart
// under every rotation, so one misread cell is corrected and the marker's
// orientation is never ambiguous.
//
// # Algorithm
//
//  1. Adaptive threshold: a pixel is dark when it is more than ThresholdC
//     below the box-filtered mean of its neighbourhood.
//  2. Candidates: 8-connected dark components whose size fits the perimeter
//     limits. The convex hull of each component is fitted with a
//     quadrilateral and rejected if the fit is poor.
//  3. Decoding: a homography from the unit square onto the quadrilateral
//     locates each cell; cell means are split at the midpoint between the
//     darkest and brightest cell. The border must read black and the data
//     bits must match a dictionary code within the correction budget.
//
// Corners are returned clockwise on screen starting at the marker's own
// top-left corner, at pixel-centre precision. There is no sub-pixel
// refinement and no confidence score.
//
// # Thread Safety
//
// Dictionary values are immutable. A Detector reuses internal buffers and
// must be confined to one goroutine at a time.
package aruco
