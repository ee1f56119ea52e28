package frame

import "image"

// Rotation is a clockwise quarter-turn count expressed in degrees.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// NormalizeRotation maps the supported degree values to themselves and
// everything else to Rotate0.
func NormalizeRotation(degrees int) Rotation {
	switch r := Rotation(degrees); r {
	case Rotate90, Rotate180, Rotate270:
		return r
	default:
		return Rotate0
	}
}

// SwapsAxes reports whether the rotation exchanges width and height.
func (r Rotation) SwapsAxes() bool {
	return r == Rotate90 || r == Rotate270
}

// rotateInto writes src rotated by r into dst, which must already have the
// rotated dimensions. Rows of src are read only up to their logical width, so
// stride padding never leaks into dst.
func rotateInto(dst, src *image.Gray, r Rotation) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	sp, ss := src.Pix, src.Stride
	dp, ds := dst.Pix, dst.Stride

	switch r {
	case Rotate90:
		// (x, y) -> (h-1-y, x)
		for y := 0; y < h; y++ {
			row := sp[y*ss : y*ss+w]
			dx := h - 1 - y
			for x, v := range row {
				dp[x*ds+dx] = v
			}
		}
	case Rotate180:
		// (x, y) -> (w-1-x, h-1-y)
		for y := 0; y < h; y++ {
			row := sp[y*ss : y*ss+w]
			out := dp[(h-1-y)*ds : (h-1-y)*ds+w]
			for x, v := range row {
				out[w-1-x] = v
			}
		}
	case Rotate270:
		// (x, y) -> (y, w-1-x)
		for y := 0; y < h; y++ {
			row := sp[y*ss : y*ss+w]
			for x, v := range row {
				dp[(w-1-x)*ds+y] = v
			}
		}
	default:
		for y := 0; y < h; y++ {
			copy(dp[y*ds:y*ds+w], sp[y*ss:y*ss+w])
		}
	}
}
