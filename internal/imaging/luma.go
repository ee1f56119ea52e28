package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// PaddingByte fills the bytes between the end of a row and the next row's
// start in buffers built by LumaPlane.
const PaddingByte = 0xFF

// LumaPlane converts img to an 8-bit luma plane laid out like a camera
// buffer: each row is followed by rowPadding bytes of PaddingByte, except the
// last row, which ends at its final pixel.
func LumaPlane(img image.Image, rowPadding int) (buf []byte, width, height, stride int, err error) {
	if rowPadding < 0 {
		return nil, 0, 0, 0, fmt.Errorf("row padding must be >= 0 (got %d)", rowPadding)
	}
	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil, 0, 0, 0, fmt.Errorf("image is empty (%dx%d)", width, height)
	}
	stride = width + rowPadding

	buf = make([]byte, (height-1)*stride+width)
	for i := range buf {
		buf[i] = PaddingByte
	}

	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < height; y++ {
			copy(buf[y*stride:y*stride+width], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return buf, width, height, stride, nil
	}

	// Grayscale keeps RGB equal per pixel; the red channel is the luma.
	gray := imaging.Grayscale(img)
	for y := 0; y < height; y++ {
		src := gray.Pix[y*gray.Stride:]
		dst := buf[y*stride : y*stride+width]
		for x := range dst {
			dst[x] = src[4*x]
		}
	}
	return buf, width, height, stride, nil
}
