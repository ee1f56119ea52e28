package aruco

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Render draws marker id as a printable grayscale image.
//
// Each grid cell becomes a cellPx square. quietCells adds a white margin of
// that many cells around the black border, which detection needs to separate
// the marker from a dark background.
func Render(dict *Dictionary, id, cellPx, quietCells int) (*image.Gray, error) {
	if cellPx < 1 {
		return nil, fmt.Errorf("cell size must be >= 1 (got %d)", cellPx)
	}
	if quietCells < 0 {
		return nil, fmt.Errorf("quiet zone must be >= 0 (got %d)", quietCells)
	}
	grid, err := dict.Cells(id)
	if err != nil {
		return nil, err
	}

	side := gridCells + 2*quietCells
	small := image.NewGray(image.Rect(0, 0, side, side))
	for i := range small.Pix {
		small.Pix[i] = 0xFF
	}
	for r := 0; r < gridCells; r++ {
		for c := 0; c < gridCells; c++ {
			var v uint8
			inner := r > 0 && r < gridCells-1 && c > 0 && c < gridCells-1
			if inner && grid[r-1][c-1] {
				v = 0xFF
			}
			small.Pix[(r+quietCells)*small.Stride+c+quietCells] = v
		}
	}
	if cellPx == 1 {
		return small, nil
	}

	scaled := imaging.Resize(small, side*cellPx, side*cellPx, imaging.NearestNeighbor)
	return toGray(scaled), nil
}

// toGray keeps the red channel of an image whose channels are all equal.
func toGray(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srow := src.Pix[y*src.Stride:]
		drow := dst.Pix[y*dst.Stride:]
		for x := 0; x < b.Dx(); x++ {
			drow[x] = srow[4*x]
		}
	}
	return dst
}
