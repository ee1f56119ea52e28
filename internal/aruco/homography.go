package aruco

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var errDegenerateQuad = errors.New("degenerate quadrilateral")

// homography maps the unit square onto a quadrilateral.
type homography [9]float64

// unitSquare lists the corners matched, in order, with a quad's corners.
var unitSquare = [4]point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// solveHomography finds H with h33 = 1 such that H maps unitSquare[i] to q[i],
// by solving the standard 8x8 direct linear transform system.
func solveHomography(q [4]point) (homography, error) {
	var h homography
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i, src := range unitSquare {
		x, y := src.X, src.Y
		u, v := q[i].X, q[i].Y
		r := 2 * i
		a.SetRow(r, []float64{x, y, 1, 0, 0, 0, -x * u, -y * u})
		b.SetVec(r, u)
		a.SetRow(r+1, []float64{0, 0, 0, x, y, 1, -x * v, -y * v})
		b.SetVec(r+1, v)
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return h, fmt.Errorf("%w: %v", errDegenerateQuad, err)
	}
	for i := 0; i < 8; i++ {
		h[i] = sol.AtVec(i)
	}
	h[8] = 1
	return h, nil
}

// project maps unit-square coordinates (u, v) into the image.
func (h homography) project(u, v float64) point {
	w := h[6]*u + h[7]*v + h[8]
	return point{
		X: (h[0]*u + h[1]*v + h[2]) / w,
		Y: (h[3]*u + h[4]*v + h[5]) / w,
	}
}
