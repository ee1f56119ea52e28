package aruco

import (
	"errors"
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"

	"github.com/ironsheep/marker-tools-mcp/internal/detection"
)

// gridCells is the sampled grid side: the data bits plus a one-cell border.
const gridCells = MarkerBits + 2

// samplesPerAxis are the offsets, inside one cell, averaged to read it. They
// stay clear of the cell edges where blur and corner error concentrate.
var samplesPerAxis = [3]float64{0.3, 0.5, 0.7}

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("empty image")

// Detector finds markers of one dictionary in grayscale images.
//
// The dictionary and parameters are fixed at construction. A Detector keeps
// working buffers between calls to avoid per-frame allocation, so it must not
// be used from more than one goroutine at a time.
//
// Detect starts no goroutines of its own. The box blur behind the adaptive
// threshold (bild/blur) splits its rows across goroutines internally and
// joins them before returning, so nothing outlives the call.
type Detector struct {
	dict   *Dictionary
	params Params

	dark  []bool
	seen  []bool
	stack []int
	comp  []int
}

// NewDetector creates a detector. Invalid params are replaced by
// DefaultParams so construction cannot fail; call Params.Validate first to
// surface configuration errors.
func NewDetector(dict *Dictionary, params Params) *Detector {
	if dict == nil {
		dict = Dictionary4x4x50()
	}
	if params.Validate() != nil {
		params = DefaultParams()
	}
	return &Detector{dict: dict, params: params}
}

// Dictionary returns the dictionary the detector decodes against.
func (d *Detector) Dictionary() *Dictionary {
	return d.dict
}

// Detect returns every decoded marker. Corners run clockwise on screen,
// starting at the marker's own top-left corner. img is only read.
func (d *Detector) Detect(img *image.Gray) ([]detection.Candidate, error) {
	if img == nil || img.Rect.Empty() {
		return nil, ErrEmptyImage
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	d.threshold(img)

	longest := float64(max(w, h))
	minPerimeter := d.params.MinPerimeterRate * longest
	maxPerimeter := d.params.MaxPerimeterRate * longest

	var hits []found
	d.resetSeen(w * h)
	for start := range d.dark {
		if !d.dark[start] || d.seen[start] {
			continue
		}
		bounds := d.collectComponent(start, w, h)
		perimeter := float64(2 * (bounds.Dx() + bounds.Dy()))
		if perimeter < minPerimeter || perimeter > maxPerimeter {
			continue
		}

		quad, ok := fitQuad(convexHull(d.rowExtremes(bounds, w)),
			d.params.MinSidePx, d.params.MinQuadFill, d.params.MaxQuadDeviation)
		if !ok {
			continue
		}
		id, corners, ok := d.decode(img, quad)
		if !ok {
			continue
		}
		hits = appendUnique(hits, id, corners)
	}

	out := make([]detection.Candidate, 0, len(hits))
	origin := img.Rect.Min
	for _, f := range hits {
		c := detection.Candidate{ID: int32(f.id)}
		for i, p := range f.corners {
			c.Corners[i] = detection.Point2D{
				X: float32(p.X + float64(origin.X)),
				Y: float32(p.Y + float64(origin.Y)),
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// threshold marks pixels noticeably darker than their neighbourhood mean.
func (d *Detector) threshold(img *image.Gray) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	mean := blur.Box(img, float64(d.params.ThresholdRadius))
	mb := mean.Bounds()

	if cap(d.dark) < w*h {
		d.dark = make([]bool, w*h)
	}
	d.dark = d.dark[:w*h]

	c := d.params.ThresholdC
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		mrow := mean.Pix[mean.PixOffset(mb.Min.X, mb.Min.Y+y):]
		for x, v := range row {
			d.dark[y*w+x] = float64(v) < float64(mrow[4*x])-c
		}
	}
}

func (d *Detector) resetSeen(n int) {
	if cap(d.seen) < n {
		d.seen = make([]bool, n)
	}
	d.seen = d.seen[:n]
	clear(d.seen)
}

// collectComponent flood-fills the 8-connected dark region containing start
// into d.comp and returns its bounding box in pixel coordinates.
func (d *Detector) collectComponent(start, w, h int) image.Rectangle {
	d.comp = d.comp[:0]
	d.stack = append(d.stack[:0], start)
	d.seen[start] = true

	minX, minY := w, h
	maxX, maxY := -1, -1
	for len(d.stack) > 0 {
		i := d.stack[len(d.stack)-1]
		d.stack = d.stack[:len(d.stack)-1]
		d.comp = append(d.comp, i)

		x, y := i%w, i/w
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)

		for dy := -1; dy <= 1; dy++ {
			ny := y + dy
			if ny < 0 || ny >= h {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				nx := x + dx
				if nx < 0 || nx >= w {
					continue
				}
				j := ny*w + nx
				if d.dark[j] && !d.seen[j] {
					d.seen[j] = true
					d.stack = append(d.stack, j)
				}
			}
		}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// rowExtremes returns the leftmost and rightmost pixel of every row of the
// current component. Their hull equals the hull of the whole component.
func (d *Detector) rowExtremes(bounds image.Rectangle, w int) []point {
	rows := bounds.Dy()
	lo := make([]int, rows)
	hi := make([]int, rows)
	for i := range lo {
		lo[i], hi[i] = math.MaxInt, -1
	}
	for _, i := range d.comp {
		x, r := i%w, i/w-bounds.Min.Y
		lo[r] = min(lo[r], x)
		hi[r] = max(hi[r], x)
	}

	pts := make([]point, 0, 2*rows)
	for r := 0; r < rows; r++ {
		if hi[r] < 0 {
			continue
		}
		y := float64(bounds.Min.Y + r)
		pts = append(pts, point{float64(lo[r]), y}, point{float64(hi[r]), y})
	}
	return pts
}

// decode samples the cell grid inside quad and matches it against the
// dictionary. The returned corners are rotated so index 0 is the marker's own
// top-left corner.
func (d *Detector) decode(img *image.Gray, quad [4]point) (int, [4]point, bool) {
	hm, err := solveHomography(quad)
	if err != nil {
		return 0, quad, false
	}

	w, h := img.Rect.Dx(), img.Rect.Dy()
	var cells [gridCells][gridCells]float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for r := 0; r < gridCells; r++ {
		for c := 0; c < gridCells; c++ {
			var sum float64
			for _, dv := range samplesPerAxis {
				for _, du := range samplesPerAxis {
					p := hm.project((float64(c)+du)/gridCells, (float64(r)+dv)/gridCells)
					if math.IsNaN(p.X) || math.IsNaN(p.Y) {
						return 0, quad, false
					}
					x := clampInt(int(math.Round(p.X)), 0, w-1)
					y := clampInt(int(math.Round(p.Y)), 0, h-1)
					sum += float64(img.Pix[y*img.Stride+x])
				}
			}
			v := sum / float64(len(samplesPerAxis)*len(samplesPerAxis))
			cells[r][c] = v
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if hi-lo < d.params.MinCellContrast {
		return 0, quad, false
	}
	mid := (lo + hi) / 2

	borderErrors, borderCells := 0, 4*(gridCells-1)
	for r := 0; r < gridCells; r++ {
		for c := 0; c < gridCells; c++ {
			if (r == 0 || r == gridCells-1 || c == 0 || c == gridCells-1) && cells[r][c] > mid {
				borderErrors++
			}
		}
	}
	if float64(borderErrors) > d.params.MaxBorderErrorRate*float64(borderCells) {
		return 0, quad, false
	}

	var code uint16
	for r := 0; r < MarkerBits; r++ {
		for c := 0; c < MarkerBits; c++ {
			if cells[r+1][c+1] > mid {
				code |= 1 << (MarkerBits*MarkerBits - 1 - (r*MarkerBits + c))
			}
		}
	}

	id, rotation, ok := d.dict.Identify(code)
	if !ok {
		return 0, quad, false
	}
	var corners [4]point
	for i := range corners {
		corners[i] = quad[(i+rotation)%4]
	}
	return id, corners, true
}

type found struct {
	id      int
	corners [4]point
}

func (f found) center() point {
	var c point
	for _, p := range f.corners {
		c.X += p.X / 4
		c.Y += p.Y / 4
	}
	return c
}

func (f found) perimeter() float64 {
	var s float64
	for i := range f.corners {
		s += dist(f.corners[i], f.corners[(i+1)%4])
	}
	return s
}

// appendUnique adds a detection unless the same id was already found at
// roughly the same place, in which case the larger outline wins.
func appendUnique(list []found, id int, corners [4]point) []found {
	f := found{id: id, corners: corners}
	for i, g := range list {
		if g.id != id {
			continue
		}
		if dist(f.center(), g.center()) < math.Min(f.perimeter(), g.perimeter())/8 {
			if f.perimeter() > g.perimeter() {
				list[i] = f
			}
			return list
		}
	}
	return append(list, f)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
