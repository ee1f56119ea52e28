package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/marker-tools-mcp/internal/detection"
)

// EncodedImage is a PNG returned to MCP clients.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	b := img.Bounds()
	return &EncodedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// MarkerColor returns the outline colour used for a marker id. Ids are spread
// around the hue circle by the golden angle so neighbouring ids contrast.
func MarkerColor(id int32) color.NRGBA {
	hue := math.Mod(float64(id)*137.508, 360)
	if hue < 0 {
		hue += 360
	}
	r, g, b := colorful.Hsv(hue, 0.85, 0.95).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Annotate draws each marker onto a copy of img: its outline, a crosshair at
// its centre, a dot on corner 0 and its id next to that corner.
func Annotate(img image.Image, markers []detection.DetectedMarker) (*EncodedImage, error) {
	canvas := imaging.Clone(img)

	for _, m := range markers {
		c := MarkerColor(m.ID)
		for i := range m.Corners {
			a, b := m.Corners[i], m.Corners[(i+1)%4]
			drawLine(canvas, round(a.X), round(a.Y), round(b.X), round(b.Y), c)
		}

		cx, cy := round(m.Center.X), round(m.Center.Y)
		drawLine(canvas, cx-4, cy, cx+4, cy, c)
		drawLine(canvas, cx, cy-4, cx, cy+4, c)

		x0, y0 := round(m.Corners[0].X), round(m.Corners[0].Y)
		fillSquare(canvas, x0, y0, 2, c)
		drawLabel(canvas, x0+4, y0+4, strconv.Itoa(int(m.ID)), color.NRGBA{255, 255, 255, 255}, c)
	}

	return EncodePNG(canvas)
}

func round(v float32) int {
	return int(math.Round(float64(v)))
}

// drawLine draws a one-pixel line with Bresenham's algorithm, clipped to the
// image.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		setClipped(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func fillSquare(img *image.NRGBA, cx, cy, r int, c color.NRGBA) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			setClipped(img, x, y, c)
		}
	}
}

func setClipped(img *image.NRGBA, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(img.Rect) {
		img.SetNRGBA(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// digitGlyphs is a 3x5 pixel font for marker ids.
var digitGlyphs = map[rune][5]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	'-': {"000", "000", "111", "000", "000"},
}

// drawLabel draws text on a filled background box at (x, y).
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	const charWidth, labelHeight = 4, 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < len(text)*charWidth; dx++ {
			setClipped(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := digitGlyphs[ch]
		if ok {
			for row, line := range glyph {
				for col, px := range line {
					if px == '1' {
						setClipped(img, cx+col, y+row, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
