package aruco

import (
	"fmt"
	"math/bits"
)

// MarkerBits is the side length of the data grid, excluding the border.
const MarkerBits = 4

// Dictionary is a fixed set of square binary markers.
//
// Codes are stored row-major with the top-left cell in the most significant
// bit; a set bit is a white cell. Every code differs from every rotation of
// every other code (and from its own non-trivial rotations) in at least
// MinDistance bits, so up to MaxCorrectionBits flipped cells are corrected
// without ambiguity of id or orientation.
//
// A Dictionary is immutable after construction and safe to share.
type Dictionary struct {
	Name              string
	MinDistance       int
	MaxCorrectionBits int

	// rotations[id][r] is the code as it reads after the marker is turned
	// clockwise r quarter turns.
	rotations [][4]uint16
}

// dict4x4x50 holds 50 codes with rotation-aware minimum distance 4, chosen
// greedily from a fixed odd-multiplier walk over the 16-bit code space with
// 5 to 11 white cells per marker.
var dict4x4x50 = []uint16{
	0x9E37, 0x3C6E, 0xDAA5, 0x78DC, 0x1713, 0x5381, 0xF1B8, 0x2E26, 0x6A94, 0x08CB,
	0xA702, 0xE370, 0x1FDE, 0x98BA, 0x36F1, 0xD528, 0x735F, 0x1196, 0xAFCD, 0x4E04,
	0x8A72, 0x28A9, 0xC6E0, 0x034E, 0x1A61, 0x56CF, 0x933D, 0x6DE2, 0xE6BE, 0x9C08,
	0xD876, 0x8DC0, 0x2BF7, 0xCA2E, 0x5A1D, 0x4BD5, 0x011F, 0x910E, 0x82C6, 0x20FD,
	0xFBA2, 0xFEF0, 0xD995, 0x77CC, 0xCB4D, 0x97AA, 0xAEBD, 0x6407, 0x221C, 0x5E8A,
}

var default4x4x50 = NewDictionary("4X4_50", dict4x4x50, 4)

// Dictionary4x4x50 returns the built-in 50-marker 4x4 dictionary.
func Dictionary4x4x50() *Dictionary {
	return default4x4x50
}

// NewDictionary builds a dictionary from row-major codes. minDistance is the
// guaranteed rotation-aware Hamming distance between codes.
func NewDictionary(name string, codes []uint16, minDistance int) *Dictionary {
	d := &Dictionary{
		Name:              name,
		MinDistance:       minDistance,
		MaxCorrectionBits: (minDistance - 1) / 2,
		rotations:         make([][4]uint16, len(codes)),
	}
	for id, c := range codes {
		r := c
		for i := 0; i < 4; i++ {
			d.rotations[id][i] = r
			r = rotateCode(r)
		}
	}
	return d
}

// Len returns the number of markers.
func (d *Dictionary) Len() int {
	return len(d.rotations)
}

// Code returns the unrotated code for id.
func (d *Dictionary) Code(id int) (uint16, error) {
	if id < 0 || id >= len(d.rotations) {
		return 0, fmt.Errorf("marker id %d outside dictionary %s (0-%d)", id, d.Name, len(d.rotations)-1)
	}
	return d.rotations[id][0], nil
}

// Cells returns the data grid for id, true meaning white.
func (d *Dictionary) Cells(id int) ([MarkerBits][MarkerBits]bool, error) {
	var grid [MarkerBits][MarkerBits]bool
	code, err := d.Code(id)
	if err != nil {
		return grid, err
	}
	for r := 0; r < MarkerBits; r++ {
		for c := 0; c < MarkerBits; c++ {
			grid[r][c] = codeBit(code, r, c)
		}
	}
	return grid, nil
}

// Identify matches an observed code against every id and orientation.
//
// rotation is the number of clockwise quarter turns the marker has undergone
// relative to its canonical orientation. ok is false when the best match
// needs more than MaxCorrectionBits corrections.
func (d *Dictionary) Identify(observed uint16) (id, rotation int, ok bool) {
	best := MarkerBits*MarkerBits + 1
	for i, rots := range d.rotations {
		for r, code := range rots {
			dist := bits.OnesCount16(code ^ observed)
			if dist < best {
				best, id, rotation = dist, i, r
			}
		}
	}
	if best > d.MaxCorrectionBits {
		return 0, 0, false
	}
	return id, rotation, true
}

func codeBit(code uint16, row, col int) bool {
	k := row*MarkerBits + col
	return code>>(MarkerBits*MarkerBits-1-k)&1 == 1
}

// rotateCode turns a grid clockwise by one quarter:
// new[r][c] = old[n-1-c][r].
func rotateCode(code uint16) uint16 {
	var out uint16
	for r := 0; r < MarkerBits; r++ {
		for c := 0; c < MarkerBits; c++ {
			if codeBit(code, MarkerBits-1-c, r) {
				out |= 1 << (MarkerBits*MarkerBits - 1 - (r*MarkerBits + c))
			}
		}
	}
	return out
}
