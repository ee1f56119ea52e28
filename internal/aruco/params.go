package aruco

import "fmt"

// Params tunes candidate search and bit extraction.
type Params struct {
	// ThresholdRadius is the box radius, in pixels, of the local mean used for
	// adaptive thresholding.
	ThresholdRadius int `yaml:"threshold_radius"`

	// ThresholdC is how far below the local mean a pixel must be to count as
	// dark.
	ThresholdC float64 `yaml:"threshold_c"`

	// MinPerimeterRate and MaxPerimeterRate bound a candidate's bounding-box
	// perimeter relative to the larger image dimension.
	MinPerimeterRate float64 `yaml:"min_perimeter_rate"`
	MaxPerimeterRate float64 `yaml:"max_perimeter_rate"`

	// MinSidePx is the shortest accepted quadrilateral side.
	MinSidePx float64 `yaml:"min_side_px"`

	// MinQuadFill is the minimum ratio of quadrilateral area to hull area.
	MinQuadFill float64 `yaml:"min_quad_fill"`

	// MaxQuadDeviation is the largest allowed distance of a hull vertex from
	// the fitted quadrilateral, as a fraction of the mean side length.
	MaxQuadDeviation float64 `yaml:"max_quad_deviation"`

	// MinCellContrast is the smallest accepted spread between the darkest and
	// brightest sampled cell.
	MinCellContrast float64 `yaml:"min_cell_contrast"`

	// MaxBorderErrorRate is the fraction of border cells allowed to read as
	// white.
	MaxBorderErrorRate float64 `yaml:"max_border_error_rate"`
}

// DefaultParams returns parameters suited to 640x480 camera frames.
func DefaultParams() Params {
	return Params{
		ThresholdRadius:    5,
		ThresholdC:         7,
		MinPerimeterRate:   0.03,
		MaxPerimeterRate:   4.0,
		MinSidePx:          12,
		MinQuadFill:        0.85,
		MaxQuadDeviation:   0.1,
		MinCellContrast:    30,
		MaxBorderErrorRate: 0.35,
	}
}

// Validate reports the first out-of-range field.
func (p Params) Validate() error {
	switch {
	case p.ThresholdRadius < 1:
		return fmt.Errorf("threshold_radius must be >= 1 (got %d)", p.ThresholdRadius)
	case p.ThresholdC < 0:
		return fmt.Errorf("threshold_c must be >= 0 (got %g)", p.ThresholdC)
	case p.MinPerimeterRate <= 0 || p.MaxPerimeterRate <= p.MinPerimeterRate:
		return fmt.Errorf("perimeter rates must satisfy 0 < min < max (got %g, %g)",
			p.MinPerimeterRate, p.MaxPerimeterRate)
	case p.MinSidePx < 3:
		return fmt.Errorf("min_side_px must be >= 3 (got %g)", p.MinSidePx)
	case p.MinQuadFill <= 0 || p.MinQuadFill > 1:
		return fmt.Errorf("min_quad_fill must be in (0,1] (got %g)", p.MinQuadFill)
	case p.MaxQuadDeviation < 0:
		return fmt.Errorf("max_quad_deviation must be >= 0 (got %g)", p.MaxQuadDeviation)
	case p.MaxBorderErrorRate < 0 || p.MaxBorderErrorRate >= 1:
		return fmt.Errorf("max_border_error_rate must be in [0,1) (got %g)", p.MaxBorderErrorRate)
	}
	return nil
}
