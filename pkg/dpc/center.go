// Package dpc implements differential phase contrast analysis of 4D-STEM
// data: locating the direct beam, calibrating the detector, extracting the
// center-of-mass shift field, finding the scan rotation and reconstructing
// the projected potential.
package dpc

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"stemdpc/internal/models"
)

// CenterMethod selects which image the center locator takes the centroid of.
type CenterMethod int

const (
	// CenterPattern uses the raw intensity pattern.
	CenterPattern CenterMethod = iota

	// CenterMask uses the binary mask of pixels above the threshold.
	CenterMask

	// CenterMaskedPattern uses the pattern multiplied by the mask.
	CenterMaskedPattern
)

func (m CenterMethod) String() string {
	switch m {
	case CenterMask:
		return "mask"
	case CenterMaskedPattern:
		return "mask_cbed"
	default:
		return "cbed"
	}
}

// ParseCenterMethod maps a method name to a CenterMethod. Unrecognised names,
// including the empty string, select CenterPattern.
func ParseCenterMethod(s string) CenterMethod {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mask":
		return CenterMask
	case "mask_cbed", "masked", "mask-cbed":
		return CenterMaskedPattern
	default:
		return CenterPattern
	}
}

// Normalize rescales a pattern to [0, 1] by its own minimum and maximum.
// A pattern with no dynamic range is rejected.
func Normalize(pattern mat.Matrix) (*mat.Dense, error) {
	rows, cols := pattern.Dims()
	out := mat.DenseCopyOf(pattern)
	raw := out.RawMatrix()
	if raw.Stride != cols {
		return nil, fmt.Errorf("normalize: unexpected stride %d for %d columns", raw.Stride, cols)
	}
	data := raw.Data[:rows*cols]
	lo, hi := floats.Min(data), floats.Max(data)
	if hi-lo == 0 {
		return nil, degenerate("normalize", "pattern has zero dynamic range (constant value %g)", lo)
	}
	floats.AddConst(-lo, data)
	floats.Scale(1/(hi-lo), data)
	return out, nil
}

// ThresholdMask returns 1 where the normalized pattern exceeds threshold and
// 0 elsewhere.
func ThresholdMask(pattern mat.Matrix, threshold float64) (*mat.Dense, error) {
	norm, err := Normalize(pattern)
	if err != nil {
		return nil, err
	}
	norm.Apply(func(_, _ int, v float64) float64 {
		if v > threshold {
			return 1
		}
		return 0
	}, norm)
	return norm, nil
}

// CenterOfMass returns the intensity-weighted mean (row, col) position of g.
func CenterOfMass(g mat.Matrix) (row, col float64, err error) {
	rows, cols := g.Dims()
	var total, sr, sc float64
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := g.At(r, c)
			total += v
			sr += v * float64(r)
			sc += v * float64(c)
		}
	}
	if total == 0 {
		return 0, 0, degenerate("center of mass", "total intensity is zero")
	}
	return sr / total, sc / total, nil
}

// FindCenter locates the direct beam in a (mean) diffraction pattern to
// sub-pixel precision.
//
// Parameters:
//   - pattern: detector image, typically the mean over all scan positions
//   - threshold: fraction of the normalized intensity range used for the mask
//   - method: which image the centroid is taken of
//
// Returns:
//   - The beam center, X along columns and Y along rows
func FindCenter(pattern mat.Matrix, threshold float64, method CenterMethod) (models.Point, error) {
	mask, err := ThresholdMask(pattern, threshold)
	if err != nil {
		return models.Point{}, fmt.Errorf("find center: %w", err)
	}

	var target mat.Matrix
	switch method {
	case CenterMask:
		target = mask
	case CenterMaskedPattern:
		var prod mat.Dense
		prod.MulElem(pattern, mask)
		target = &prod
	default:
		target = pattern
	}

	y, x, err := CenterOfMass(target)
	if err != nil {
		return models.Point{}, fmt.Errorf("find center (%s): %w", method, err)
	}
	return models.Point{X: x, Y: y}, nil
}
