package dpc

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"

	"stemdpc/pkg/interpolation"
)

// FieldMap bundles a center-of-mass field that was computed elsewhere with
// the maps derived from it. The derived maps are rebuilt whenever the field
// changes.
type FieldMap struct {
	Field     *Field
	Complex   *mat.CDense
	Potential *mat.Dense
	RGB       *image.RGBA

	hpass, lpass float64
}

// NewFieldMap wraps x and y. With maxDivergence the vectors are first
// rotated by the angle FindRotation reports.
func NewFieldMap(x, y *mat.Dense, maxDivergence bool) (*FieldMap, error) {
	f, err := NewField(x, y)
	if err != nil {
		return nil, err
	}
	if maxDivergence {
		angle, err := FindRotation(f, DefaultRotationRounds)
		if err != nil {
			return nil, err
		}
		f = f.Rotate(angle)
	}
	m := &FieldMap{hpass: DefaultHighPass, lpass: DefaultLowPass}
	if err := m.update(f); err != nil {
		return nil, err
	}
	return m, nil
}

// Rotate turns the whole map counter-clockwise by angle degrees: both
// component images are resampled and every vector is rotated by the same
// angle. With resize the maps grow to hold the rotated grid.
func (m *FieldMap) Rotate(angle float64, resize bool) error {
	x := interpolation.RotateImage(m.Field.X, angle, resize)
	y := interpolation.RotateImage(m.Field.Y, angle, resize)
	f := (&Field{X: x, Y: y}).Rotate(angle * math.Pi / 180)
	return m.update(f)
}

func (m *FieldMap) update(f *Field) error {
	c := f.Complex()
	pot, err := SolvePotential(c, m.hpass, m.lpass)
	if err != nil {
		return err
	}
	m.Field = f
	m.Complex = c
	m.Potential = pot
	m.RGB = f.ToRGB()
	return nil
}
