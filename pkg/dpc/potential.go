package dpc

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"stemdpc/pkg/spectral"
)

const (
	// DefaultHighPass damps the zero-frequency term of the Poisson solve.
	DefaultHighPass = 0.015

	// DefaultLowPass disables high-frequency damping.
	DefaultLowPass = 0.0
)

// SolvePotential reconstructs the scalar potential V whose negative gradient
// best matches field, where the real part of field is the X component and
// the imaginary part the Y component.
//
// Both components are Fourier transformed, combined into the spectral
// divergence using wavenumbers spanning [-1, 1] on each axis, and divided by
//
//	2*pi*i*(hpass + k^2 + lpass*k^4)
//
// hpass keeps the division finite near zero frequency and lpass suppresses
// noise at high frequency. Where the denominator is exactly zero the
// coefficient is dropped, since V is only defined up to a constant.
func SolvePotential(field *mat.CDense, hpass, lpass float64) (*mat.Dense, error) {
	if hpass < 0 || math.IsNaN(hpass) {
		return nil, invalidParam("hpass must be non-negative, got %g", hpass)
	}
	if lpass < 0 || math.IsNaN(lpass) {
		return nil, invalidParam("lpass must be non-negative, got %g", lpass)
	}

	comps := FieldFromComplex(field)
	fx := spectral.Shift(spectral.FFT2(spectral.Shift(spectral.FromReal(comps.X))))
	fy := spectral.Shift(spectral.FFT2(spectral.Shift(spectral.FromReal(comps.Y))))

	rows, cols := field.Dims()
	kx := spectral.Linspace(-1, 1, cols, true)
	ky := spectral.Linspace(-1, 1, rows, true)

	fk := mat.NewCDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			k2 := kx[j]*kx[j] + ky[i]*ky[i]
			denom := complex(0, 2*math.Pi*(hpass+k2+lpass*k2*k2))
			if denom == 0 {
				continue
			}
			num := -(fx.At(i, j)*complex(kx[j], 0) + fy.At(i, j)*complex(ky[i], 0))
			fk.Set(i, j, num/denom)
		}
	}

	return spectral.RealPart(spectral.IShift(spectral.IFFT2(spectral.IShift(fk)))), nil
}

// ChargeDensity returns the divergence of field, which by Gauss's law is
// proportional to the projected charge density for E = -grad(V).
func ChargeDensity(field *Field) *mat.Dense {
	return field.Divergence()
}
