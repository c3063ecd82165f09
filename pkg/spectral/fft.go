// Package spectral provides the 2D Fourier helpers used by the potential
// solver: complex FFTs of arbitrary size and the quadrant shifts that move
// the zero frequency to the middle of the array.
package spectral

import (
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// FFT2 performs a 2D forward Fast Fourier Transform of a complex matrix.
// Rows are transformed first, then columns. The result is unnormalized,
// matching the usual forward DFT definition.
func FFT2(m *mat.CDense) *mat.CDense {
	return transform2D(m, false)
}

// IFFT2 performs the inverse of FFT2, including the 1/(rows*cols) scaling.
func IFFT2(m *mat.CDense) *mat.CDense {
	return transform2D(m, true)
}

func transform2D(m *mat.CDense, inverse bool) *mat.CDense {
	rows, cols := m.Dims()
	result := mat.NewCDense(rows, cols, nil)

	// Row-wise transform
	rowFFT := fourier.NewCmplxFFT(cols)
	rowIn := make([]complex128, cols)
	rowOut := make([]complex128, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			rowIn[j] = m.At(i, j)
		}
		if inverse {
			rowFFT.Sequence(rowOut, rowIn)
		} else {
			rowFFT.Coefficients(rowOut, rowIn)
		}
		for j := 0; j < cols; j++ {
			result.Set(i, j, rowOut[j])
		}
	}

	// Column-wise transform
	colFFT := fourier.NewCmplxFFT(rows)
	colIn := make([]complex128, rows)
	colOut := make([]complex128, rows)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			colIn[i] = result.At(i, j)
		}
		if inverse {
			colFFT.Sequence(colOut, colIn)
		} else {
			colFFT.Coefficients(colOut, colIn)
		}
		for i := 0; i < rows; i++ {
			result.Set(i, j, colOut[i])
		}
	}

	if inverse {
		scale := complex(1/float64(rows*cols), 0)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				result.Set(i, j, result.At(i, j)*scale)
			}
		}
	}
	return result
}

// Shift moves the zero-frequency term to the center of the array
// (element [0,0] lands on [rows/2, cols/2]).
func Shift(m *mat.CDense) *mat.CDense {
	rows, cols := m.Dims()
	return roll(m, rows/2, cols/2)
}

// IShift undoes Shift. It differs from Shift only for odd sizes.
func IShift(m *mat.CDense) *mat.CDense {
	rows, cols := m.Dims()
	return roll(m, -(rows / 2), -(cols / 2))
}

// roll circularly shifts rows by dr and columns by dc.
func roll(m *mat.CDense, dr, dc int) *mat.CDense {
	rows, cols := m.Dims()
	out := mat.NewCDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		ti := ((i+dr)%rows + rows) % rows
		for j := 0; j < cols; j++ {
			tj := ((j+dc)%cols + cols) % cols
			out.Set(ti, tj, m.At(i, j))
		}
	}
	return out
}

// Linspace returns n evenly spaced values from lo to hi. The last value is
// hi when endpoint is true; otherwise the interval is half-open.
func Linspace(lo, hi float64, n int, endpoint bool) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	div := float64(n)
	if endpoint {
		div = float64(n - 1)
	}
	step := (hi - lo) / div
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	if endpoint {
		out[n-1] = hi
	}
	return out
}

// FromReal packs a real matrix into a complex one with zero imaginary part.
func FromReal(m mat.Matrix) *mat.CDense {
	rows, cols := m.Dims()
	out := mat.NewCDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, complex(m.At(i, j), 0))
		}
	}
	return out
}

// RealPart extracts the real component of a complex matrix.
func RealPart(m *mat.CDense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, real(m.At(i, j)))
		}
	}
	return out
}

// ImagPart extracts the imaginary component of a complex matrix.
func ImagPart(m *mat.CDense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, imag(m.At(i, j)))
		}
	}
	return out
}
