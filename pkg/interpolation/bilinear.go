// Package interpolation resamples 2D grids: bilinear sampling with zero fill
// outside the grid, polar warping about a center point and image rotation.
package interpolation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Bilinear samples g at the fractional position (row, col). Neighbours that
// fall outside the grid contribute zero.
func Bilinear(g mat.Matrix, row, col float64) float64 {
	rows, cols := g.Dims()
	r0 := int(math.Floor(row))
	c0 := int(math.Floor(col))
	fr := row - float64(r0)
	fc := col - float64(c0)

	at := func(r, c int) float64 {
		if r < 0 || r >= rows || c < 0 || c >= cols {
			return 0
		}
		return g.At(r, c)
	}

	top := at(r0, c0)*(1-fc) + at(r0, c0+1)*fc
	bottom := at(r0+1, c0)*(1-fc) + at(r0+1, c0+1)*fc
	return top*(1-fr) + bottom*fr
}

// DefaultAngles is the number of angular samples WarpPolar uses, one per degree.
const DefaultAngles = 360

// PolarRadius is the default polar extent for a grid: half its diagonal.
func PolarRadius(rows, cols int) float64 {
	h := float64(rows) / 2
	w := float64(cols) / 2
	return math.Sqrt(h*h + w*w)
}

// WarpPolar resamples g onto a polar grid centered at (centerRow, centerCol).
// Row k of the result is angle 2*pi*k/angles, column r is radius r in
// pixels. The number of radii is ceil(radius); radius <= 0 selects
// PolarRadius.
func WarpPolar(g mat.Matrix, centerRow, centerCol, radius float64, angles int) *mat.Dense {
	if radius <= 0 {
		rows, cols := g.Dims()
		radius = PolarRadius(rows, cols)
	}
	if angles <= 0 {
		angles = DefaultAngles
	}
	width := int(math.Ceil(radius))
	if width < 1 {
		width = 1
	}
	out := mat.NewDense(angles, width, nil)
	kAngle := float64(angles) / (2 * math.Pi)
	kRadius := float64(width) / radius
	for a := 0; a < angles; a++ {
		theta := float64(a) / kAngle
		sin, cos := math.Sincos(theta)
		for r := 0; r < width; r++ {
			rad := float64(r) / kRadius
			out.Set(a, r, Bilinear(g, rad*sin+centerRow, rad*cos+centerCol))
		}
	}
	return out
}

// RadialProfile averages a polar grid over angle, giving one value per radius.
func RadialProfile(polar mat.Matrix) []float64 {
	angles, width := polar.Dims()
	profile := make([]float64, width)
	for a := 0; a < angles; a++ {
		for r := 0; r < width; r++ {
			profile[r] += polar.At(a, r)
		}
	}
	for r := range profile {
		profile[r] /= float64(angles)
	}
	return profile
}

// RotateImage rotates g counter-clockwise by angle degrees about its center.
// With resize the output grows to hold the whole rotated grid; otherwise it
// keeps the input shape. Uncovered pixels are zero.
func RotateImage(g mat.Matrix, angle float64, resize bool) *mat.Dense {
	rows, cols := g.Dims()
	theta := angle * math.Pi / 180
	sin, cos := math.Sincos(theta)

	inCR := float64(rows-1) / 2
	inCC := float64(cols-1) / 2

	outRows, outCols := rows, cols
	if resize {
		minX, maxX := math.Inf(1), math.Inf(-1)
		minY, maxY := math.Inf(1), math.Inf(-1)
		for _, corner := range [][2]float64{{0, 0}, {0, float64(rows - 1)}, {float64(cols - 1), 0}, {float64(cols - 1), float64(rows - 1)}} {
			x := corner[0] - inCC
			y := corner[1] - inCR
			// forward rotation of the corner into output space
			rx := x*cos + y*sin
			ry := -x*sin + y*cos
			minX, maxX = math.Min(minX, rx), math.Max(maxX, rx)
			minY, maxY = math.Min(minY, ry), math.Max(maxY, ry)
		}
		outCols = int(math.Round(maxX - minX + 1))
		outRows = int(math.Round(maxY - minY + 1))
	}

	outCR := float64(outRows-1) / 2
	outCC := float64(outCols-1) / 2
	out := mat.NewDense(outRows, outCols, nil)
	for r := 0; r < outRows; r++ {
		for c := 0; c < outCols; c++ {
			x := float64(c) - outCC
			y := float64(r) - outCR
			srcC := x*cos - y*sin + inCC
			srcR := x*sin + y*cos + inCR
			out.Set(r, c, Bilinear(g, srcR, srcC))
		}
	}
	return out
}
