package dpc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"stemdpc/internal/models"
	"stemdpc/pkg/interpolation"
)

// Peak describes the dominant peak of a 1D signal, measured at half of its
// prominence.
type Peak struct {
	Index      int
	Height     float64
	Prominence float64
	Left       float64 // interpolated left edge
	Right      float64 // interpolated right edge
}

// Width is the distance between the interpolated edges.
func (p Peak) Width() float64 { return p.Right - p.Left }

// Center is the midpoint of the interpolated edges.
func (p Peak) Center() float64 { return (p.Left + p.Right) / 2 }

// minPeakWidth is the narrowest edge accepted as the bright-field disk boundary.
const minPeakWidth = 1.0

// relHeight places the width measurement at half prominence.
const relHeight = 0.5

// EstimateCalibration converts the bright-field disk radius of a pattern into
// detector pixels per unit of convergence angle.
//
// The pattern is resampled to polar coordinates around center and averaged
// over angle. The disk edge is the most prominent peak of the absolute
// radial gradient, and its radius is the midpoint of that peak's half-height
// edges.
func EstimateCalibration(pattern mat.Matrix, center models.Point, convergentAngle float64) (float64, error) {
	if convergentAngle <= 0 || math.IsNaN(convergentAngle) || math.IsInf(convergentAngle, 0) {
		return 0, invalidParam("convergence angle must be positive and finite, got %g", convergentAngle)
	}
	radius, err := DiskRadius(pattern, center)
	if err != nil {
		return 0, err
	}
	return radius / convergentAngle, nil
}

// DiskRadius measures the bright-field disk radius in pixels.
func DiskRadius(pattern mat.Matrix, center models.Point) (float64, error) {
	polar := interpolation.WarpPolar(pattern, center.Y, center.X, 0, interpolation.DefaultAngles)
	profile := interpolation.RadialProfile(polar)
	grad := Gradient1D(profile)
	for i, v := range grad {
		grad[i] = math.Abs(v)
	}
	peak, err := DominantPeak(grad)
	if err != nil {
		return 0, fmt.Errorf("calibration: %w", err)
	}
	return peak.Center(), nil
}

// Gradient1D returns the derivative of x using central differences in the
// interior and one-sided differences at both ends.
func Gradient1D(x []float64) []float64 {
	n := len(x)
	g := make([]float64, n)
	if n < 2 {
		return g
	}
	g[0] = x[1] - x[0]
	g[n-1] = x[n-1] - x[n-2]
	for i := 1; i < n-1; i++ {
		g[i] = (x[i+1] - x[i-1]) / 2
	}
	return g
}

// localMaxima returns the indices of all local maxima of x. A flat top counts
// once, at its middle sample. The first and last samples are never maxima.
func localMaxima(x []float64) []int {
	var peaks []int
	n := len(x)
	i := 1
	for i < n-1 {
		if x[i-1] < x[i] {
			ahead := i + 1
			for ahead < n-1 && x[ahead] == x[i] {
				ahead++
			}
			if x[ahead] < x[i] {
				peaks = append(peaks, (i+ahead-1)/2)
				i = ahead
			}
		}
		i++
	}
	return peaks
}

// DominantPeak selects the highest local maximum of x and measures its
// prominence and half-prominence edges. When several maxima share the
// highest value the first one wins. Peaks narrower than one sample are
// rejected with ErrNoPeak.
func DominantPeak(x []float64) (Peak, error) {
	maxima := localMaxima(x)
	if len(maxima) == 0 {
		return Peak{}, ErrNoPeak
	}
	best := maxima[0]
	for _, p := range maxima[1:] {
		if x[p] > x[best] {
			best = p
		}
	}

	prom, leftBase, rightBase := prominence(x, best)
	left, right := peakEdges(x, best, x[best]-prom*relHeight, leftBase, rightBase)
	peak := Peak{
		Index:      best,
		Height:     x[best],
		Prominence: prom,
		Left:       left,
		Right:      right,
	}
	if peak.Width() < minPeakWidth {
		return Peak{}, fmt.Errorf("%w: peak at %d is %.3g samples wide", ErrNoPeak, best, peak.Width())
	}
	return peak, nil
}

// prominence walks outwards from peak until a higher sample (or the signal
// end) is met, keeping the lowest point on each side. The higher of the two
// minima is the reference level.
func prominence(x []float64, peak int) (prom float64, leftBase, rightBase int) {
	leftMin := x[peak]
	leftBase = peak
	for i := peak; i >= 0 && x[i] <= x[peak]; i-- {
		if x[i] < leftMin {
			leftMin = x[i]
			leftBase = i
		}
	}

	rightMin := x[peak]
	rightBase = peak
	for i := peak; i < len(x) && x[i] <= x[peak]; i++ {
		if x[i] < rightMin {
			rightMin = x[i]
			rightBase = i
		}
	}

	return x[peak] - math.Max(leftMin, rightMin), leftBase, rightBase
}

// peakEdges finds where x first drops to height on either side of peak,
// interpolating linearly between samples.
func peakEdges(x []float64, peak int, height float64, leftBase, rightBase int) (left, right float64) {
	i := peak
	for leftBase < i && height < x[i] {
		i--
	}
	left = float64(i)
	if x[i] < height {
		left += (height - x[i]) / (x[i+1] - x[i])
	}

	i = peak
	for i < rightBase && height < x[i] {
		i++
	}
	right = float64(i)
	if x[i] < height {
		right -= (height - x[i]) / (x[i-1] - x[i])
	}
	return left, right
}
