package dpc

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"stemdpc/internal/models"
)

// diskValue is an anti-aliased disk: 1 inside, 0 outside, and a linear ramp
// across the one-pixel boundary so the edge sits exactly at radius.
func diskValue(r, c int, cx, cy, radius float64) float64 {
	d := math.Hypot(float64(c)-cx, float64(r)-cy)
	return math.Max(0, math.Min(1, radius+0.5-d))
}

// createDisk builds a detector image holding a single bright-field disk
func createDisk(rows, cols int, cx, cy, radius float64) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.Set(r, c, diskValue(r, c, cx, cy, radius))
		}
	}
	return m
}

// createShiftedVolume builds a scan volume whose pattern at (i, j) is a disk
// displaced by shift(i, j) from (cx, cy)
func createShiftedVolume(t *testing.T, scanRows, scanCols, det int, cx, cy, radius float64,
	shift func(i, j int) (dx, dy float64)) *models.Volume {
	t.Helper()
	vol, err := models.NewVolume(scanRows, scanCols, det, det, nil)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	for i := 0; i < scanRows; i++ {
		for j := 0; j < scanCols; j++ {
			dx, dy := shift(i, j)
			for r := 0; r < det; r++ {
				for c := 0; c < det; c++ {
					vol.Set(i, j, r, c, diskValue(r, c, cx+dx, cy+dy, radius))
				}
			}
		}
	}
	return vol
}

// checkerShift displaces disks by -1, 0 or +1 pixel along each axis so the
// mean pattern stays centered
func checkerShift(i, j int) (dx, dy float64) {
	return float64(j%3 - 1), float64(i%3 - 1)
}

func volumeInput(vol *models.Volume) models.Input {
	return models.Input{Kind: models.KindScanVolume, Shape: vol.Shape[:], Data: vol.Data}
}

// createGradientField returns -grad(phi) for phi = cos(kx) + cos(ky) with
// k = 2*pi*mode/n, together with phi itself
func createGradientField(n, mode int) (*Field, *mat.Dense) {
	k := 2 * math.Pi * float64(mode) / float64(n)
	phi := mat.NewDense(n, n, nil)
	ex := mat.NewDense(n, n, nil)
	ey := mat.NewDense(n, n, nil)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			phi.Set(r, c, math.Cos(k*float64(c))+math.Cos(k*float64(r)))
			ex.Set(r, c, k*math.Sin(k*float64(c)))
			ey.Set(r, c, k*math.Sin(k*float64(r)))
		}
	}
	return &Field{X: ex, Y: ey}, phi
}

// correlation is the Pearson correlation of two equally shaped matrices
func correlation(a, b *mat.Dense) float64 {
	return stat.Correlation(mat.DenseCopyOf(a).RawMatrix().Data, mat.DenseCopyOf(b).RawMatrix().Data, nil)
}
