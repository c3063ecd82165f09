package dpc

import (
	"errors"
	"math"
	"testing"

	"stemdpc/internal/models"
)

func TestGradient1D(t *testing.T) {
	got := Gradient1D([]float64{1, 2, 4, 7, 11})
	want := []float64{1, 1.5, 2.5, 3.5, 4}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("Gradient1D[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if g := Gradient1D([]float64{5}); len(g) != 1 || g[0] != 0 {
		t.Errorf("Expected single zero for length-1 input, got %v", g)
	}
}

func TestLocalMaxima(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		want []int
	}{
		{"Single", []float64{0, 1, 0}, []int{1}},
		{"Plateau", []float64{0, 2, 2, 2, 0}, []int{2}},
		{"EvenPlateau", []float64{0, 2, 2, 0}, []int{1}},
		{"EdgesIgnored", []float64{5, 1, 5}, nil},
		{"PlateauToEnd", []float64{0, 1, 1}, nil},
		{"Two", []float64{0, 3, 1, 4, 0}, []int{1, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := localMaxima(tc.x)
			if len(got) != len(tc.want) {
				t.Fatalf("Expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("Expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestDominantPeak(t *testing.T) {
	// triangle peak of height 4 on a zero baseline
	x := []float64{0, 0, 1, 2, 3, 4, 3, 2, 1, 0, 0, 1, 0}
	peak, err := DominantPeak(x)
	if err != nil {
		t.Fatalf("DominantPeak failed: %v", err)
	}
	if peak.Index != 5 {
		t.Errorf("Expected peak at 5, got %d", peak.Index)
	}
	if peak.Prominence != 4 {
		t.Errorf("Expected prominence 4, got %v", peak.Prominence)
	}
	// half prominence (2) is crossed exactly at samples 3 and 7
	if peak.Left != 3 || peak.Right != 7 {
		t.Errorf("Expected edges 3 and 7, got %v and %v", peak.Left, peak.Right)
	}
	if peak.Center() != 5 {
		t.Errorf("Expected center 5, got %v", peak.Center())
	}
}

func TestDominantPeakInterpolatedEdges(t *testing.T) {
	x := []float64{0, 1, 3, 1, 0}
	peak, err := DominantPeak(x)
	if err != nil {
		t.Fatalf("DominantPeak failed: %v", err)
	}
	// height 1.5 lies a quarter of the way from sample 1 to 2
	if math.Abs(peak.Left-1.25) > 1e-12 || math.Abs(peak.Right-2.75) > 1e-12 {
		t.Errorf("Expected edges 1.25 and 2.75, got %v and %v", peak.Left, peak.Right)
	}
}

func TestDominantPeakNone(t *testing.T) {
	for name, x := range map[string][]float64{
		"Monotonic": {0, 1, 2, 3, 4},
		"Flat":      {0, 0, 0, 0},
		"Empty":     nil,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := DominantPeak(x); !errors.Is(err, ErrNoPeak) {
				t.Errorf("Expected ErrNoPeak, got %v", err)
			}
		})
	}
}

// TestDiskRadius measures the radius of an anti-aliased disk
func TestDiskRadius(t *testing.T) {
	for _, radius := range []float64{8, 12, 16} {
		pattern := createDisk(64, 64, 31, 33, radius)
		got, err := DiskRadius(pattern, models.Point{X: 31, Y: 33})
		if err != nil {
			t.Fatalf("DiskRadius(%v) failed: %v", radius, err)
		}
		if math.Abs(got-radius) > 1.0 {
			t.Errorf("Expected radius near %v, got %v", radius, got)
		}
	}
}

// TestCalibrationScale verifies that doubling the convergence angle halves
// the calibration
func TestCalibrationScale(t *testing.T) {
	pattern := createDisk(48, 48, 24, 24, 10)
	center := models.Point{X: 24, Y: 24}

	c1, err := EstimateCalibration(pattern, center, 20)
	if err != nil {
		t.Fatalf("EstimateCalibration failed: %v", err)
	}
	c2, err := EstimateCalibration(pattern, center, 40)
	if err != nil {
		t.Fatalf("EstimateCalibration failed: %v", err)
	}
	if math.Abs(c1-2*c2) > 1e-12 {
		t.Errorf("Expected calibration to halve, got %v and %v", c1, c2)
	}
	if math.Abs(c1-10.0/20) > 1.0/20 {
		t.Errorf("Expected calibration near %v, got %v", 10.0/20, c1)
	}

	if _, err := EstimateCalibration(pattern, center, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for a zero angle, got %v", err)
	}
}
