package dpc

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"stemdpc/internal/models"
)

// TestCenterOfMassField checks that each probe position reports its disk
// displacement divided by the calibration
func TestCenterOfMassField(t *testing.T) {
	det := 40
	cx, cy := 20.0, 19.0
	calibration := 0.5
	vol := createShiftedVolume(t, 4, 5, det, cx, cy, 7, func(i, j int) (float64, float64) {
		return float64(j - 2), float64(i - 1)
	})

	field, err := CenterOfMassField(vol, models.Point{X: cx, Y: cy}, calibration, nil)
	if err != nil {
		t.Fatalf("CenterOfMassField failed: %v", err)
	}
	rows, cols := field.Dims()
	if rows != 4 || cols != 5 {
		t.Fatalf("Expected 4x5 field, got %dx%d", rows, cols)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			wantX := float64(j-2) / calibration
			wantY := float64(i-1) / calibration
			if math.Abs(field.X.At(i, j)-wantX) > 1e-9 || math.Abs(field.Y.At(i, j)-wantY) > 1e-9 {
				t.Errorf("(%d,%d): expected (%v,%v), got (%v,%v)",
					i, j, wantX, wantY, field.X.At(i, j), field.Y.At(i, j))
			}
		}
	}
}

// TestCenterOfMassFieldMask verifies that masked pixels are excluded
func TestCenterOfMassFieldMask(t *testing.T) {
	vol, err := models.NewVolume(1, 1, 3, 3, []float64{
		1, 0, 0,
		0, 0, 0,
		0, 0, 1,
	})
	if err != nil {
		t.Fatalf("NewVolume failed: %v", err)
	}
	mask := mat.NewDense(3, 3, []float64{
		0, 0, 0,
		0, 1, 1,
		0, 1, 1,
	})

	field, err := CenterOfMassField(vol, models.Point{X: 1, Y: 1}, 1, mask)
	if err != nil {
		t.Fatalf("CenterOfMassField failed: %v", err)
	}
	// only the bottom-right pixel survives the mask
	if field.X.At(0, 0) != 1 || field.Y.At(0, 0) != 1 {
		t.Errorf("Expected (1,1), got (%v,%v)", field.X.At(0, 0), field.Y.At(0, 0))
	}

	field, err = CenterOfMassField(vol, models.Point{X: 1, Y: 1}, 1, nil)
	if err != nil {
		t.Fatalf("CenterOfMassField failed: %v", err)
	}
	if field.X.At(0, 0) != 0 || field.Y.At(0, 0) != 0 {
		t.Errorf("Expected (0,0) without mask, got (%v,%v)", field.X.At(0, 0), field.Y.At(0, 0))
	}
}

func TestCenterOfMassFieldErrors(t *testing.T) {
	vol, err := models.NewVolume(2, 2, 4, 4, nil)
	if err != nil {
		t.Fatalf("NewVolume failed: %v", err)
	}

	t.Run("ZeroIntensity", func(t *testing.T) {
		_, err := CenterOfMassField(vol, models.Point{}, 1, nil)
		var degenerateErr *DegenerateInputError
		if !errors.As(err, &degenerateErr) {
			t.Errorf("Expected DegenerateInputError, got %v", err)
		}
	})

	t.Run("MaskShape", func(t *testing.T) {
		vol.Set(0, 0, 1, 1, 1)
		_, err := CenterOfMassField(vol, models.Point{}, 1, mat.NewDense(3, 3, nil))
		var shapeErr *models.ShapeError
		if !errors.As(err, &shapeErr) {
			t.Errorf("Expected ShapeError, got %v", err)
		}
	})

	t.Run("Calibration", func(t *testing.T) {
		if _, err := CenterOfMassField(vol, models.Point{}, 0, nil); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("Expected ErrInvalidParameter, got %v", err)
		}
	})
}

// TestCenterOfMassFieldWorkers checks that splitting the scan across
// goroutines gives the same field as a single worker
func TestCenterOfMassFieldWorkers(t *testing.T) {
	vol := createShiftedVolume(t, 7, 3, 24, 12, 12, 5, checkerShift)
	center := models.Point{X: 12, Y: 12}

	single, err := CenterOfMassFieldWorkers(vol, center, 1, nil, 1)
	if err != nil {
		t.Fatalf("CenterOfMassFieldWorkers failed: %v", err)
	}
	for _, workers := range []int{0, 2, 3, 16} {
		f, err := CenterOfMassFieldWorkers(vol, center, 1, nil, workers)
		if err != nil {
			t.Fatalf("CenterOfMassFieldWorkers(%d) failed: %v", workers, err)
		}
		if !mat.Equal(f.X, single.X) || !mat.Equal(f.Y, single.Y) {
			t.Errorf("Field with %d workers differs from a single worker", workers)
		}
	}
}
