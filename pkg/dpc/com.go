package dpc

import (
	"fmt"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"stemdpc/internal/models"
)

// CenterOfMassField computes the center-of-mass shift of every diffraction
// pattern in vol, relative to center and in calibrated angle units.
//
// Each component is the intensity-weighted mean detector coordinate of one
// pattern, normalized by that pattern's total intensity, minus the beam
// center, divided by calibration. When mask is non-nil only detector pixels
// where mask > 0 contribute.
//
// Parameters:
//   - vol: 4D diffraction volume
//   - center: beam center in detector pixels
//   - calibration: detector pixels per angle unit
//   - mask: optional detector mask with the detector's shape
//
// Returns:
//   - A field over the scan grid; a probe position with zero (masked)
//     intensity is reported as a *DegenerateInputError
func CenterOfMassField(vol *models.Volume, center models.Point, calibration float64, mask mat.Matrix) (*Field, error) {
	return CenterOfMassFieldWorkers(vol, center, calibration, mask, runtime.NumCPU())
}

// CenterOfMassFieldWorkers is CenterOfMassField with the scan rows split
// across the given number of goroutines. Values below one use one.
func CenterOfMassFieldWorkers(vol *models.Volume, center models.Point, calibration float64, mask mat.Matrix, workers int) (*Field, error) {
	if calibration <= 0 {
		return nil, invalidParam("calibration must be positive, got %g", calibration)
	}
	detRows, detCols := vol.DetectorDims()
	if mask != nil {
		mr, mc := mask.Dims()
		if mr != detRows || mc != detCols {
			return nil, &models.ShapeError{
				Kind:  models.KindScanVolume,
				Shape: vol.Shape[:],
				Msg:   fmt.Sprintf("mask is %dx%d but detector is %dx%d", mr, mc, detRows, detCols),
			}
		}
	}

	// flatten the mask once; every pattern reuses it
	weights := make([]float64, detRows*detCols)
	for r := 0; r < detRows; r++ {
		for c := 0; c < detCols; c++ {
			if mask == nil || mask.At(r, c) > 0 {
				weights[r*detCols+c] = 1
			}
		}
	}

	scanRows, scanCols := vol.ScanDims()
	comX := mat.NewDense(scanRows, scanCols, nil)
	comY := mat.NewDense(scanRows, scanCols, nil)

	if workers < 1 {
		workers = 1
	}
	if workers > scanRows {
		workers = scanRows
	}
	rowsPerWorker := (scanRows + workers - 1) / workers

	// each worker owns a band of scan rows and records its first failure
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			start := w * rowsPerWorker
			end := min(start+rowsPerWorker, scanRows)
			for i := start; i < end; i++ {
				for j := 0; j < scanCols; j++ {
					row, col, err := patternCentroid(vol.PatternData(i, j), weights, detCols)
					if err != nil {
						errs[w] = degenerate("center of mass field", "probe position (%d,%d) has zero intensity", i, j)
						return
					}
					comX.Set(i, j, (col-center.X)/calibration)
					comY.Set(i, j, (row-center.Y)/calibration)
				}
			}
		}(w)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return &Field{X: comX, Y: comY}, nil
}

// patternCentroid is CenterOfMass over a flat, weighted detector image.
func patternCentroid(data, weights []float64, cols int) (row, col float64, err error) {
	var total, sr, sc float64
	for k, v := range data {
		v *= weights[k]
		if v == 0 {
			continue
		}
		total += v
		sr += v * float64(k/cols)
		sc += v * float64(k%cols)
	}
	if total == 0 {
		return 0, 0, degenerate("center of mass", "total intensity is zero")
	}
	return sr / total, sc / total, nil
}
