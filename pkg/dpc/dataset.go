package dpc

import (
	"fmt"
	"image"
	"log/slog"
	"runtime"

	"gonum.org/v1/gonum/mat"

	"stemdpc/internal/models"
)

// DefaultConvergentAngle is the probe convergence semi-angle, in mrad, used
// when none is configured.
const DefaultConvergentAngle = 31.98

// DefaultThreshold is the normalized intensity above which a detector pixel
// belongs to the bright-field mask.
const DefaultThreshold = 0.4

// Options controls how a Dataset is calibrated and analysed.
type Options struct {
	// ConvergentAngle is the probe convergence semi-angle in physical units
	ConvergentAngle float64

	// Threshold is the mask level as a fraction of the normalized intensity
	Threshold float64

	// CenterMethod picks the image the beam center is located on
	CenterMethod CenterMethod

	// UseMask restricts center-of-mass sums to the bright-field mask
	UseMask bool

	// RotationRounds is the number of rotation refinement rounds
	RotationRounds int

	// Workers is the number of goroutines summing center-of-mass shifts
	Workers int

	// Logger receives stage progress; nil uses slog.Default()
	Logger *slog.Logger
}

// DefaultOptions returns the settings used by the command line tool when no
// configuration is given.
func DefaultOptions() Options {
	return Options{
		ConvergentAngle: DefaultConvergentAngle,
		Threshold:       DefaultThreshold,
		CenterMethod:    CenterPattern,
		UseMask:         true,
		RotationRounds:  DefaultRotationRounds,
		Workers:         runtime.NumCPU(),
	}
}

// Dataset owns one 4D-STEM acquisition and the quantities derived from it.
//
// The mean pattern, beam center, calibration and mask are computed once in
// NewDataset and never change. The center-of-mass field and the rotation
// angle are computed on first use and cached until ClearCache. A Dataset is
// safe for concurrent use.
type Dataset struct {
	volume      *models.Volume
	opts        Options
	log         *slog.Logger
	mean        *mat.Dense
	center      models.Point
	calibration float64
	mask        *mat.Dense

	field    Lazy[*Field]
	rotation Lazy[float64]
}

// NewDataset validates input, which must be declared as a scan volume, and
// runs the center and calibration stages.
func NewDataset(input models.Input, opts Options) (*Dataset, error) {
	vol, err := input.Volume()
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	d := &Dataset{volume: vol, opts: opts, log: opts.Logger}
	d.mean = vol.Mean()

	summary, err := AnalyzePattern(d.mean, opts)
	if err != nil {
		return nil, err
	}
	d.center = summary.Center
	d.calibration = summary.Calibration
	d.mask = summary.Mask

	scanRows, scanCols := vol.ScanDims()
	detRows, detCols := vol.DetectorDims()
	d.log.Info("dataset calibrated",
		"scan", fmt.Sprintf("%dx%d", scanRows, scanCols),
		"detector", fmt.Sprintf("%dx%d", detRows, detCols),
		"center_x", d.center.X,
		"center_y", d.center.Y,
		"calibration", d.calibration)
	return d, nil
}

// PatternSummary is what the single-pattern stages produce.
type PatternSummary struct {
	Center      models.Point
	Calibration float64
	DiskRadius  float64
	Mask        *mat.Dense
}

// AnalyzePattern runs the center locator and calibration estimator on one
// detector image.
func AnalyzePattern(pattern mat.Matrix, opts Options) (PatternSummary, error) {
	if opts.ConvergentAngle <= 0 {
		return PatternSummary{}, invalidParam("convergence angle must be positive, got %g", opts.ConvergentAngle)
	}
	center, err := FindCenter(pattern, opts.Threshold, opts.CenterMethod)
	if err != nil {
		return PatternSummary{}, err
	}
	radius, err := DiskRadius(pattern, center)
	if err != nil {
		return PatternSummary{}, err
	}
	mask, err := ThresholdMask(pattern, opts.Threshold)
	if err != nil {
		return PatternSummary{}, err
	}
	return PatternSummary{
		Center:      center,
		Calibration: radius / opts.ConvergentAngle,
		DiskRadius:  radius,
		Mask:        mask,
	}, nil
}

// AnalyzeInput dispatches on the declared kind of input. A single pattern
// yields only the calibration summary; a scan volume yields a Dataset.
func AnalyzeInput(input models.Input, opts Options) (PatternSummary, *Dataset, error) {
	switch input.Kind {
	case models.KindPattern:
		pattern, err := input.Pattern()
		if err != nil {
			return PatternSummary{}, nil, err
		}
		summary, err := AnalyzePattern(pattern, opts)
		return summary, nil, err
	case models.KindScanVolume:
		d, err := NewDataset(input, opts)
		if err != nil {
			return PatternSummary{}, nil, err
		}
		return PatternSummary{
			Center:      d.center,
			Calibration: d.calibration,
			DiskRadius:  d.calibration * opts.ConvergentAngle,
			Mask:        d.mask,
		}, d, nil
	default:
		return PatternSummary{}, nil, &models.ShapeError{Kind: input.Kind, Shape: input.Shape, Msg: "unknown input kind"}
	}
}

// Volume returns the underlying diffraction volume.
func (d *Dataset) Volume() *models.Volume { return d.volume }

// MeanPattern returns a copy of the mean diffraction pattern.
func (d *Dataset) MeanPattern() *mat.Dense { return mat.DenseCopyOf(d.mean) }

// Center returns the beam center in detector pixels.
func (d *Dataset) Center() models.Point { return d.center }

// Calibration returns detector pixels per unit of convergence angle.
func (d *Dataset) Calibration() float64 { return d.calibration }

// Mask returns a copy of the bright-field mask.
func (d *Dataset) Mask() *mat.Dense { return mat.DenseCopyOf(d.mask) }

// Field returns the center-of-mass field, computing it on first use.
func (d *Dataset) Field() (*Field, error) {
	return d.field.Get(func() (*Field, error) {
		var mask mat.Matrix
		if d.opts.UseMask {
			mask = d.mask
		}
		d.log.Debug("computing center of mass field", "use_mask", d.opts.UseMask, "workers", d.opts.Workers)
		f, err := CenterOfMassFieldWorkers(d.volume, d.center, d.calibration, mask, d.opts.Workers)
		if err != nil {
			return nil, fmt.Errorf("center of mass: %w", err)
		}
		return f, nil
	})
}

// Rotation returns the scan rotation angle in radians, searching for it on
// first use.
func (d *Dataset) Rotation() (float64, error) {
	return d.rotation.Get(func() (float64, error) {
		f, err := d.Field()
		if err != nil {
			return 0, err
		}
		angle, err := FindRotation(f, d.opts.RotationRounds)
		if err != nil {
			return 0, fmt.Errorf("rotation: %w", err)
		}
		d.log.Debug("rotation found", "radians", angle)
		return angle, nil
	})
}

// SetRotation overrides the cached rotation angle.
func (d *Dataset) SetRotation(angle float64) { d.rotation.Set(angle) }

// ClearCache drops the cached field and rotation so the next access
// recomputes both.
func (d *Dataset) ClearCache() {
	d.field.Reset()
	d.rotation.Reset()
}

// RotatedField returns the center-of-mass field rotated into the scan frame.
func (d *Dataset) RotatedField() (*Field, error) {
	f, err := d.Field()
	if err != nil {
		return nil, err
	}
	angle, err := d.Rotation()
	if err != nil {
		return nil, err
	}
	return f.Rotate(angle), nil
}

// ElectricField returns the rotated field as a complex matrix.
func (d *Dataset) ElectricField() (*mat.CDense, error) {
	f, err := d.RotatedField()
	if err != nil {
		return nil, err
	}
	return f.Complex(), nil
}

// FieldRGB returns the rotated field coloured by direction and magnitude.
func (d *Dataset) FieldRGB() (*image.RGBA, error) {
	f, err := d.RotatedField()
	if err != nil {
		return nil, err
	}
	return f.ToRGB(), nil
}

// Potential reconstructs the projected potential from the rotated field.
func (d *Dataset) Potential(hpass, lpass float64) (*mat.Dense, error) {
	e, err := d.ElectricField()
	if err != nil {
		return nil, err
	}
	return SolvePotential(e, hpass, lpass)
}

// ChargeDensity returns the divergence of the rotated field.
func (d *Dataset) ChargeDensity() (*mat.Dense, error) {
	f, err := d.RotatedField()
	if err != nil {
		return nil, err
	}
	return ChargeDensity(f), nil
}
