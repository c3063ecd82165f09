// Package analysis runs the complete DPC pipeline on one input file: load,
// center and calibrate, extract the center-of-mass field, find the scan
// rotation, reconstruct the potential and export the maps.
package analysis

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"stemdpc/internal/models"
	"stemdpc/pkg/dpc"
	"stemdpc/pkg/npy"
	"stemdpc/pkg/visualization"
)

// Params holds the pipeline parameters.
type Params struct {
	// InputFile is the .npy array to analyse.
	InputFile string

	// Kind declares whether InputFile is a single pattern or a 4D scan.
	Kind models.InputKind

	// Options configures calibration, field extraction and rotation search.
	Options dpc.Options

	// HighPass and LowPass regularize the potential reconstruction.
	HighPass float64
	LowPass  float64

	// OutputDir receives the exported maps; empty disables export.
	OutputDir string

	// Format is the grayscale image extension (png, tif, jpg).
	Format string

	// Heatmaps additionally renders colour-mapped plots.
	Heatmaps bool
}

// Result summarises a finished run.
type Result struct {
	Kind        models.InputKind
	Shape       []int
	Center      models.Point
	Calibration float64
	DiskRadius  float64

	// The remaining fields are only set for scan volumes.
	Rotation      float64
	Field         *dpc.Field
	Potential     *mat.Dense
	ChargeDensity *mat.Dense
	Duration      time.Duration
	Outputs       []string
}

// Analyzer handles one pipeline run.
type Analyzer struct {
	params *Params
	log    *slog.Logger
	input  models.Input
	result Result
}

// NewAnalyzer creates an analyzer for params.
func NewAnalyzer(params *Params) *Analyzer {
	log := params.Options.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{params: params, log: log}
}

// Process runs the complete pipeline.
func (a *Analyzer) Process() error {
	start := time.Now()

	// Step 1: load the input
	a.log.Info("loading input", "file", a.params.InputFile, "kind", a.params.Kind)
	in, err := npy.Load(a.params.InputFile, a.params.Kind)
	if err != nil {
		return fmt.Errorf("failed to load input: %w", err)
	}
	if err := a.ProcessInput(in); err != nil {
		return err
	}
	a.result.Duration = time.Since(start)
	return nil
}

// ProcessInput runs every stage after loading on an in-memory input.
func (a *Analyzer) ProcessInput(in models.Input) error {
	start := time.Now()
	a.input = in
	a.result = Result{Kind: in.Kind, Shape: in.Shape}

	// Step 2: center and calibration
	a.log.Info("locating beam center and calibrating")
	summary, dataset, err := dpc.AnalyzeInput(in, a.params.Options)
	if err != nil {
		return fmt.Errorf("failed to calibrate: %w", err)
	}
	a.result.Center = summary.Center
	a.result.Calibration = summary.Calibration
	a.result.DiskRadius = summary.DiskRadius
	a.log.Info("calibrated",
		"center_x", summary.Center.X,
		"center_y", summary.Center.Y,
		"disk_radius_px", summary.DiskRadius,
		"calibration", summary.Calibration)

	if dataset == nil {
		// a single pattern stops after calibration
		if pattern, err := in.Pattern(); err == nil {
			a.save("01_pattern", pattern)
		}
		a.save("02_mask", summary.Mask)
		a.result.Duration = time.Since(start)
		return nil
	}
	a.save("01_mean_pattern", dataset.MeanPattern())
	a.save("02_mask", summary.Mask)

	// Step 3: center-of-mass field
	a.log.Info("extracting center of mass field", "use_mask", a.params.Options.UseMask)
	field, err := dataset.Field()
	if err != nil {
		return fmt.Errorf("failed to extract field: %w", err)
	}
	a.save("03_com_x", field.X)
	a.save("03_com_y", field.Y)

	// Step 4: rotation
	a.log.Info("searching scan rotation", "rounds", a.params.Options.RotationRounds)
	rotation, err := dataset.Rotation()
	if err != nil {
		return fmt.Errorf("failed to find rotation: %w", err)
	}
	a.result.Rotation = rotation
	a.log.Info("rotation found", "radians", rotation)

	rotated, err := dataset.RotatedField()
	if err != nil {
		return err
	}
	a.result.Field = rotated
	a.saveRGB("04_field_rgb", rotated)

	// Step 5: potential and charge density
	a.log.Info("solving for potential", "hpass", a.params.HighPass, "lpass", a.params.LowPass)
	potential, err := dataset.Potential(a.params.HighPass, a.params.LowPass)
	if err != nil {
		return fmt.Errorf("failed to solve potential: %w", err)
	}
	a.result.Potential = potential
	a.save("05_potential", potential)

	charge, err := dataset.ChargeDensity()
	if err != nil {
		return fmt.Errorf("failed to compute charge density: %w", err)
	}
	a.result.ChargeDensity = charge
	a.save("06_charge_density", charge)

	a.result.Duration = time.Since(start)
	return nil
}

// GetResult returns the outcome of the last run.
func (a *Analyzer) GetResult() Result {
	return a.result
}

// save exports m as a grayscale image and, if requested, a heatmap. Export
// failures are logged and do not stop the pipeline.
func (a *Analyzer) save(stage string, m mat.Matrix) {
	if a.params.OutputDir == "" || m == nil {
		return
	}
	format := a.params.Format
	if format == "" {
		format = "png"
	}
	path := filepath.Join(a.params.OutputDir, stage+"."+format)
	if err := visualization.SaveGray(m, path); err != nil {
		a.log.Warn("failed to save map", "stage", stage, "error", err)
		return
	}
	a.result.Outputs = append(a.result.Outputs, path)

	if a.params.Heatmaps {
		heat := filepath.Join(a.params.OutputDir, "heatmaps", stage+".png")
		if err := visualization.SaveHeatmap(m, stage, heat); err != nil {
			a.log.Warn("failed to save heatmap", "stage", stage, "error", err)
			return
		}
		a.result.Outputs = append(a.result.Outputs, heat)
	}
}

func (a *Analyzer) saveRGB(stage string, f *dpc.Field) {
	if a.params.OutputDir == "" {
		return
	}
	path := filepath.Join(a.params.OutputDir, stage+".png")
	if err := visualization.SaveImage(f.ToRGB(), path); err != nil {
		a.log.Warn("failed to save field colouring", "stage", stage, "error", err)
		return
	}
	a.result.Outputs = append(a.result.Outputs, path)
}
