package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"stemdpc/internal/catalog"
	"stemdpc/internal/models"
	"stemdpc/pkg/analysis"
	"stemdpc/pkg/config"
)

func main() {
	// Parse command line arguments
	inputFile := flag.String("input", "", "4D-STEM data (.npy)")
	configPath := flag.String("config", "stemdpc.yaml", "YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	kind := flag.String("kind", "", "Input layout: volume (4D scan) or pattern (single 2D image)")
	angle := flag.Float64("angle", 0, "Convergence semi-angle in mrad")
	threshold := flag.Float64("threshold", -1, "Bright-field mask threshold (fraction of intensity range)")
	centerMethod := flag.String("center", "", "Center method: cbed, mask or mask_cbed")
	noMask := flag.Bool("no-mask", false, "Use the whole detector for center-of-mass sums")
	rounds := flag.Int("iter", 0, "Rotation refinement rounds")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (default: config value, all available)")
	hpass := flag.Float64("hpass", -1, "High-pass regularization of the potential solve")
	lpass := flag.Float64("lpass", -1, "Low-pass regularization of the potential solve")
	outputDir := flag.String("output", "", "Directory for exported maps")
	dbPath := flag.String("db", "", "SQLite run catalog (empty disables recording)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags override the configuration file when given
	if *kind != "" {
		cfg.Input.Kind = *kind
	}
	if *angle > 0 {
		cfg.Calibration.ConvergentAngle = *angle
	}
	if *threshold >= 0 {
		cfg.Calibration.Threshold = *threshold
	}
	if *centerMethod != "" {
		cfg.Calibration.CenterMethod = *centerMethod
	}
	if *noMask {
		cfg.Field.UseMask = false
	}
	if *rounds > 0 {
		cfg.Field.RotationRounds = *rounds
	}
	if *numCores > 0 {
		cfg.Field.NumCores = *numCores
	}
	if *hpass >= 0 {
		cfg.Potential.HighPass = *hpass
	}
	if *lpass >= 0 {
		cfg.Potential.LowPass = *lpass
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *dbPath != "" {
		cfg.Catalog.Path = *dbPath
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid parameters: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	inputKind, err := models.ParseInputKind(cfg.Input.Kind)
	if err != nil {
		slog.Error("invalid input kind", "error", err)
		os.Exit(1)
	}

	fmt.Println("================================")
	fmt.Println("4D-STEM DIFFERENTIAL PHASE CONTRAST ANALYSIS")
	fmt.Println("================================")

	opts := cfg.Options()
	opts.Logger = logger
	params := &analysis.Params{
		InputFile: *inputFile,
		Kind:      inputKind,
		Options:   opts,
		HighPass:  cfg.Potential.HighPass,
		LowPass:   cfg.Potential.LowPass,
		OutputDir: cfg.Output.Dir,
		Format:    cfg.Output.Format,
		Heatmaps:  cfg.Output.Heatmaps,
	}

	analyzer := analysis.NewAnalyzer(params)
	if err := analyzer.Process(); err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}
	result := analyzer.GetResult()

	fmt.Printf("\nAnalysis completed in %.2f seconds\n", result.Duration.Seconds())
	fmt.Printf("Beam center (x, y): (%.3f, %.3f) px\n", result.Center.X, result.Center.Y)
	fmt.Printf("Bright-field disk radius: %.3f px\n", result.DiskRadius)
	fmt.Printf("Calibration: %.5f px per mrad\n", result.Calibration)
	if inputKind == models.KindScanVolume {
		fmt.Printf("Scan rotation: %.5f rad\n", result.Rotation)
		fmt.Printf("Potential range: [%.5g, %.5g]\n", mat.Min(result.Potential), mat.Max(result.Potential))
	}
	if len(result.Outputs) > 0 {
		fmt.Printf("\nMaps saved to: %s\n", cfg.Output.Dir)
		for _, out := range result.Outputs {
			fmt.Printf("- %s\n", filepath.Base(out))
		}
	}

	if cfg.Catalog.Path != "" {
		if err := recordRun(cfg, *inputFile, result); err != nil {
			slog.Error("failed to record run", "error", err)
			os.Exit(1)
		}
	}
}

// recordRun stores the run summary in the catalog database.
func recordRun(cfg *config.Config, source string, result analysis.Result) error {
	db, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	run := catalog.Run{
		Source:      source,
		Kind:        result.Kind.String(),
		CenterX:     result.Center.X,
		CenterY:     result.Center.Y,
		Calibration: result.Calibration,
		Rotation:    result.Rotation,
		HighPass:    cfg.Potential.HighPass,
		LowPass:     cfg.Potential.LowPass,
	}
	switch len(result.Shape) {
	case 4:
		run.ScanRows, run.ScanCols = result.Shape[0], result.Shape[1]
		run.DetRows, run.DetCols = result.Shape[2], result.Shape[3]
	case 2:
		run.DetRows, run.DetCols = result.Shape[0], result.Shape[1]
	}
	if result.Potential != nil {
		run.PotentialLo = mat.Min(result.Potential)
		run.PotentialHi = mat.Max(result.Potential)
	}

	stored, err := db.Record(run)
	if err != nil {
		return err
	}
	slog.Info("run recorded", "id", stored.ID, "catalog", cfg.Catalog.Path)
	return nil
}
