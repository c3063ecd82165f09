// Package config provides configuration loading and management for stemdpc.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"stemdpc/pkg/dpc"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input parameters
	Input struct {
		// Kind declares the array layout: "volume" (4D scan) or "pattern" (single 2D image)
		Kind string `yaml:"kind"`
	} `yaml:"input"`

	// Calibration parameters
	Calibration struct {
		// ConvergentAngle is the probe convergence semi-angle in mrad
		ConvergentAngle float64 `yaml:"convergentAngle"`

		// Threshold is the bright-field mask level as a fraction of the intensity range
		Threshold float64 `yaml:"threshold"`

		// CenterMethod is one of cbed, mask or mask_cbed
		CenterMethod string `yaml:"centerMethod"`
	} `yaml:"calibration"`

	// Field extraction and rotation search
	Field struct {
		// UseMask restricts center-of-mass sums to the bright-field disk
		UseMask bool `yaml:"useMask"`

		// RotationRounds is the number of rotation refinement rounds
		RotationRounds int `yaml:"rotationRounds"`

		// NumCores is the number of goroutines used for the center-of-mass sums
		NumCores int `yaml:"numCores"`
	} `yaml:"field"`

	// Potential reconstruction parameters
	Potential struct {
		// HighPass damps the zero-frequency term
		HighPass float64 `yaml:"highPass"`

		// LowPass damps high frequencies
		LowPass float64 `yaml:"lowPass"`
	} `yaml:"potential"`

	// Output parameters
	Output struct {
		// Dir receives the exported maps
		Dir string `yaml:"dir"`

		// Format is the extension used for grayscale maps (png, tif, jpg)
		Format string `yaml:"format"`

		// Heatmaps additionally renders colour-mapped plots of each map
		Heatmaps bool `yaml:"heatmaps"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Catalog parameters
	Catalog struct {
		// Path is the SQLite database recording each run; empty disables it
		Path string `yaml:"path"`
	} `yaml:"catalog"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Input.Kind = "volume"

	cfg.Calibration.ConvergentAngle = dpc.DefaultConvergentAngle
	cfg.Calibration.Threshold = dpc.DefaultThreshold
	cfg.Calibration.CenterMethod = "cbed"

	cfg.Field.UseMask = true
	cfg.Field.RotationRounds = dpc.DefaultRotationRounds
	cfg.Field.NumCores = runtime.NumCPU()

	cfg.Potential.HighPass = dpc.DefaultHighPass
	cfg.Potential.LowPass = dpc.DefaultLowPass

	cfg.Output.Dir = "dpc_results"
	cfg.Output.Format = "png"
	cfg.Output.Heatmaps = false
	cfg.Output.Verbose = false

	return cfg
}

// Options converts the analysis sections into dpc.Options.
func (c *Config) Options() dpc.Options {
	return dpc.Options{
		ConvergentAngle: c.Calibration.ConvergentAngle,
		Threshold:       c.Calibration.Threshold,
		CenterMethod:    dpc.ParseCenterMethod(c.Calibration.CenterMethod),
		UseMask:         c.Field.UseMask,
		RotationRounds:  c.Field.RotationRounds,
		Workers:         c.Field.NumCores,
	}
}

// Validate rejects values the analysis cannot run with.
func (c *Config) Validate() error {
	if c.Calibration.ConvergentAngle <= 0 {
		return fmt.Errorf("calibration.convergentAngle must be positive, got %g", c.Calibration.ConvergentAngle)
	}
	if c.Calibration.Threshold < 0 || c.Calibration.Threshold >= 1 {
		return fmt.Errorf("calibration.threshold must be in [0, 1), got %g", c.Calibration.Threshold)
	}
	if c.Field.RotationRounds < 0 {
		return fmt.Errorf("field.rotationRounds must not be negative, got %d", c.Field.RotationRounds)
	}
	if c.Field.NumCores < 1 {
		return fmt.Errorf("field.numCores must be at least 1, got %d", c.Field.NumCores)
	}
	if c.Potential.HighPass < 0 || c.Potential.LowPass < 0 {
		return fmt.Errorf("potential filters must not be negative (highPass=%g, lowPass=%g)",
			c.Potential.HighPass, c.Potential.LowPass)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
