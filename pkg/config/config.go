// Package config holds the run configuration of the validation-curve tool.
// Values come from defaults, an optional YAML file, environment variables
// and finally command-line flags, in that order.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// 環境変数
const (
	EnvDigitsPath = "VALCURVE_DIGITS"
	EnvLogLevel   = "VALCURVE_LOG_LEVEL"
	EnvNJobs      = "VALCURVE_N_JOBS"
)

// Config is the full run configuration.
type Config struct {
	Dataset       DatasetConfig       `yaml:"dataset"`
	Param         ParamConfig         `yaml:"param"`
	CV            CVConfig            `yaml:"cv"`
	SVC           SVCConfig           `yaml:"svc"`
	Preprocessing PreprocessingConfig `yaml:"preprocessing"`
	Output        OutputConfig        `yaml:"output"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// DatasetConfig selects the digits data.
type DatasetConfig struct {
	// Path to an optdigits file; empty searches the default locations.
	Path string `yaml:"path"`
	// Samples keeps the first n samples; 0 keeps all.
	Samples int `yaml:"samples"`
}

// ParamConfig is the swept hyperparameter and its log10 grid.
type ParamConfig struct {
	Name   string  `yaml:"name"`
	MinExp float64 `yaml:"min_exp"`
	MaxExp float64 `yaml:"max_exp"`
	Num    int     `yaml:"num"`
}

// CVConfig controls cross-validation.
type CVConfig struct {
	Folds   int    `yaml:"folds"`
	NJobs   int    `yaml:"n_jobs"`
	Seed    int64  `yaml:"seed"` // < 0 disables shuffling
	Scoring string `yaml:"scoring"`
}

// SVCConfig holds the fixed SVC hyperparameters.
type SVCConfig struct {
	C       float64 `yaml:"c"`
	Kernel  string  `yaml:"kernel"`
	Tol     float64 `yaml:"tol"`
	MaxIter int     `yaml:"max_iter"`
}

// PreprocessingConfig selects an optional scaler in front of the SVC.
type PreprocessingConfig struct {
	Scaler string `yaml:"scaler"` // "", "standard", "minmax"
}

// OutputConfig controls the produced files.
type OutputConfig struct {
	Chart  string  `yaml:"chart"`
	JSON   string  `yaml:"json"`
	Width  float64 `yaml:"width_in"`
	Height float64 `yaml:"height_in"`
	Open   bool    `yaml:"open"`
}

// LoggingConfig controls pkg/log setup.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console", "json"
}

// Scaler names
const (
	ScalerNone     = ""
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// DefaultConfig returns the classic SVM validation curve on digits:
// gamma in logspace(-6, -1, 5), 10 folds, accuracy, one job.
func DefaultConfig() *Config {
	return &Config{
		Param: ParamConfig{
			Name:   "gamma",
			MinExp: -6,
			MaxExp: -1,
			Num:    5,
		},
		CV: CVConfig{
			Folds:   10,
			NJobs:   1,
			Seed:    0,
			Scoring: "accuracy",
		},
		SVC: SVCConfig{
			C:       1.0,
			Kernel:  "rbf",
			Tol:     1e-3,
			MaxIter: -1,
		},
		Output: OutputConfig{
			Chart:  "validation_curve.png",
			Width:  6.4,
			Height: 4.8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML configuration on top of the defaults.
// A missing file yields the defaults. Environment overrides are applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", path)
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(EnvDigitsPath); v != "" {
		c.Dataset.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvNJobs); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationError(EnvNJobs, "must be an integer", v)
		}
		c.CV.NJobs = n
	}
	return nil
}

// Validate checks the configuration for values the run cannot use.
func (c *Config) Validate() error {
	switch {
	case c.Param.Name == "":
		return errors.NewValidationError("param.name", "must not be empty", c.Param.Name)
	case c.Param.Num < 1:
		return errors.NewValidationError("param.num", "must be at least 1", c.Param.Num)
	case c.Param.Num > 1 && !(c.Param.MinExp < c.Param.MaxExp):
		return errors.NewValidationError("param.max_exp", "must be greater than param.min_exp", c.Param.MaxExp)
	case c.CV.Folds < 2:
		return errors.NewValidationError("cv.folds", "must be at least 2", c.CV.Folds)
	case c.Dataset.Samples < 0:
		return errors.NewValidationError("dataset.samples", "must not be negative", c.Dataset.Samples)
	case !(c.SVC.C > 0):
		return errors.NewValidationError("svc.c", "must be positive", c.SVC.C)
	case !(c.Output.Width > 0 && c.Output.Height > 0):
		return errors.NewValidationError("output", "chart size must be positive", [2]float64{c.Output.Width, c.Output.Height})
	case c.Output.Chart == "":
		return errors.NewValidationError("output.chart", "must not be empty", c.Output.Chart)
	}
	switch c.Preprocessing.Scaler {
	case ScalerNone, ScalerStandard, ScalerMinMax:
	default:
		return errors.NewValidationError("preprocessing.scaler", "must be standard, minmax or empty", c.Preprocessing.Scaler)
	}
	switch c.Logging.Format {
	case "console", "json", "":
	default:
		return errors.NewValidationError("logging.format", "must be console or json", c.Logging.Format)
	}
	return nil
}
