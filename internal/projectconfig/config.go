// Package projectconfig provides the ProjectConfig struct and loader for
// .tolstack.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up from the working directory.
const FileName = ".tolstack.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultVariantsDir = "variants/"
	DefaultResultsDir  = "results/"

	DefaultBins       = 51
	DefaultWorkers    = 4
	DefaultValuation  = "quality_loss"
	DefaultAlgorithm  = "brute_force"
	DefaultQcStrategy = ""
	DefaultCacheDir   = ".tolstack-cache"
)

// PathsConfig holds directory paths for variant files and results.
type PathsConfig struct {
	Variants string `yaml:"variants,omitempty" env:"TOLSTACK_VARIANTS_DIR"`
	Results  string `yaml:"results,omitempty" env:"TOLSTACK_RESULTS_DIR"`
}

// DefaultsConfig holds default allocation parameters.
type DefaultsConfig struct {
	Bins       int    `yaml:"bins,omitempty" env:"TOLSTACK_BINS"`
	Workers    int    `yaml:"workers,omitempty" env:"TOLSTACK_WORKERS"`
	Valuation  string `yaml:"valuation,omitempty" env:"TOLSTACK_VALUATION"`
	Algorithm  string `yaml:"algorithm,omitempty" env:"TOLSTACK_ALGORITHM"`
	QcStrategy string `yaml:"qc_strategy,omitempty" env:"TOLSTACK_QC_STRATEGY"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty" env:"TOLSTACK_CACHE_ENABLED"`
	Dir     string `yaml:"dir,omitempty" env:"TOLSTACK_CACHE_DIR"`
}

// ProjectConfig is the top-level configuration loaded from .tolstack.yaml.
type ProjectConfig struct {
	Paths    PathsConfig    `yaml:"paths,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Variants: DefaultVariantsDir,
			Results:  DefaultResultsDir,
		},
		Defaults: DefaultsConfig{
			Bins:       DefaultBins,
			Workers:    DefaultWorkers,
			Valuation:  DefaultValuation,
			Algorithm:  DefaultAlgorithm,
			QcStrategy: DefaultQcStrategy,
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
	}
}

// Load finds .tolstack.yaml by walking up from startDir (max 10 levels),
// unmarshals it, fills in missing fields with defaults and finally applies
// TOLSTACK_* environment overrides.
// If no config file is found, defaults (plus environment) are returned.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	switch {
	case err == nil:
		var fileCfg ProjectConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", FileName, err)
		}
		mergeConfig(cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	return withEnv(cfg)
}

// LoadFile reads an explicit project configuration file instead of
// searching for one. Environment overrides still apply.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg := New()
	mergeConfig(cfg, &fileCfg)
	return withEnv(cfg)
}

func withEnv(cfg *ProjectConfig) (*ProjectConfig, error) {
	var envCfg ProjectConfig
	if err := ParseEnv(&envCfg); err != nil {
		return nil, err
	}
	mergeConfig(cfg, &envCfg)
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// findConfigFile walks up from dir looking for .tolstack.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Paths.Variants != "" {
		dst.Paths.Variants = src.Paths.Variants
	}
	if src.Paths.Results != "" {
		dst.Paths.Results = src.Paths.Results
	}

	if src.Defaults.Bins != 0 {
		dst.Defaults.Bins = src.Defaults.Bins
	}
	if src.Defaults.Workers != 0 {
		dst.Defaults.Workers = src.Defaults.Workers
	}
	if src.Defaults.Valuation != "" {
		dst.Defaults.Valuation = src.Defaults.Valuation
	}
	if src.Defaults.Algorithm != "" {
		dst.Defaults.Algorithm = src.Defaults.Algorithm
	}
	if src.Defaults.QcStrategy != "" {
		dst.Defaults.QcStrategy = src.Defaults.QcStrategy
	}

	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
}

func boolPtr(b bool) *bool {
	return &b
}
