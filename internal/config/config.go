// Package config loads and validates build configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ralt/packsmith/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFilename is looked up when no build file is given
	DefaultConfigFilename = "packsmith.yaml"

	// DefaultOutput is the primary container written when none is configured
	DefaultOutput = "install.zip"

	// DefaultCompressionLevel is the deflate level of the standard mode
	DefaultCompressionLevel = 6
)

var (
	errConfigIsNotSet = errors.New("configuration is not set")
	errOutputRequired = errors.New("output path must be provided")
)

// Default returns a configuration with every default filled in
func Default() *models.BuildConfig {
	return &models.BuildConfig{
		OutputPath:       DefaultOutput,
		Compression:      models.CompressionDeflate,
		CompressionLevel: DefaultCompressionLevel,
	}
}

// Load reads the build file at path and validates it. Relative asset paths are
// resolved against the directory holding the file.
func Load(path string) (*models.BuildConfig, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read build file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, &models.PackagerError{
			Type: models.ErrInvalidConfig,
			Path: path,
			Err:  fmt.Errorf("unmarshal build file: %w", err),
		}
	}

	resolvePaths(cfg, filepath.Dir(path))

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path
func Save(path string, cfg *models.BuildConfig) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal build file: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, 0o644); err != nil {
		return fmt.Errorf("write build file: %w", err)
	}

	return nil
}

// Validate checks cfg and fills in defaults for unset fields
func Validate(cfg *models.BuildConfig) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.OutputPath == "" {
		return &models.PackagerError{Type: models.ErrInvalidConfig, Err: errOutputRequired}
	}

	if cfg.Compression == "" {
		cfg.Compression = models.CompressionDeflate
	}

	// Level 0 reads as unset, so deflate's store-only level cannot be selected
	if cfg.CompressionLevel == 0 {
		cfg.CompressionLevel = DefaultCompressionLevel
	}

	var minLevel, maxLevel int
	switch cfg.Compression {
	case models.CompressionDeflate:
		minLevel, maxLevel = -2, 9
	case models.CompressionZstd:
		minLevel, maxLevel = 1, 22
	default:
		return &models.PackagerError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("unknown compression mode %q", cfg.Compression),
		}
	}

	if cfg.CompressionLevel < minLevel || cfg.CompressionLevel > maxLevel {
		return &models.PackagerError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("compression level %d out of range [%d, %d] for %s", cfg.CompressionLevel, minLevel, maxLevel, cfg.Compression),
		}
	}

	if cfg.SourceDateEpoch < 0 {
		return &models.PackagerError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("source date epoch must not be negative"),
		}
	}

	for i, included := range cfg.Merge {
		if included.Path == "" {
			return &models.PackagerError{
				Type: models.ErrInvalidConfig,
				Err:  fmt.Errorf("merge entry %d has no path", i),
			}
		}
	}

	for name, source := range cfg.Resources {
		if name == "" || source == "" {
			return &models.PackagerError{
				Type: models.ErrInvalidConfig,
				Err:  fmt.Errorf("resource %q needs both a name and a source", name),
			}
		}
	}

	return nil
}

func resolvePaths(cfg *models.BuildConfig, base string) {
	cfg.OutputPath = resolve(base, cfg.OutputPath)
	cfg.Skeleton = resolve(base, cfg.Skeleton)
	for name, source := range cfg.Resources {
		cfg.Resources[name] = resolve(base, source)
	}
	for i := range cfg.Merge {
		cfg.Merge[i].Path = resolve(base, cfg.Merge[i].Path)
	}
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
