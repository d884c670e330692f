package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ralt/packsmith/internal/config"
	"github.com/ralt/packsmith/internal/manifest"
	"github.com/ralt/packsmith/internal/models"
	"github.com/ralt/packsmith/internal/packager"
	"github.com/ralt/packsmith/internal/scanner"
	"github.com/ralt/packsmith/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type buildOptions struct {
	configPath   string
	manifestPath string
	indexOut     string

	// Values that override the build file when their flag is set
	flags models.BuildConfig
}

// NewBuildCmd creates the build command
func NewBuildCmd() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write the installer containers",
		Long: `Reads the pack manifest and writes every pack, the packs.info table of
contents and the packs.index summary into the output container.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadBuildConfig(cmd.Flags(), &opts)
			if err != nil {
				return err
			}

			logrus.Info("Starting installer build...")
			logrus.Debugf("Configuration: %+v", *cfg)

			return runBuild(cmd.Context(), cfg, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Build file (YAML)")
	cmd.Flags().StringVarP(&opts.manifestPath, "manifest", "m", "", "Pack manifest (YAML)")
	cmd.Flags().StringVar(&opts.indexOut, "index-out", "", "Also write the pack index to this file")

	// Output flags
	cmd.Flags().StringVarP(&opts.flags.OutputPath, "output", "o", config.DefaultOutput, "Primary container path")
	cmd.Flags().BoolVar(&opts.flags.SplitPacks, "split", false, "Write each pack to its own secondary container")

	// Compression flags
	cmd.Flags().StringVar((*string)(&opts.flags.Compression), "compression", string(models.CompressionDeflate), "Pack compression mode (deflate, zstd)")
	cmd.Flags().IntVar(&opts.flags.CompressionLevel, "level", config.DefaultCompressionLevel, "Compression level")
	cmd.Flags().BoolVar(&opts.flags.SecondaryCompression, "secondary-compression", false, "Repack and xz-compress unsigned jar/zip payloads")

	// Asset flags
	cmd.Flags().StringVar(&opts.flags.Skeleton, "skeleton", "", "Installer runtime image (zip or tar.gz)")
	cmd.Flags().StringToStringVar(&opts.flags.Resources, "resource", nil, "Installer resource as name=path (repeatable)")
	cmd.Flags().Int64Var(&opts.flags.SourceDateEpoch, "source-date-epoch", 0, "Pin entry timestamps to this Unix time")

	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

// loadBuildConfig reads the build file, if any, and applies the flags that were set
func loadBuildConfig(flags *pflag.FlagSet, opts *buildOptions) (*models.BuildConfig, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.Changed("output") {
		cfg.OutputPath = opts.flags.OutputPath
	}
	if flags.Changed("split") {
		cfg.SplitPacks = opts.flags.SplitPacks
	}
	if flags.Changed("compression") {
		cfg.Compression = opts.flags.Compression
	}
	if flags.Changed("level") {
		cfg.CompressionLevel = opts.flags.CompressionLevel
	}
	if flags.Changed("secondary-compression") {
		cfg.SecondaryCompression = opts.flags.SecondaryCompression
	}
	if flags.Changed("skeleton") {
		cfg.Skeleton = opts.flags.Skeleton
	}
	if flags.Changed("source-date-epoch") {
		cfg.SourceDateEpoch = opts.flags.SourceDateEpoch
	}
	if flags.Changed("resource") {
		if cfg.Resources == nil {
			cfg.Resources = make(map[string]string)
		}
		for name, source := range opts.flags.Resources {
			cfg.Resources[name] = source
		}
	}

	// SOURCE_DATE_EPOCH from the environment applies when nothing else pinned the time
	if cfg.SourceDateEpoch == 0 {
		epoch, err := sourceDateEpochFromEnv()
		if err != nil {
			return nil, err
		}
		cfg.SourceDateEpoch = epoch
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func sourceDateEpochFromEnv() (int64, error) {
	value := os.Getenv("SOURCE_DATE_EPOCH")
	if value == "" {
		return 0, nil
	}

	epoch, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, &models.PackagerError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("invalid SOURCE_DATE_EPOCH %q: %w", value, err),
		}
	}
	return epoch, nil
}

func runBuild(ctx context.Context, cfg *models.BuildConfig, opts *buildOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Load the pack manifest
	logrus.Infof("Loading pack manifest: %s", opts.manifestPath)
	loader := manifest.NewLoader(scanner.NewFileSystemScanner())
	packs, err := loader.Load(ctx, opts.manifestPath)
	if err != nil {
		return err
	}

	logrus.Infof("Found %d packs", len(packs))

	// Step 2: Write the containers
	p := packager.New(cfg)
	for _, pack := range packs {
		if err := p.AddPack(pack); err != nil {
			return err
		}
	}

	result, err := p.CreateInstaller(ctx)
	if err != nil {
		return err
	}

	// Step 3: Report what was written
	for _, path := range append([]string{result.Primary}, result.Secondary...) {
		checksum, err := utils.CalculateChecksum(path)
		if err != nil {
			return &models.PackagerError{Type: models.ErrIO, Path: path, Err: err}
		}
		logrus.Infof("Wrote %s (%d bytes, sha256 %s)", path, checksum.Size, checksum.SHA256)
	}

	for _, entry := range result.Index {
		logrus.Debugf("Pack %s (%s): %d bytes installed", entry.ID, entry.Name, entry.NBytes)
	}

	if opts.indexOut != "" {
		if err := writeIndex(opts.indexOut, result.Index); err != nil {
			return err
		}
		logrus.Infof("Wrote pack index to %s", opts.indexOut)
	}

	logrus.Info("Installer build completed successfully")
	return nil
}

func writeIndex(path string, index []models.IndexEntry) error {
	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal pack index: %w", err)
	}

	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return &models.PackagerError{Type: models.ErrIO, Path: path, Err: err}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return &models.PackagerError{Type: models.ErrIO, Path: path, Err: err}
	}
	return nil
}
