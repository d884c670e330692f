package models

// CompressionMode selects how pack entries are compressed
type CompressionMode string

const (
	// CompressionDeflate lets the container deflate each entry
	CompressionDeflate CompressionMode = "deflate"
	// CompressionZstd stores entries and zstd-compresses the payload stream instead
	CompressionZstd CompressionMode = "zstd"
)

// Standard reports whether the container's own compression is used
func (m CompressionMode) Standard() bool {
	return m == "" || m == CompressionDeflate
}

// IncludedArchive is a zip archive merged into the primary container
type IncludedArchive struct {
	Path   string   `yaml:"path"`
	Filter []string `yaml:"filter,omitempty"` // entry name prefixes; empty keeps everything
}

// BuildConfig contains configuration for one packaging run
type BuildConfig struct {
	// Output
	OutputPath string `yaml:"output"`
	SplitPacks bool   `yaml:"split_packs"` // one secondary container per pack

	// Compression
	Compression          CompressionMode `yaml:"compression"`
	CompressionLevel     int             `yaml:"compression_level"`
	SecondaryCompression bool            `yaml:"secondary_compression"`

	// Installer assets
	Skeleton  string            `yaml:"skeleton,omitempty"`
	Resources map[string]string `yaml:"resources,omitempty"`
	Merge     []IncludedArchive `yaml:"merge,omitempty"`

	// SourceDateEpoch pins every entry timestamp (Unix seconds) when non-zero
	SourceDateEpoch int64 `yaml:"source_date_epoch,omitempty"`
}
