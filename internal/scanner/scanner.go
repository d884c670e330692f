package scanner

import (
	"context"
	"time"
)

// PayloadType represents the container format of a file's content
type PayloadType int

const (
	TypeUnknown PayloadType = iota
	TypeZip
	TypeGzip
	TypeXz
	TypeZstd
)

// String returns the string representation of PayloadType
func (pt PayloadType) String() string {
	switch pt {
	case TypeZip:
		return "zip"
	case TypeGzip:
		return "gzip"
	case TypeXz:
		return "xz"
	case TypeZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ScannedFile represents a file or directory found during scanning
type ScannedFile struct {
	Path    string // absolute
	RelPath string // relative to the scanned root, slash separated
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Scanner interface for expanding directories into file lists
type Scanner interface {
	// Scan recursively lists dir in lexical order
	Scan(ctx context.Context, dir string) ([]ScannedFile, error)

	// DetectType determines the payload type of a file
	DetectType(path string) (PayloadType, error)
}
