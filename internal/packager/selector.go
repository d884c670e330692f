package packager

import (
	"errors"

	"github.com/klauspost/compress/zip"
	"github.com/ralt/packsmith/internal/scanner"
	"github.com/ralt/packsmith/internal/signature"
)

// Selector decides which payloads go through the secondary compression pass
type Selector struct {
	enabled bool
	scanner scanner.Scanner
}

// NewSelector creates a selector; a disabled selector never selects anything
func NewSelector(enabled bool) *Selector {
	return &Selector{
		enabled: enabled,
		scanner: scanner.NewFileSystemScanner(),
	}
}

// ShouldApply reports whether the file at path is an unsigned zip-family archive
// and secondary compression is enabled. Malformed archives are simply not selected.
func (s *Selector) ShouldApply(path string) (bool, error) {
	if !s.enabled || !scanner.IsArchiveName(path) {
		return false, nil
	}

	payloadType, err := s.scanner.DetectType(path)
	if err != nil {
		return false, err
	}
	if payloadType != scanner.TypeZip {
		return false, nil
	}

	signed, err := signature.IsSignedArchive(path)
	if errors.Is(err, zip.ErrFormat) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return !signed, nil
}
