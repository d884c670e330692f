package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileSystemScanner implements Scanner interface for filesystem scanning
type FileSystemScanner struct{}

// NewFileSystemScanner creates a new filesystem scanner
func NewFileSystemScanner() *FileSystemScanner {
	return &FileSystemScanner{}
}

// Scan recursively lists dir. Directories come before their content and the
// root itself is not part of the result.
func (s *FileSystemScanner) Scan(ctx context.Context, dir string) ([]ScannedFile, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var files []ScannedFile

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if path == root {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		size := info.Size()
		if d.IsDir() {
			size = 0
		}

		files = append(files, ScannedFile{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Size:    size,
			ModTime: info.ModTime(),
			IsDir:   d.IsDir(),
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	logrus.Debugf("Found %d entries in %s", len(files), dir)
	return files, nil
}

// DetectType determines the payload type of a file
func (s *FileSystemScanner) DetectType(path string) (PayloadType, error) {
	return DetectPayloadType(path)
}
