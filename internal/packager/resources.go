package packager

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/ralt/packsmith/internal/archive"
	"github.com/ralt/packsmith/internal/scanner"
	"github.com/ralt/packsmith/internal/utils"
)

// ResourceCopier places the installer runtime and its assets in the primary container
type ResourceCopier interface {
	// CopySkeleton copies the base runtime image into target
	CopySkeleton(target *archive.Writer) error

	// CopyResource writes the resource at source as resources/<name> and returns
	// the timestamp it was given, zero when the source has none
	CopyResource(target *archive.Writer, name, source string) (time.Time, error)

	// MergeArchive copies the entries of a zip archive whose names start with one
	// of filter (all entries when filter is empty)
	MergeArchive(target *archive.Writer, source string, filter []string) error
}

// FileCopier implements ResourceCopier for local files. The skeleton is a zip
// archive or a gzip-compressed tarball; an empty path skips it.
type FileCopier struct {
	Skeleton string

	buf []byte
}

// NewFileCopier creates a copier for the skeleton at path
func NewFileCopier(skeleton string) *FileCopier {
	return &FileCopier{
		Skeleton: skeleton,
		buf:      make([]byte, utils.CopyBufferSize),
	}
}

// CopySkeleton implements ResourceCopier
func (c *FileCopier) CopySkeleton(target *archive.Writer) error {
	if c.Skeleton == "" {
		return nil
	}

	payloadType, err := scanner.DetectPayloadType(c.Skeleton)
	if err != nil {
		return err
	}

	switch payloadType {
	case scanner.TypeZip:
		return c.copyZip(target, c.Skeleton, nil)
	case scanner.TypeGzip:
		return c.copyTarGz(target, c.Skeleton)
	default:
		return fmt.Errorf("unsupported skeleton format %s: %s", payloadType, c.Skeleton)
	}
}

// CopyResource implements ResourceCopier
func (c *FileCopier) CopyResource(target *archive.Writer, name, source string) (time.Time, error) {
	f, err := os.Open(source)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return time.Time{}, err
	}

	w, err := target.BeginEntry(archive.EntryHeader{Name: ResourcesPath + name, Modified: info.ModTime()})
	if err != nil {
		return time.Time{}, err
	}

	if _, err := io.CopyBuffer(struct{ io.Writer }{w}, f, c.buffer()); err != nil {
		return time.Time{}, err
	}

	return info.ModTime(), target.EndEntry()
}

// MergeArchive implements ResourceCopier
func (c *FileCopier) MergeArchive(target *archive.Writer, source string, filter []string) error {
	return c.copyZip(target, source, filter)
}

// copyZip copies entries, skipping names the target already holds
func (c *FileCopier) copyZip(target *archive.Writer, source string, filter []string) error {
	zr, err := zip.OpenReader(source)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if target.Has(f.Name) || !matchesFilter(f.Name, filter) {
			continue
		}

		w, err := target.BeginEntry(archive.EntryHeader{
			Name:     f.Name,
			Modified: f.Modified,
			Store:    f.Method == zip.Store,
		})
		if err != nil {
			return err
		}

		if !f.FileInfo().IsDir() {
			if err := copyZipEntry(w, f, c.buffer()); err != nil {
				return fmt.Errorf("failed to copy %s: %w", f.Name, err)
			}
		}

		if err := target.EndEntry(); err != nil {
			return err
		}
	}

	return nil
}

func (c *FileCopier) copyTarGz(target *archive.Writer, source string) error {
	f, err := os.Open(source)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := utils.NewGzipReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		switch hdr.Typeflag {
		case tar.TypeDir:
			if !strings.HasSuffix(name, "/") {
				name += "/"
			}
		case tar.TypeReg:
		default:
			continue
		}

		if name == "" || name == "/" || target.Has(name) {
			continue
		}

		w, err := target.BeginEntry(archive.EntryHeader{Name: name, Modified: hdr.ModTime})
		if err != nil {
			return err
		}

		if hdr.Typeflag == tar.TypeReg {
			if _, err := io.CopyBuffer(struct{ io.Writer }{w}, tr, c.buffer()); err != nil {
				return fmt.Errorf("failed to copy %s: %w", name, err)
			}
		}

		if err := target.EndEntry(); err != nil {
			return err
		}
	}
}

func (c *FileCopier) buffer() []byte {
	if c.buf == nil {
		c.buf = make([]byte, utils.CopyBufferSize)
	}
	return c.buf
}

func matchesFilter(name string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, prefix := range filter {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
