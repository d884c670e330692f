package utils

import (
	"io"
	"os"
	"path/filepath"
)

// CopyBufferSize is the size of the buffer used to stream file content
const CopyBufferSize = 64 * 1024

// CopyFileTo streams the file at path into w using buf and returns the bytes copied
func CopyFileTo(w io.Writer, path string, buf []byte) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if buf == nil {
		buf = make([]byte, CopyBufferSize)
	}

	// Hide ReaderFrom and WriterTo so the copy goes through buf
	return io.CopyBuffer(struct{ io.Writer }{w}, struct{ io.Reader }{f}, buf)
}

// EnsureDir ensures a directory exists, creating it if necessary
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// EnsureParentDir creates the directory that will hold path
func EnsureParentDir(path string) error {
	return EnsureDir(filepath.Dir(path))
}
