package scanner

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Magic bytes for payload detection
var (
	// Local file header of zip-family archives (jar, war, ear)
	zipMagic = []byte{'P', 'K', 0x03, 0x04}

	gzipMagic = []byte{0x1F, 0x8B}

	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

	xzMagic = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
)

// archiveExtensions are the zip-family names eligible for repacking
var archiveExtensions = map[string]bool{
	".jar": true,
	".zip": true,
	".war": true,
	".ear": true,
}

// DetectPayloadType determines the payload type based on magic bytes
func DetectPayloadType(path string) (PayloadType, error) {
	f, err := os.Open(path)
	if err != nil {
		return TypeUnknown, err
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return TypeUnknown, err
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, zipMagic):
		return TypeZip, nil
	case bytes.HasPrefix(header, gzipMagic):
		return TypeGzip, nil
	case bytes.HasPrefix(header, zstdMagic):
		return TypeZstd, nil
	case bytes.HasPrefix(header, xzMagic):
		return TypeXz, nil
	}

	return TypeUnknown, nil
}

// IsArchiveName reports whether path has a zip-family extension
func IsArchiveName(path string) bool {
	return archiveExtensions[strings.ToLower(filepath.Ext(path))]
}
