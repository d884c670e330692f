package utils

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ralt/packsmith/internal/models"
	"github.com/ulikunitz/xz"
)

// DenseDictCap is the xz dictionary size used by the secondary compression pass
const DenseDictCap = 64 << 20

// NewFlateCompressor returns a zip compressor factory deflating at level
func NewFlateCompressor(level int) func(io.Writer) (io.WriteCloser, error) {
	return func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	}
}

// NewPayloadWriter wraps w with the payload compression of mode.
// The standard mode leaves compression to the container and returns a no-op closer.
func NewPayloadWriter(w io.Writer, mode models.CompressionMode, level int) (io.WriteCloser, error) {
	if mode.Standard() {
		return nopWriteCloser{w}, nil
	}

	opts := []zstd.EOption{zstd.WithEncoderConcurrency(1)}
	if level > 0 {
		opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	}
	return zstd.NewWriter(w, opts...)
}

// NewPayloadReader undoes NewPayloadWriter
func NewPayloadReader(r io.Reader, mode models.CompressionMode) (io.ReadCloser, error) {
	if mode.Standard() {
		return io.NopCloser(r), nil
	}

	d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return d.IOReadCloser(), nil
}

// NewDenseWriter returns the slow, high-ratio xz writer used for secondary compression
func NewDenseWriter(w io.Writer) (io.WriteCloser, error) {
	cfg := xz.WriterConfig{DictCap: DenseDictCap}
	return cfg.NewWriter(w)
}

// NewDenseReader decompresses data written by NewDenseWriter
func NewDenseReader(r io.Reader) (io.Reader, error) {
	return xz.NewReader(r)
}

// NewGzipReader opens a gzip stream
func NewGzipReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
