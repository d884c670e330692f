package utils

import "io"

// ByteCountingWriter forwards writes and keeps a running count of accepted bytes
type ByteCountingWriter struct {
	w io.Writer
	n int64
}

// NewByteCountingWriter wraps w, starting the count at zero
func NewByteCountingWriter(w io.Writer) *ByteCountingWriter {
	return &ByteCountingWriter{w: w}
}

// Write implements io.Writer
func (c *ByteCountingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Count returns the number of bytes written so far
func (c *ByteCountingWriter) Count() int64 {
	return c.n
}
