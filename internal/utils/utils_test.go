package utils

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ralt/packsmith/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{ after int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if len(p) > f.after {
		return f.after, errors.New("disk full")
	}
	f.after -= len(p)
	return len(p), nil
}

func TestByteCountingWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := NewByteCountingWriter(&buf)

	_, err := cw.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = cw.Write([]byte("defg"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), cw.Count())

	failing := NewByteCountingWriter(&failingWriter{after: 2})
	n, err := failing.Write([]byte("xyz"))
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(2), failing.Count())
}

func TestCopyFileTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	content := bytes.Repeat([]byte("0123456789"), 10000)
	require.NoError(t, os.WriteFile(path, content, 0644))

	var buf bytes.Buffer
	n, err := CopyFileTo(&buf, path, make([]byte, 512))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, content, buf.Bytes())

	_, err = CopyFileTo(&buf, filepath.Join(t.TempDir(), "missing"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPayloadRoundTrip(t *testing.T) {
	for _, mode := range []models.CompressionMode{models.CompressionDeflate, models.CompressionZstd} {
		t.Run(string(mode), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewPayloadWriter(&buf, mode, 3)
			require.NoError(t, err)
			_, err = w.Write([]byte("payload payload payload"))
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := NewPayloadReader(&buf, mode)
			require.NoError(t, err)
			defer r.Close()
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, "payload payload payload", string(got))
		})
	}
}

func TestDenseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewDenseWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(bytes.Repeat([]byte("dense"), 1000))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Less(t, buf.Len(), 5000)

	r, err := NewDenseReader(&buf)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte("dense"), 1000), got)
}

func TestCalculateChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0644))

	sum, err := CalculateChecksum(path)
	require.NoError(t, err)
	assert.Equal(t, int64(6), sum.Size)
	assert.Equal(t, "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03", sum.SHA256)
}
