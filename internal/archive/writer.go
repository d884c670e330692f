package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/ralt/packsmith/internal/utils"
)

var (
	// ErrClosed is returned when a closed container is asked for another entry
	ErrClosed = errors.New("container is closed")
	// ErrEntryOpen is returned when an entry is begun before the previous one ended
	ErrEntryOpen = errors.New("previous entry was not ended")
	// ErrNoEntry is returned by EndEntry when no entry is open
	ErrNoEntry = errors.New("no entry is open")
)

// Options configures a container
type Options struct {
	// Level is the deflate level used for Deflate entries
	Level int
}

// EntryHeader describes a named slot in the container
type EntryHeader struct {
	Name     string
	Modified time.Time
	// Store disables container compression, for payloads compressed upstream
	Store bool
}

// Writer writes named entries into one zip container.
// At most one entry is open at a time.
type Writer struct {
	name    string
	zw      *zip.Writer
	file    io.Closer
	current io.Writer
	written map[string]struct{}
	closed  bool
}

// Create creates the container file at path
func Create(path string, opts Options) (*Writer, error) {
	if err := utils.EnsureParentDir(path); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := NewWriter(f, opts)
	w.name = path
	w.file = f
	return w, nil
}

// NewWriter writes a container to out. The caller keeps ownership of out.
func NewWriter(out io.Writer, opts Options) *Writer {
	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, utils.NewFlateCompressor(opts.Level))

	return &Writer{
		zw:      zw,
		written: make(map[string]struct{}),
	}
}

// Name returns the path the container was created at, if any
func (w *Writer) Name() string {
	return w.name
}

// BeginEntry opens a new entry and returns the writer for its content
func (w *Writer) BeginEntry(hdr EntryHeader) (io.Writer, error) {
	if w.closed {
		return nil, ErrClosed
	}
	if w.current != nil {
		return nil, ErrEntryOpen
	}

	method := zip.Deflate
	if hdr.Store {
		method = zip.Store
	}

	fh := &zip.FileHeader{
		Name:     hdr.Name,
		Method:   method,
		Modified: hdr.Modified,
	}

	ew, err := w.zw.CreateHeader(fh)
	if err != nil {
		return nil, fmt.Errorf("failed to create entry %s: %w", hdr.Name, err)
	}

	w.current = ew
	w.written[hdr.Name] = struct{}{}
	return ew, nil
}

// EndEntry finalizes the open entry
func (w *Writer) EndEntry() error {
	if w.current == nil {
		return ErrNoEntry
	}
	w.current = nil

	// zip finishes an entry lazily; flushing pushes its bytes to the sink now
	return w.zw.Flush()
}

// Has reports whether an entry with name was already written
func (w *Writer) Has(name string) bool {
	_, ok := w.written[name]
	return ok
}

// Close writes the central directory and closes the owned file.
// Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.current = nil

	err := w.zw.Close()
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
