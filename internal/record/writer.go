// Package record implements the binary framing shared by pack entries and packs.info.
//
// Every list is an int32 count followed by that many records. A record starts with
// its kind byte and continues with the fields of that kind in a fixed order. Integers
// are big-endian, strings are an int32 length followed by UTF-8 bytes, and times are
// Unix milliseconds.
package record

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/ralt/packsmith/internal/models"
)

// Writer encodes records onto an io.Writer without buffering,
// so a byte counter underneath always reflects every completed call.
// The first write error sticks and is returned by every later call.
type Writer struct {
	w       io.Writer
	err     error
	scratch [8]byte
}

// NewWriter creates a record writer on w
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteCount writes a list length
func (w *Writer) WriteCount(n int) error {
	if n < 0 || n > math.MaxInt32 {
		return fmt.Errorf("count %d out of range", n)
	}
	w.putInt32(int32(n))
	return w.err
}

// WriteRecord writes one record of any supported kind
func (w *Writer) WriteRecord(r models.Record) error {
	w.putByte(byte(r.Kind()))

	switch v := r.(type) {
	case *models.FileRecord:
		w.file(v)
	case *models.ParsableRecord:
		w.parsable(v)
	case *models.ExecutableRecord:
		w.executable(v)
	case *models.UpdateCheckRecord:
		w.updateCheck(v)
	case *models.Pack:
		w.pack(v)
	default:
		return fmt.Errorf("unsupported record type %T", r)
	}
	return w.err
}

// WriteList writes a count-prefixed list of records
func WriteList[T any, P interface {
	*T
	models.Record
}](w *Writer, items []T) error {
	if err := w.WriteCount(len(items)); err != nil {
		return err
	}
	for i := range items {
		if err := w.WriteRecord(P(&items[i])); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) file(f *models.FileRecord) {
	w.putString(f.SourcePath)
	w.putString(f.TargetPath)
	w.putInt64(f.Length)
	w.putTime(f.ModTime)
	w.putBool(f.Directory)
	w.putString(f.Condition)
	w.putBackRef(f.BackRef)
	w.putBool(f.SecondaryCompressed)
	w.putInt32(f.Ticket)
}

func (w *Writer) parsable(p *models.ParsableRecord) {
	w.putString(p.Path)
	w.putString(p.Type)
	w.putString(p.Encoding)
	w.putStrings(p.OS)
}

func (w *Writer) executable(e *models.ExecutableRecord) {
	w.putString(e.Path)
	w.putString(e.Type)
	w.putString(e.Class)
	w.putString(e.Stage)
	w.putString(e.OnFailure)
	w.putStrings(e.Args)
	w.putBool(e.KeepFile)
	w.putStrings(e.OS)
}

func (w *Writer) updateCheck(u *models.UpdateCheckRecord) {
	w.putStrings(u.Includes)
	w.putStrings(u.Excludes)
	w.putBool(u.CaseSensitive)
}

// pack writes the descriptor only; content lists live in the pack's own entry
func (w *Writer) pack(p *models.Pack) {
	w.putString(p.ID)
	w.putString(p.Name)
	w.putString(p.Description)
	w.putBool(p.Required)
	w.putBool(p.Preselected)
	w.putBool(p.Hidden)
	w.putBool(p.Loose)
	w.putString(p.Parent)
	w.putStrings(p.Dependencies)
	w.putStrings(p.InstallGroups)
	w.putInt64(p.NBytes)
}

func (w *Writer) putRaw(p []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(p)
}

func (w *Writer) putByte(b byte) {
	w.scratch[0] = b
	w.putRaw(w.scratch[:1])
}

func (w *Writer) putBool(b bool) {
	if b {
		w.putByte(1)
		return
	}
	w.putByte(0)
}

func (w *Writer) putInt32(v int32) {
	binary.BigEndian.PutUint32(w.scratch[:4], uint32(v))
	w.putRaw(w.scratch[:4])
}

func (w *Writer) putInt64(v int64) {
	binary.BigEndian.PutUint64(w.scratch[:8], uint64(v))
	w.putRaw(w.scratch[:8])
}

func (w *Writer) putTime(t time.Time) {
	if t.IsZero() {
		w.putInt64(0)
		return
	}
	w.putInt64(t.UnixMilli())
}

func (w *Writer) putString(s string) {
	if len(s) > maxStringLen {
		if w.err == nil {
			w.err = fmt.Errorf("string of %d bytes exceeds %d", len(s), maxStringLen)
		}
		return
	}
	w.putInt32(int32(len(s)))
	w.putRaw([]byte(s))
}

func (w *Writer) putStrings(ss []string) {
	if len(ss) > maxStringLen {
		if w.err == nil {
			w.err = fmt.Errorf("list of %d strings exceeds %d", len(ss), maxStringLen)
		}
		return
	}
	w.putInt32(int32(len(ss)))
	for _, s := range ss {
		w.putString(s)
	}
}

func (w *Writer) putBackRef(ref *models.BackRef) {
	if ref == nil {
		w.putBool(false)
		return
	}
	w.putBool(true)
	w.putString(ref.PackID)
	w.putInt64(ref.Offset)
}
