package record

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ralt/packsmith/internal/models"
)

const (
	// maxStringLen bounds a single string and the length of a string list
	maxStringLen = 1 << 20

	// maxPrealloc caps the capacity reserved from a count read off the stream
	maxPrealloc = 1024
)

// ErrCorrupt is returned when the stream does not follow the record framing
var ErrCorrupt = errors.New("corrupt record stream")

// Reader decodes what Writer produced. Inline file content can be read through
// Content between records.
type Reader struct {
	r       *bufio.Reader
	err     error
	scratch [8]byte
}

// NewReader creates a record reader on r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadCount reads a list length
func (r *Reader) ReadCount() (int, error) {
	n := r.getInt32()
	if r.err == nil && n < 0 {
		r.err = fmt.Errorf("%w: negative count %d", ErrCorrupt, n)
	}
	return int(n), r.err
}

// ReadRecord reads one record of any kind
func (r *Reader) ReadRecord() (models.Record, error) {
	kind := models.RecordKind(r.getByte())
	if r.err != nil {
		return nil, r.err
	}

	var rec models.Record
	switch kind {
	case models.KindFile:
		rec = r.file()
	case models.KindParsable:
		rec = r.parsable()
	case models.KindExecutable:
		rec = r.executable()
	case models.KindUpdateCheck:
		rec = r.updateCheck()
	case models.KindPack:
		rec = r.pack()
	default:
		return nil, fmt.Errorf("%w: unknown record kind %d", ErrCorrupt, kind)
	}

	if r.err != nil {
		return nil, r.err
	}
	return rec, nil
}

// ReadList reads a count-prefixed list whose records must all be *T
func ReadList[T any](r *Reader) ([]T, error) {
	n, err := r.ReadCount()
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		rec, err := r.ReadRecord()
		if err != nil {
			return nil, err
		}
		v, ok := any(rec).(*T)
		if !ok {
			return nil, fmt.Errorf("%w: expected %T, got %s record", ErrCorrupt, v, rec.Kind())
		}
		items = append(items, *v)
	}
	return items, nil
}

// Content returns a reader over the next n inline content bytes
func (r *Reader) Content(n int64) io.Reader {
	return io.LimitReader(r.r, n)
}

func (r *Reader) file() *models.FileRecord {
	f := &models.FileRecord{
		SourcePath: r.getString(),
		TargetPath: r.getString(),
		Length:     r.getInt64(),
		ModTime:    r.getTime(),
		Directory:  r.getBool(),
		Condition:  r.getString(),
		BackRef:    r.getBackRef(),
	}
	f.SecondaryCompressed = r.getBool()
	f.Ticket = r.getInt32()
	return f
}

func (r *Reader) parsable() *models.ParsableRecord {
	return &models.ParsableRecord{
		Path:     r.getString(),
		Type:     r.getString(),
		Encoding: r.getString(),
		OS:       r.getStrings(),
	}
}

func (r *Reader) executable() *models.ExecutableRecord {
	return &models.ExecutableRecord{
		Path:      r.getString(),
		Type:      r.getString(),
		Class:     r.getString(),
		Stage:     r.getString(),
		OnFailure: r.getString(),
		Args:      r.getStrings(),
		KeepFile:  r.getBool(),
		OS:        r.getStrings(),
	}
}

func (r *Reader) updateCheck() *models.UpdateCheckRecord {
	return &models.UpdateCheckRecord{
		Includes:      r.getStrings(),
		Excludes:      r.getStrings(),
		CaseSensitive: r.getBool(),
	}
}

func (r *Reader) pack() *models.Pack {
	return &models.Pack{
		ID:            r.getString(),
		Name:          r.getString(),
		Description:   r.getString(),
		Required:      r.getBool(),
		Preselected:   r.getBool(),
		Hidden:        r.getBool(),
		Loose:         r.getBool(),
		Parent:        r.getString(),
		Dependencies:  r.getStrings(),
		InstallGroups: r.getStrings(),
		NBytes:        r.getInt64(),
	}
}

func (r *Reader) getRaw(p []byte) {
	if r.err != nil {
		return
	}
	if _, err := io.ReadFull(r.r, p); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.err = err
	}
}

func (r *Reader) getByte() byte {
	r.getRaw(r.scratch[:1])
	if r.err != nil {
		return 0
	}
	return r.scratch[0]
}

func (r *Reader) getBool() bool {
	return r.getByte() != 0
}

func (r *Reader) getInt32() int32 {
	r.getRaw(r.scratch[:4])
	if r.err != nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(r.scratch[:4]))
}

func (r *Reader) getInt64() int64 {
	r.getRaw(r.scratch[:8])
	if r.err != nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(r.scratch[:8]))
}

func (r *Reader) getTime() time.Time {
	ms := r.getInt64()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (r *Reader) getString() string {
	n := r.getInt32()
	if r.err != nil {
		return ""
	}
	if n < 0 || n > maxStringLen {
		r.err = fmt.Errorf("%w: string length %d", ErrCorrupt, n)
		return ""
	}
	buf := make([]byte, n)
	r.getRaw(buf)
	return string(buf)
}

func (r *Reader) getStrings() []string {
	n := r.getInt32()
	if r.err != nil || n == 0 {
		return nil
	}
	if n < 0 || n > maxStringLen {
		r.err = fmt.Errorf("%w: list length %d", ErrCorrupt, n)
		return nil
	}
	ss := make([]string, 0, n)
	for i := int32(0); i < n && r.err == nil; i++ {
		ss = append(ss, r.getString())
	}
	return ss
}

func (r *Reader) getBackRef() *models.BackRef {
	if !r.getBool() {
		return nil
	}
	return &models.BackRef{
		PackID: r.getString(),
		Offset: r.getInt64(),
	}
}
