package packager

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"

	"github.com/ralt/packsmith/internal/archive"
	"github.com/ralt/packsmith/internal/ledger"
	"github.com/ralt/packsmith/internal/models"
	"github.com/ralt/packsmith/internal/record"
	"github.com/ralt/packsmith/internal/utils"
)

// packStream is the payload of one pack entry: records and inline content,
// counted before any payload compression
type packStream struct {
	payload io.WriteCloser
	buffer  *bufio.Writer
	counter *utils.ByteCountingWriter
	records *record.Writer
	closed  bool
}

func newPackStream(entry io.Writer, cfg *models.BuildConfig) (*packStream, error) {
	payload, err := utils.NewPayloadWriter(entry, cfg.Compression, cfg.CompressionLevel)
	if err != nil {
		return nil, err
	}

	buffer := bufio.NewWriterSize(payload, utils.CopyBufferSize)
	counter := utils.NewByteCountingWriter(buffer)

	return &packStream{
		payload: payload,
		buffer:  buffer,
		counter: counter,
		records: record.NewWriter(counter),
	}, nil
}

// Close flushes buffered bytes and finishes payload compression
func (p *packStream) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.buffer.Flush()
	if cerr := p.payload.Close(); err == nil {
		err = cerr
	}
	return err
}

// writePacks serializes every pack in declaration order
func (s *session) writePacks(packs []models.Pack) error {
	num := len(packs)
	plural := ""
	if num != 1 {
		plural = "s"
	}
	s.listener.Message(fmt.Sprintf("Writing %d Pack%s into installer", num, plural), MsgInfo)

	for i := range packs {
		if err := s.writePack(&packs[i], i); err != nil {
			return err
		}
	}
	return nil
}

// writePack streams one pack into its entry and records its installed size
func (s *session) writePack(pack *models.Pack, number int) (err error) {
	id := pack.EffectiveID()
	pack.ID = id
	pack.NBytes = 0

	s.listener.Message(fmt.Sprintf("Writing Pack %d: %s", number, pack.Name), MsgVerbose)

	container, err := s.openPackContainer(id)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.closePackContainer(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	entry, err := container.BeginEntry(archive.EntryHeader{
		Name:     PackEntryName(id),
		Modified: s.stamp,
		Store:    !s.cfg.Compression.Standard(),
	})
	if err != nil {
		return &models.PackagerError{Type: models.ErrContainer, Pack: id, Err: err}
	}

	stream, err := newPackStream(entry, s.cfg)
	if err != nil {
		return &models.PackagerError{Type: models.ErrIO, Pack: id, Err: err}
	}
	defer stream.Close()

	nbytes, err := s.writeFiles(pack, container.Name(), stream)
	if err != nil {
		return err
	}

	if err := writeMetadataLists(pack, stream.records); err != nil {
		return &models.PackagerError{Type: models.ErrIO, Pack: id, Err: err}
	}

	if err := stream.Close(); err != nil {
		return &models.PackagerError{Type: models.ErrIO, Pack: id, Err: err}
	}

	if err := container.EndEntry(); err != nil {
		return &models.PackagerError{Type: models.ErrContainer, Pack: id, Err: err}
	}

	pack.NBytes = nbytes
	s.index = append(s.index, models.IndexEntry{Name: pack.Name, ID: id, NBytes: nbytes})
	return nil
}

// writeFiles writes the file records of pack, embedding content where needed,
// and returns the pack's installed size
func (s *session) writeFiles(pack *models.Pack, containerID string, stream *packStream) (int64, error) {
	id := pack.ID
	if err := stream.records.WriteCount(len(pack.Files)); err != nil {
		return 0, &models.PackagerError{Type: models.ErrIO, Pack: id, Err: err}
	}

	var nbytes int64
	for i := range pack.Files {
		// Written records are copies; the caller's pack stays untouched
		rec := pack.Files[i]
		rec.BackRef = nil
		rec.SecondaryCompressed = false
		rec.Ticket = models.NoTicket

		addFile := !pack.Loose

		identity, err := fileIdentity(&rec)
		if err != nil {
			return 0, &models.PackagerError{Type: models.ErrIO, Pack: id, Path: rec.SourcePath, Err: err}
		}

		secondary := false
		if addFile && !rec.Directory {
			secondary, err = s.selector.ShouldApply(rec.SourcePath)
			if err != nil {
				return 0, &models.PackagerError{Type: models.ErrIO, Pack: id, Path: rec.SourcePath, Err: err}
			}
		}

		if secondary {
			rec.SecondaryCompressed = true
			rec.Ticket = s.queue.Enqueue(identity, rec.SourcePath)
			addFile = false
		} else if loc, ok := s.ledger.Lookup(identity); ok && !rec.Directory && loc.Container == containerID {
			// Back-references cannot cross containers; elsewhere the content is re-embedded
			rec.BackRef = &models.BackRef{PackID: loc.PackID, Offset: loc.Offset}
			addFile = false
		}

		if err := stream.records.WriteRecord(&rec); err != nil {
			return 0, &models.PackagerError{Type: models.ErrIO, Pack: id, Path: rec.SourcePath, Err: err}
		}

		if addFile && !rec.Directory {
			pos := stream.counter.Count()

			written, err := utils.CopyFileTo(stream.counter, rec.SourcePath, s.buf)
			if err != nil {
				return 0, &models.PackagerError{Type: models.ErrIO, Pack: id, Path: rec.SourcePath, Err: err}
			}
			if written != rec.Length {
				return 0, &models.PackagerError{
					Type: models.ErrInputMismatch,
					Pack: id,
					Path: rec.SourcePath,
					Err:  fmt.Errorf("file size mismatch: declared %d bytes, read %d", rec.Length, written),
				}
			}

			s.ledger.RecordIfAbsent(identity, ledger.Locator{Container: containerID, PackID: id, Offset: pos})
		}

		// Loose and back-referenced files still count towards the installed size
		nbytes += rec.Length
	}

	return nbytes, nil
}

// writeMetadataLists writes the parsable, executable and update-check lists
func writeMetadataLists(pack *models.Pack, w *record.Writer) error {
	if err := record.WriteList(w, pack.Parsables); err != nil {
		return err
	}
	if err := record.WriteList(w, pack.Executables); err != nil {
		return err
	}
	return record.WriteList(w, pack.UpdateChecks)
}

// fileIdentity keys a record by absolute path and its declared size and mtime
func fileIdentity(rec *models.FileRecord) (ledger.Identity, error) {
	abs, err := filepath.Abs(rec.SourcePath)
	if err != nil {
		return ledger.Identity{}, err
	}
	return ledger.NewIdentity(abs, rec.Length, rec.ModTime), nil
}
