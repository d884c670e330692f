package packager

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/ralt/packsmith/internal/ledger"
)

// repackTime stamps every entry of a repacked archive
var repackTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

type pendingTicket struct {
	number int32
	path   string
}

// ticketQueue holds payloads waiting for the secondary compression pass.
// A payload is queued once per identity, however many packs declare it.
type ticketQueue struct {
	tickets    []pendingTicket
	byIdentity map[ledger.Identity]int32
}

func newTicketQueue() *ticketQueue {
	return &ticketQueue{byIdentity: make(map[ledger.Identity]int32)}
}

// Enqueue returns the ticket of id, assigning the next number on first sight
func (q *ticketQueue) Enqueue(id ledger.Identity, path string) int32 {
	if n, ok := q.byIdentity[id]; ok {
		return n
	}

	n := int32(len(q.tickets))
	q.tickets = append(q.tickets, pendingTicket{number: n, path: path})
	q.byIdentity[id] = n
	return n
}

// Len returns the number of distinct queued payloads
func (q *ticketQueue) Len() int {
	return len(q.tickets)
}

// repackArchive rewrites the zip at src onto w for maximum downstream compression:
// entries sorted by name, stored uncompressed, stamped with repackTime, without
// comments or extra fields.
func repackArchive(w io.Writer, src string, buf []byte) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer zr.Close()

	files := make([]*zip.File, len(zr.File))
	copy(files, zr.File)
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	zw := zip.NewWriter(w)
	for _, f := range files {
		hdr := &zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Store,
			Modified: repackTime,
		}
		hdr.SetMode(f.Mode())

		out, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", f.Name, err)
		}

		if f.FileInfo().IsDir() {
			continue
		}

		if err := copyZipEntry(out, f, buf); err != nil {
			return fmt.Errorf("failed to copy %s: %w", f.Name, err)
		}
	}

	return zw.Close()
}

func copyZipEntry(w io.Writer, f *zip.File, buf []byte) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.CopyBuffer(struct{ io.Writer }{w}, rc, buf)
	return err
}
