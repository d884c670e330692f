package packager

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zip"
	"github.com/ralt/packsmith/internal/models"
	"github.com/ralt/packsmith/internal/record"
	"github.com/ralt/packsmith/internal/utils"
	"gopkg.in/yaml.v3"
)

// zstdMagic starts payloads written in the zstd compression mode
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// ErrPackNotFound is returned when no container holds the requested pack
var ErrPackNotFound = errors.New("pack not found")

// Installer reads back the containers written by CreateInstaller
type Installer struct {
	path string
	zr   *zip.ReadCloser
}

// Open opens the primary container at path
func Open(path string) (*Installer, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	return &Installer{path: path, zr: zr}, nil
}

// Close releases the primary container
func (i *Installer) Close() error {
	return i.zr.Close()
}

// Packs reads the pack descriptors from packs.info
func (i *Installer) Packs() ([]models.Pack, error) {
	rc, err := i.zr.Open(PackInfoEntry)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return record.ReadList[models.Pack](record.NewReader(rc))
}

// Index reads the packs.index summary
func (i *Installer) Index() ([]models.IndexEntry, error) {
	rc, err := i.zr.Open(PackIndexEntry)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var index []models.IndexEntry
	if err := yaml.NewDecoder(rc).Decode(&index); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", PackIndexEntry, err)
	}
	return index, nil
}

// Entries lists the entry names of the primary container
func (i *Installer) Entries() []string {
	names := make([]string, 0, len(i.zr.File))
	for _, f := range i.zr.File {
		names = append(names, f.Name)
	}
	return names
}

// OpenAlt returns the decompressed, repacked archive of a secondary-compression ticket
func (i *Installer) OpenAlt(ticket int32) (io.ReadCloser, error) {
	rc, err := i.zr.Open(AltEntryName(ticket))
	if err != nil {
		return nil, err
	}

	r, err := utils.NewDenseReader(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return readCloser{Reader: r, Closer: rc}, nil
}

// OpenPack returns the decompressed payload of a pack, looking in the primary
// container first and then in the pack's secondary container
func (i *Installer) OpenPack(id string) (io.ReadCloser, error) {
	name := PackEntryName(id)

	if rc, err := i.zr.Open(name); err == nil {
		return newPayloadReader(rc, rc)
	}

	path := SecondaryPath(i.path, id)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, id)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}

	rc, err := zr.Open(name)
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, id)
	}

	return newPayloadReader(rc, multiCloser{rc, zr})
}

// ReadPack walks a pack payload. fn is called for every file record with a
// reader over its inline content, or nil when the content is stored elsewhere.
// Content fn leaves unread is skipped.
func ReadPack(r io.Reader, loose bool, fn func(rec *models.FileRecord, content io.Reader) error) (*models.Pack, error) {
	rr := record.NewReader(r)

	n, err := rr.ReadCount()
	if err != nil {
		return nil, err
	}

	pack := &models.Pack{Loose: loose}
	for j := 0; j < n; j++ {
		rec, err := rr.ReadRecord()
		if err != nil {
			return nil, err
		}
		file, ok := rec.(*models.FileRecord)
		if !ok {
			return nil, fmt.Errorf("%w: expected file record, got %s", record.ErrCorrupt, rec.Kind())
		}

		var content io.Reader
		if file.Embedded(loose) {
			content = rr.Content(file.Length)
		}

		if fn != nil {
			if err := fn(file, content); err != nil {
				return nil, err
			}
		}

		if content != nil {
			if _, err := io.Copy(io.Discard, content); err != nil {
				return nil, err
			}
		}

		pack.Files = append(pack.Files, *file)
	}

	if pack.Parsables, err = record.ReadList[models.ParsableRecord](rr); err != nil {
		return nil, err
	}
	if pack.Executables, err = record.ReadList[models.ExecutableRecord](rr); err != nil {
		return nil, err
	}
	if pack.UpdateChecks, err = record.ReadList[models.UpdateCheckRecord](rr); err != nil {
		return nil, err
	}

	return pack, nil
}

func newPayloadReader(r io.Reader, closer io.Closer) (io.ReadCloser, error) {
	br := bufio.NewReader(r)

	mode := models.CompressionDeflate
	if head, _ := br.Peek(len(zstdMagic)); bytes.Equal(head, zstdMagic) {
		mode = models.CompressionZstd
	}

	payload, err := utils.NewPayloadReader(br, mode)
	if err != nil {
		closer.Close()
		return nil, err
	}
	return readCloser{Reader: payload, Closer: multiCloser{payload, closer}}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
