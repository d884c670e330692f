package packager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ralt/packsmith/internal/archive"
	"github.com/ralt/packsmith/internal/ledger"
	"github.com/ralt/packsmith/internal/models"
	"github.com/ralt/packsmith/internal/utils"
	"github.com/sirupsen/logrus"
)

// Entry names inside the containers
const (
	PackInfoEntry  = "packs.info"
	PackIndexEntry = "packs.index"
	ResourcesPath  = "resources/"
)

// PackEntryName returns the entry holding the records and content of a pack
func PackEntryName(id string) string {
	return "packs/pack-" + id
}

// AltEntryName returns the entry holding a secondary-compressed payload
func AltEntryName(ticket int32) string {
	return fmt.Sprintf("packs/alt-%d", ticket)
}

// SecondaryPath returns the container a pack is written to when packs are split
func SecondaryPath(primary, id string) string {
	ext := filepath.Ext(primary)
	base := strings.TrimSuffix(primary, ext)
	if ext == "" {
		ext = ".zip"
	}
	return fmt.Sprintf("%s.pack-%s%s", base, id, ext)
}

// session owns everything one packaging run mutates: the open containers,
// the dedup ledger and the queue of secondary-compression tickets
type session struct {
	cfg      *models.BuildConfig
	listener Listener
	stamp    time.Time

	primary *archive.Writer
	current *archive.Writer // secondary container of the pack being written

	ledger   *ledger.Ledger
	selector *Selector
	queue    *ticketQueue

	buf     []byte
	created []string
	index   []models.IndexEntry
}

func newSession(cfg *models.BuildConfig, listener Listener) *session {
	stamp := time.Now()
	if cfg.SourceDateEpoch != 0 {
		stamp = time.Unix(cfg.SourceDateEpoch, 0).UTC()
	}

	return &session{
		cfg:      cfg,
		listener: listener,
		stamp:    stamp,
		ledger:   ledger.New(),
		selector: NewSelector(cfg.SecondaryCompression),
		queue:    newTicketQueue(),
		buf:      make([]byte, utils.CopyBufferSize),
	}
}

func (s *session) containerOptions() archive.Options {
	return archive.Options{Level: s.cfg.CompressionLevel}
}

// openPrimary creates the primary container at the configured output path
func (s *session) openPrimary() error {
	w, err := archive.Create(s.cfg.OutputPath, s.containerOptions())
	if err != nil {
		return &models.PackagerError{Type: models.ErrIO, Path: s.cfg.OutputPath, Err: err}
	}

	s.primary = w
	s.created = append(s.created, s.cfg.OutputPath)
	return nil
}

// openPackContainer returns the container the pack id is written to,
// creating a secondary one when packs are split
func (s *session) openPackContainer(id string) (*archive.Writer, error) {
	if !s.cfg.SplitPacks {
		return s.primary, nil
	}

	path := SecondaryPath(s.cfg.OutputPath, id)
	w, err := archive.Create(path, s.containerOptions())
	if err != nil {
		return nil, &models.PackagerError{Type: models.ErrIO, Pack: id, Path: path, Err: err}
	}

	s.current = w
	s.created = append(s.created, path)
	return w, nil
}

// closePackContainer closes the secondary container of the current pack, if any
func (s *session) closePackContainer() error {
	if s.current == nil {
		return nil
	}

	w := s.current
	s.current = nil
	if err := w.Close(); err != nil {
		return &models.PackagerError{Type: models.ErrIO, Path: w.Name(), Err: err}
	}
	return nil
}

// close finalizes every open container
func (s *session) close() error {
	err := s.closePackContainer()
	if s.primary != nil {
		if cerr := s.primary.Close(); cerr != nil && err == nil {
			err = &models.PackagerError{Type: models.ErrIO, Path: s.primary.Name(), Err: cerr}
		}
	}
	return err
}

// discard closes everything and removes the files this run created,
// since a partially written container is unusable
func (s *session) discard() {
	if err := s.close(); err != nil {
		logrus.Debugf("Closing containers after failure: %v", err)
	}

	for _, path := range s.created {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.Warnf("Failed to remove partial output %s: %v", path, err)
		}
	}
	s.created = nil
}

// secondaryPaths returns the secondary containers created so far
func (s *session) secondaryPaths() []string {
	if len(s.created) < 2 {
		return nil
	}
	return append([]string(nil), s.created[1:]...)
}
