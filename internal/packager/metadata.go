package packager

import (
	"fmt"

	"github.com/ralt/packsmith/internal/archive"
	"github.com/ralt/packsmith/internal/models"
	"github.com/ralt/packsmith/internal/record"
	"github.com/ralt/packsmith/internal/utils"
	"gopkg.in/yaml.v3"
)

// writePackInfo writes the table of contents: the pack count followed by every
// pack descriptor, in declaration order
func (s *session) writePackInfo(packs []models.Pack) error {
	entry, err := s.primary.BeginEntry(archive.EntryHeader{Name: PackInfoEntry, Modified: s.stamp})
	if err != nil {
		return &models.PackagerError{Type: models.ErrContainer, Path: PackInfoEntry, Err: err}
	}

	if err := record.WriteList(record.NewWriter(entry), packs); err != nil {
		return &models.PackagerError{Type: models.ErrIO, Path: PackInfoEntry, Err: err}
	}

	if err := s.primary.EndEntry(); err != nil {
		return &models.PackagerError{Type: models.ErrContainer, Path: PackInfoEntry, Err: err}
	}
	return nil
}

// writePackIndex writes the lightweight name/id/size index as YAML
func (s *session) writePackIndex() error {
	data, err := yaml.Marshal(s.index)
	if err != nil {
		return fmt.Errorf("failed to marshal pack index: %w", err)
	}

	entry, err := s.primary.BeginEntry(archive.EntryHeader{Name: PackIndexEntry, Modified: s.stamp})
	if err != nil {
		return &models.PackagerError{Type: models.ErrContainer, Path: PackIndexEntry, Err: err}
	}

	if _, err := entry.Write(data); err != nil {
		return &models.PackagerError{Type: models.ErrIO, Path: PackIndexEntry, Err: err}
	}

	if err := s.primary.EndEntry(); err != nil {
		return &models.PackagerError{Type: models.ErrContainer, Path: PackIndexEntry, Err: err}
	}
	return nil
}

// writeSecondaryPayloads drains the ticket queue in ticket order. It runs after
// every pack entry is closed because each payload is repacked as a whole.
func (s *session) writeSecondaryPayloads() error {
	if s.queue.Len() == 0 {
		return nil
	}

	s.listener.Message(fmt.Sprintf("Compressing %d archives with secondary compression", s.queue.Len()), MsgVerbose)

	for _, ticket := range s.queue.tickets {
		if err := s.writeSecondaryPayload(ticket); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) writeSecondaryPayload(ticket pendingTicket) error {
	name := AltEntryName(ticket.number)

	entry, err := s.primary.BeginEntry(archive.EntryHeader{Name: name, Modified: s.stamp, Store: true})
	if err != nil {
		return &models.PackagerError{Type: models.ErrContainer, Path: name, Err: err}
	}

	dense, err := utils.NewDenseWriter(entry)
	if err != nil {
		return &models.PackagerError{Type: models.ErrIO, Path: ticket.path, Err: err}
	}

	if err := repackArchive(dense, ticket.path, s.buf); err != nil {
		dense.Close()
		return &models.PackagerError{Type: models.ErrIO, Path: ticket.path, Err: err}
	}

	if err := dense.Close(); err != nil {
		return &models.PackagerError{Type: models.ErrIO, Path: ticket.path, Err: err}
	}

	if err := s.primary.EndEntry(); err != nil {
		return &models.PackagerError{Type: models.ErrContainer, Path: name, Err: err}
	}
	return nil
}
