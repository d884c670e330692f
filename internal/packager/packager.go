// Package packager assembles resolved packs into installer containers.
//
// A run writes, in order: the skeleton runtime, installer resources, merged
// archives, one entry per pack, the packs.info table of contents, the packs.index
// summary and finally the secondary-compressed payloads.
package packager

import (
	"context"
	"fmt"
	"sort"

	"github.com/ralt/packsmith/internal/models"
)

// Builder is implemented by installer packagers
type Builder interface {
	// AddPack appends a pack; packs are written in the order they were added
	AddPack(pack models.Pack) error

	// AddResource registers a file to copy as resources/<name>
	AddResource(name, source string)

	// CreateInstaller writes all containers
	CreateInstaller(ctx context.Context) (*Result, error)
}

// Result describes the containers written by a run
type Result struct {
	Primary   string
	Secondary []string
	Packs     []models.Pack // descriptors with NBytes filled in
	Index     []models.IndexEntry
}

// Packager writes packs into a primary zip container and, when packs are split,
// one secondary container per pack
type Packager struct {
	cfg       *models.BuildConfig
	packs     []models.Pack
	ids       map[string]struct{}
	resources map[string]string
	copier    ResourceCopier
	listener  Listener
}

// Option configures a Packager
type Option func(*Packager)

// WithListener sets the progress listener
func WithListener(l Listener) Option {
	return func(p *Packager) {
		p.listener = l
	}
}

// WithCopier replaces the skeleton and resource copier
func WithCopier(c ResourceCopier) Option {
	return func(p *Packager) {
		p.copier = c
	}
}

// New creates a packager for cfg
func New(cfg *models.BuildConfig, opts ...Option) *Packager {
	p := &Packager{
		cfg:       cfg,
		ids:       make(map[string]struct{}),
		resources: make(map[string]string),
	}

	for name, source := range cfg.Resources {
		p.resources[name] = source
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.copier == nil {
		p.copier = NewFileCopier(cfg.Skeleton)
	}
	if p.listener == nil {
		p.listener = NewLogListener()
	}

	return p
}

// AddPack implements Builder. Pack ids must be unique.
func (p *Packager) AddPack(pack models.Pack) error {
	id := pack.EffectiveID()
	if id == "" {
		return &models.PackagerError{Type: models.ErrInvalidConfig, Err: fmt.Errorf("pack has neither id nor name")}
	}
	if _, ok := p.ids[id]; ok {
		return &models.PackagerError{Type: models.ErrInvalidConfig, Pack: id, Err: fmt.Errorf("duplicate pack id")}
	}

	p.ids[id] = struct{}{}
	p.packs = append(p.packs, pack)
	return nil
}

// AddResource implements Builder
func (p *Packager) AddResource(name, source string) {
	p.resources[name] = source
}

// CreateInstaller implements Builder. On failure every container created by the
// run is closed and removed before the error is returned.
func (p *Packager) CreateInstaller(ctx context.Context) (result *Result, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := newSession(p.cfg, p.listener)
	p.listener.Start()

	if err := s.openPrimary(); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.discard()
		}
	}()

	// The caller's packs are left as they were added
	packs := make([]models.Pack, len(p.packs))
	copy(packs, p.packs)

	if err := p.writeInstaller(s, packs); err != nil {
		return nil, err
	}

	secondary := s.secondaryPaths()
	if err := s.close(); err != nil {
		return nil, err
	}

	p.listener.Stop()

	return &Result{
		Primary:   p.cfg.OutputPath,
		Secondary: secondary,
		Packs:     packs,
		Index:     s.index,
	}, nil
}

func (p *Packager) writeInstaller(s *session, packs []models.Pack) error {
	s.listener.Message("Copying the skeleton installer", MsgVerbose)
	if err := p.copier.CopySkeleton(s.primary); err != nil {
		return &models.PackagerError{Type: models.ErrIO, Path: p.cfg.Skeleton, Err: err}
	}

	if err := p.writeResources(s); err != nil {
		return err
	}

	if err := p.writeMergedArchives(s); err != nil {
		return err
	}

	if err := s.writePacks(packs); err != nil {
		return err
	}

	if err := s.writePackInfo(packs); err != nil {
		return err
	}

	if err := s.writePackIndex(); err != nil {
		return err
	}

	return s.writeSecondaryPayloads()
}

func (p *Packager) writeResources(s *session) error {
	s.listener.Message(fmt.Sprintf("Copying %d files into installer", len(p.resources)), MsgInfo)

	names := make([]string, 0, len(p.resources))
	for name := range p.resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		source := p.resources[name]
		if _, err := p.copier.CopyResource(s.primary, name, source); err != nil {
			return &models.PackagerError{Type: models.ErrIO, Path: source, Err: err}
		}
	}
	return nil
}

func (p *Packager) writeMergedArchives(s *session) error {
	s.listener.Message(fmt.Sprintf("Merging %d archives into installer", len(p.cfg.Merge)), MsgInfo)

	for _, included := range p.cfg.Merge {
		if err := p.copier.MergeArchive(s.primary, included.Path, included.Filter); err != nil {
			return &models.PackagerError{Type: models.ErrIO, Path: included.Path, Err: err}
		}
	}
	return nil
}
