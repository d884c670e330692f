// Package manifest reads the YAML pack list handed to the packager.
//
// The manifest is already resolved: every pack lists its files with source and
// target paths. Sizes and timestamps are taken from the file system when the
// manifest is loaded, and directory sources are expanded into one record per
// entry beneath them.
package manifest

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/ralt/packsmith/internal/models"
	"github.com/ralt/packsmith/internal/scanner"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Manifest is the on-disk pack list
type Manifest struct {
	Packs []PackSpec `yaml:"packs"`
}

// PackSpec declares one pack
type PackSpec struct {
	ID            string   `yaml:"id,omitempty"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description,omitempty"`
	Required      bool     `yaml:"required,omitempty"`
	Preselected   bool     `yaml:"preselected,omitempty"`
	Hidden        bool     `yaml:"hidden,omitempty"`
	Loose         bool     `yaml:"loose,omitempty"`
	Parent        string   `yaml:"parent,omitempty"`
	Dependencies  []string `yaml:"depends,omitempty"`
	InstallGroups []string `yaml:"install_groups,omitempty"`

	Files        []FileSpec                 `yaml:"files,omitempty"`
	Parsables    []models.ParsableRecord    `yaml:"parsables,omitempty"`
	Executables  []models.ExecutableRecord  `yaml:"executables,omitempty"`
	UpdateChecks []models.UpdateCheckRecord `yaml:"update_checks,omitempty"`
}

// FileSpec maps a source file or directory to its install location
type FileSpec struct {
	Source    string `yaml:"source"`
	Target    string `yaml:"target"`
	Condition string `yaml:"condition,omitempty"`
}

// Loader turns manifests into packs
type Loader struct {
	scanner scanner.Scanner
}

// NewLoader creates a loader expanding directories with sc
func NewLoader(sc scanner.Scanner) *Loader {
	if sc == nil {
		sc = scanner.NewFileSystemScanner()
	}
	return &Loader{scanner: sc}
}

// Load reads the manifest at path. Relative sources resolve against its directory.
func (l *Loader) Load(ctx context.Context, path string) ([]models.Pack, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, &models.PackagerError{Type: models.ErrManifest, Path: path, Err: err}
	}

	var m Manifest
	if err := yaml.Unmarshal(contents, &m); err != nil {
		return nil, &models.PackagerError{Type: models.ErrManifest, Path: path, Err: fmt.Errorf("unmarshal manifest: %w", err)}
	}

	return l.Resolve(ctx, &m, filepath.Dir(path))
}

// Resolve converts m into packs, stating every source under base
func (l *Loader) Resolve(ctx context.Context, m *Manifest, base string) ([]models.Pack, error) {
	if len(m.Packs) == 0 {
		return nil, &models.PackagerError{Type: models.ErrManifest, Err: fmt.Errorf("manifest declares no packs")}
	}

	packs := make([]models.Pack, 0, len(m.Packs))
	for _, decl := range m.Packs {
		pack, err := l.resolvePack(ctx, &decl, base)
		if err != nil {
			return nil, err
		}
		packs = append(packs, *pack)
	}

	return packs, nil
}

func (l *Loader) resolvePack(ctx context.Context, decl *PackSpec, base string) (*models.Pack, error) {
	pack := &models.Pack{
		ID:            decl.ID,
		Name:          decl.Name,
		Description:   decl.Description,
		Required:      decl.Required,
		Preselected:   decl.Preselected,
		Hidden:        decl.Hidden,
		Loose:         decl.Loose,
		Parent:        decl.Parent,
		Dependencies:  decl.Dependencies,
		InstallGroups: decl.InstallGroups,
		Parsables:     decl.Parsables,
		Executables:   decl.Executables,
		UpdateChecks:  decl.UpdateChecks,
	}

	id := pack.EffectiveID()
	if id == "" {
		return nil, &models.PackagerError{Type: models.ErrManifest, Err: fmt.Errorf("pack has neither id nor name")}
	}

	for _, file := range decl.Files {
		records, err := l.resolveFile(ctx, &file, base)
		if err != nil {
			return nil, &models.PackagerError{Type: models.ErrManifest, Pack: id, Path: file.Source, Err: err}
		}
		pack.Files = append(pack.Files, records...)
	}

	logrus.Debugf("Pack %s: %d file records", id, len(pack.Files))
	return pack, nil
}

func (l *Loader) resolveFile(ctx context.Context, file *FileSpec, base string) ([]models.FileRecord, error) {
	if file.Source == "" || file.Target == "" {
		return nil, fmt.Errorf("file needs both source and target")
	}

	source := file.Source
	if !filepath.IsAbs(source) {
		source = filepath.Join(base, source)
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, err
	}

	root := models.FileRecord{
		SourcePath: source,
		TargetPath: file.Target,
		ModTime:    info.ModTime(),
		Directory:  info.IsDir(),
		Condition:  file.Condition,
		Ticket:     models.NoTicket,
	}

	if !info.IsDir() {
		root.Length = info.Size()
		return []models.FileRecord{root}, nil
	}

	entries, err := l.scanner.Scan(ctx, source)
	if err != nil {
		return nil, err
	}

	records := make([]models.FileRecord, 0, len(entries)+1)
	records = append(records, root)
	for _, entry := range entries {
		records = append(records, models.FileRecord{
			SourcePath: entry.Path,
			TargetPath: path.Join(file.Target, entry.RelPath),
			Length:     entry.Size,
			ModTime:    entry.ModTime,
			Directory:  entry.IsDir,
			Condition:  file.Condition,
			Ticket:     models.NoTicket,
		})
	}

	return records, nil
}
