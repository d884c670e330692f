package models

import "time"

// RecordKind tags each serialized record so readers can dispatch on it
type RecordKind byte

const (
	KindFile RecordKind = iota + 1
	KindParsable
	KindExecutable
	KindUpdateCheck
	KindPack
)

// String returns the string representation of RecordKind
func (k RecordKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindParsable:
		return "parsable"
	case KindExecutable:
		return "executable"
	case KindUpdateCheck:
		return "updatecheck"
	case KindPack:
		return "pack"
	default:
		return "unknown"
	}
}

// Record is implemented by every type written through the record codec
type Record interface {
	Kind() RecordKind
}

// Pack is one selectable installation unit
type Pack struct {
	// Descriptor
	ID            string
	Name          string
	Description   string
	Required      bool
	Preselected   bool
	Hidden        bool
	Loose         bool // files are declared but fetched at install time
	Parent        string
	Dependencies  []string
	InstallGroups []string

	// Content, in declaration order
	Files        []FileRecord
	Parsables    []ParsableRecord
	Executables  []ExecutableRecord
	UpdateChecks []UpdateCheckRecord

	// NBytes is the installed footprint, computed during serialization
	NBytes int64
}

// Kind implements Record
func (p *Pack) Kind() RecordKind { return KindPack }

// EffectiveID returns the pack id, falling back to the name
func (p *Pack) EffectiveID() string {
	if p.ID == "" {
		return p.Name
	}
	return p.ID
}

// BackRef points at content already written earlier in the same container
type BackRef struct {
	PackID string
	Offset int64
}

// NoTicket marks a file that is not queued for secondary compression
const NoTicket int32 = -1

// FileRecord describes one file of a pack
type FileRecord struct {
	SourcePath string
	TargetPath string
	Length     int64
	ModTime    time.Time
	Directory  bool
	Condition  string

	BackRef             *BackRef
	SecondaryCompressed bool
	Ticket              int32
}

// Kind implements Record
func (f *FileRecord) Kind() RecordKind { return KindFile }

// Embedded reports whether the record's content follows it inline in the pack stream
func (f *FileRecord) Embedded(loose bool) bool {
	return !loose && !f.Directory && f.BackRef == nil && !f.SecondaryCompressed
}

// ParsableRecord is a file whose variables get substituted at install time
type ParsableRecord struct {
	Path     string   `yaml:"path"`
	Type     string   `yaml:"type,omitempty"`
	Encoding string   `yaml:"encoding,omitempty"`
	OS       []string `yaml:"os,omitempty"`
}

// Kind implements Record
func (p *ParsableRecord) Kind() RecordKind { return KindParsable }

// ExecutableRecord marks a file to run or flag executable at install time
type ExecutableRecord struct {
	Path      string   `yaml:"path"`
	Type      string   `yaml:"type,omitempty"`
	Class     string   `yaml:"class,omitempty"`
	Stage     string   `yaml:"stage,omitempty"`
	OnFailure string   `yaml:"on_failure,omitempty"`
	Args      []string `yaml:"args,omitempty"`
	KeepFile  bool     `yaml:"keep,omitempty"`
	OS        []string `yaml:"os,omitempty"`
}

// Kind implements Record
func (e *ExecutableRecord) Kind() RecordKind { return KindExecutable }

// UpdateCheckRecord lists files the runtime removes when updating an install
type UpdateCheckRecord struct {
	Includes      []string `yaml:"includes,omitempty"`
	Excludes      []string `yaml:"excludes,omitempty"`
	CaseSensitive bool     `yaml:"case_sensitive,omitempty"`
}

// Kind implements Record
func (u *UpdateCheckRecord) Kind() RecordKind { return KindUpdateCheck }

// IndexEntry is the lightweight, externally facing summary of a pack
type IndexEntry struct {
	Name   string `yaml:"name"`
	ID     string `yaml:"id"`
	NBytes int64  `yaml:"nbytes"`
}
