// Package ledger remembers where file content was first written during a packaging run
package ledger

import (
	"path/filepath"
	"time"
)

// Identity distinguishes files for deduplication.
// It is path based: two different files never share a path within one run.
type Identity struct {
	Path    string
	Size    int64
	ModTime int64 // Unix nanoseconds
}

// NewIdentity builds an identity from already known metadata
func NewIdentity(path string, size int64, modTime time.Time) Identity {
	return Identity{
		Path:    filepath.Clean(path),
		Size:    size,
		ModTime: modTime.UnixNano(),
	}
}

// Locator is where content lives: a container, the pack entry and the offset inside
// that pack's payload stream
type Locator struct {
	Container string
	PackID    string
	Offset    int64
}

// Ledger maps identities to the locator of their first sighting. Not safe for
// concurrent use; each run owns its own ledger.
type Ledger struct {
	entries map[Identity]Locator
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{entries: make(map[Identity]Locator)}
}

// Lookup returns the stored locator for id
func (l *Ledger) Lookup(id Identity) (Locator, bool) {
	loc, ok := l.entries[id]
	return loc, ok
}

// RecordIfAbsent stores loc for an unseen id and reports true.
// For a known id it returns the stored locator untouched and false.
func (l *Ledger) RecordIfAbsent(id Identity, loc Locator) (Locator, bool) {
	if prev, ok := l.entries[id]; ok {
		return prev, false
	}
	l.entries[id] = loc
	return loc, true
}

// Len returns the number of known identities
func (l *Ledger) Len() int {
	return len(l.entries)
}
