package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ralt/packsmith/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bin", "tool"), "#!/bin/sh\n")
	writeFile(t, filepath.Join(dir, "docs", "guide", "index.html"), "<html></html>")
	writeFile(t, filepath.Join(dir, "docs", "README"), "readme")

	manifest := `packs:
  - id: core
    name: Core
    required: true
    files:
      - source: bin/tool
        target: $INSTALL_PATH/bin/tool
        condition: os.linux
    executables:
      - path: $INSTALL_PATH/bin/tool
        type: bin
        stage: never
        keep: true
  - name: Documentation
    loose: true
    depends: [core]
    files:
      - source: docs
        target: $INSTALL_PATH/doc
    parsables:
      - path: $INSTALL_PATH/doc/README
        type: plain
    update_checks:
      - includes: ["doc/**"]
        case_sensitive: true
`
	path := filepath.Join(dir, "packs.yaml")
	writeFile(t, path, manifest)

	packs, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, packs, 2)

	core := packs[0]
	assert.Equal(t, "core", core.ID)
	assert.True(t, core.Required)
	require.Len(t, core.Files, 1)
	assert.Equal(t, filepath.Join(dir, "bin", "tool"), core.Files[0].SourcePath)
	assert.Equal(t, int64(len("#!/bin/sh\n")), core.Files[0].Length)
	assert.Equal(t, "os.linux", core.Files[0].Condition)
	assert.Equal(t, models.NoTicket, core.Files[0].Ticket)
	assert.False(t, core.Files[0].ModTime.IsZero())
	require.Len(t, core.Executables, 1)
	assert.True(t, core.Executables[0].KeepFile)
	assert.Equal(t, "never", core.Executables[0].Stage)

	docs := packs[1]
	assert.Equal(t, "Documentation", docs.EffectiveID())
	assert.True(t, docs.Loose)
	assert.Equal(t, []string{"core"}, docs.Dependencies)

	var targets []string
	for _, f := range docs.Files {
		targets = append(targets, f.TargetPath)
		if f.Directory {
			assert.Zero(t, f.Length)
		}
	}
	assert.Equal(t, []string{
		"$INSTALL_PATH/doc",
		"$INSTALL_PATH/doc/README",
		"$INSTALL_PATH/doc/guide",
		"$INSTALL_PATH/doc/guide/index.html",
	}, targets)
	assert.True(t, docs.Files[0].Directory)
	assert.Equal(t, int64(len("readme")), docs.Files[1].Length)

	require.Len(t, docs.Parsables, 1)
	assert.Equal(t, "plain", docs.Parsables[0].Type)
	require.Len(t, docs.UpdateChecks, 1)
	assert.Equal(t, []string{"doc/**"}, docs.UpdateChecks[0].Includes)
	assert.True(t, docs.UpdateChecks[0].CaseSensitive)
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{name: "no packs", manifest: "packs: []\n"},
		{name: "unnamed pack", manifest: "packs:\n  - description: nameless\n"},
		{name: "missing source", manifest: "packs:\n  - name: a\n    files:\n      - source: nowhere.txt\n        target: $INSTALL_PATH/x\n"},
		{name: "missing target", manifest: "packs:\n  - name: a\n    files:\n      - source: packs.yaml\n"},
		{name: "invalid yaml", manifest: "packs: {"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "packs.yaml")
			writeFile(t, path, tt.manifest)

			_, err := NewLoader(nil).Load(context.Background(), path)
			require.Error(t, err)
			assert.True(t, models.IsType(err, models.ErrManifest))
		})
	}

	_, err := NewLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, models.IsType(err, models.ErrManifest))
}
