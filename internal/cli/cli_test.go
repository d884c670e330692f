package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ralt/packsmith/internal/models"
	"github.com/ralt/packsmith/internal/packager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeProject(t *testing.T) (dir, manifestPath string) {
	t.Helper()
	dir = t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "app.bin"), strings.Repeat("a", 512))
	writeFile(t, filepath.Join(dir, "src", "share", "data.txt"), "data")

	manifestPath = filepath.Join(dir, "packs.yaml")
	writeFile(t, manifestPath, `packs:
  - id: core
    name: Core
    required: true
    files:
      - source: src/app.bin
        target: $INSTALL_PATH/app.bin
  - id: extras
    name: Extras
    files:
      - source: src/share
        target: $INSTALL_PATH/share
      - source: src/app.bin
        target: $INSTALL_PATH/extras/app.bin
`)
	return dir, manifestPath
}

func TestBuildAndList(t *testing.T) {
	dir, manifestPath := writeProject(t)
	output := filepath.Join(dir, "dist", "install.zip")
	indexOut := filepath.Join(dir, "dist", "index.yaml")

	_, err := execute(t, "build",
		"--manifest", manifestPath,
		"--output", output,
		"--source-date-epoch", "1700000000",
		"--index-out", indexOut,
	)
	require.NoError(t, err)
	assert.FileExists(t, output)

	data, err := os.ReadFile(indexOut)
	require.NoError(t, err)
	var index []models.IndexEntry
	require.NoError(t, yaml.Unmarshal(data, &index))
	assert.Equal(t, []models.IndexEntry{
		{Name: "Core", ID: "core", NBytes: 512},
		{Name: "Extras", ID: "extras", NBytes: 516},
	}, index)

	out, err := execute(t, "list", "--files", output)
	require.NoError(t, err)
	assert.Contains(t, out, "core")
	assert.Contains(t, out, "required")
	assert.Contains(t, out, "[extras]")
	assert.Contains(t, out, "$INSTALL_PATH/share/data.txt")
	assert.Contains(t, out, "$INSTALL_PATH/extras/app.bin (-> core@")
}

func TestBuildSplitWithConfigFile(t *testing.T) {
	dir, manifestPath := writeProject(t)
	configPath := filepath.Join(dir, "packsmith.yaml")
	writeFile(t, configPath, `output: out/setup.zip
compression: zstd
compression_level: 3
source_date_epoch: 1700000000
`)

	_, err := execute(t, "build", "--config", configPath, "--manifest", manifestPath, "--split")
	require.NoError(t, err)

	primary := filepath.Join(dir, "out", "setup.zip")
	assert.FileExists(t, primary)
	assert.FileExists(t, packager.SecondaryPath(primary, "core"))
	assert.FileExists(t, packager.SecondaryPath(primary, "extras"))

	out, err := execute(t, "list", "-f", primary)
	require.NoError(t, err)
	// Split containers cannot share content, so nothing is back-referenced
	assert.NotContains(t, out, "->")
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	dir, manifestPath := writeProject(t)

	_, err := execute(t, "build", "--manifest", manifestPath, "--output", filepath.Join(dir, "x.zip"), "--compression", "lz4")
	assert.True(t, models.IsType(err, models.ErrInvalidConfig))

	_, err = execute(t, "build", "--manifest", filepath.Join(dir, "missing.yaml"), "--output", filepath.Join(dir, "x.zip"))
	assert.True(t, models.IsType(err, models.ErrManifest))
	assert.NoFileExists(t, filepath.Join(dir, "x.zip"))

	_, err = execute(t, "build", "--output", filepath.Join(dir, "x.zip"))
	assert.Error(t, err)
}

func TestSourceDateEpochFromEnvironment(t *testing.T) {
	dir, manifestPath := writeProject(t)
	first := filepath.Join(dir, "first.zip")
	second := filepath.Join(dir, "second.zip")

	t.Setenv("SOURCE_DATE_EPOCH", "1700000000")

	_, err := execute(t, "build", "--manifest", manifestPath, "--output", first)
	require.NoError(t, err)
	_, err = execute(t, "build", "--manifest", manifestPath, "--output", second)
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	t.Setenv("SOURCE_DATE_EPOCH", "yesterday")
	_, err = execute(t, "build", "--manifest", manifestPath, "--output", first)
	assert.True(t, models.IsType(err, models.ErrInvalidConfig))
}

func TestListRejectsNonContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	writeFile(t, path, "not a zip")

	_, err := execute(t, "list", path)
	assert.True(t, models.IsType(err, models.ErrContainer))
}
