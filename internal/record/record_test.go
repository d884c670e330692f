package record

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ralt/packsmith/internal/models"
	"github.com/ralt/packsmith/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecordsWithInlineContent(t *testing.T) {
	var buf bytes.Buffer
	cw := utils.NewByteCountingWriter(&buf)
	w := NewWriter(cw)

	stamp := time.UnixMilli(1700000000123)
	files := []models.FileRecord{
		{SourcePath: "/src/a.txt", TargetPath: "$INSTALL_PATH/a.txt", Length: 5, ModTime: stamp, Ticket: models.NoTicket},
		{SourcePath: "/src/dir", TargetPath: "$INSTALL_PATH/dir", Directory: true, Ticket: models.NoTicket},
		{
			SourcePath: "/src/a.txt",
			TargetPath: "$INSTALL_PATH/copy.txt",
			Length:     5,
			BackRef:    &models.BackRef{PackID: "core", Offset: 17},
			Ticket:     models.NoTicket,
		},
	}

	require.NoError(t, w.WriteCount(len(files)))
	var contentAt int64
	for i := range files {
		require.NoError(t, w.WriteRecord(&files[i]))
		if i == 0 {
			contentAt = cw.Count()
			_, err := cw.Write([]byte("hello"))
			require.NoError(t, err)
		}
	}
	assert.Equal(t, int64(buf.Len()), cw.Count())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	n, err := r.ReadCount()
	require.NoError(t, err)
	require.Equal(t, 3, n)

	rec, err := r.ReadRecord()
	require.NoError(t, err)
	first, ok := rec.(*models.FileRecord)
	require.True(t, ok)
	assert.Equal(t, "/src/a.txt", first.SourcePath)
	assert.True(t, stamp.Equal(first.ModTime))
	assert.True(t, first.Embedded(false))

	content, err := io.ReadAll(r.Content(first.Length))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
	assert.Equal(t, "hello", string(buf.Bytes()[contentAt:contentAt+5]))

	rec, err = r.ReadRecord()
	require.NoError(t, err)
	assert.True(t, rec.(*models.FileRecord).Directory)
	assert.False(t, rec.(*models.FileRecord).Embedded(false))

	rec, err = r.ReadRecord()
	require.NoError(t, err)
	ref := rec.(*models.FileRecord).BackRef
	require.NotNil(t, ref)
	assert.Equal(t, models.BackRef{PackID: "core", Offset: 17}, *ref)
}

func TestListsRoundTrip(t *testing.T) {
	parsables := []models.ParsableRecord{
		{Path: "$INSTALL_PATH/bin/run.sh", Type: "shell", Encoding: "UTF-8", OS: []string{"unix"}},
	}
	executables := []models.ExecutableRecord{
		{Path: "$INSTALL_PATH/bin/run.sh", Type: "bin", Stage: "never", OnFailure: "warn", Args: []string{"-x", "y"}, KeepFile: true},
	}
	checks := []models.UpdateCheckRecord{
		{Includes: []string{"lib/*.jar"}, Excludes: []string{"lib/keep.jar"}, CaseSensitive: true},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, WriteList(w, parsables))
	require.NoError(t, WriteList(w, executables))
	require.NoError(t, WriteList(w, checks))
	require.NoError(t, WriteList(w, []models.UpdateCheckRecord{}))

	r := NewReader(&buf)
	gotParsables, err := ReadList[models.ParsableRecord](r)
	require.NoError(t, err)
	assert.Equal(t, parsables, gotParsables)

	gotExecutables, err := ReadList[models.ExecutableRecord](r)
	require.NoError(t, err)
	assert.Equal(t, executables, gotExecutables)

	gotChecks, err := ReadList[models.UpdateCheckRecord](r)
	require.NoError(t, err)
	assert.Equal(t, checks, gotChecks)

	empty, err := ReadList[models.UpdateCheckRecord](r)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPackDescriptorRoundTrip(t *testing.T) {
	pack := models.Pack{
		ID:            "core",
		Name:          "Core",
		Description:   "Core files",
		Required:      true,
		Preselected:   true,
		Dependencies:  []string{"base"},
		InstallGroups: []string{"default"},
		NBytes:        1234,
		Files:         []models.FileRecord{{SourcePath: "/ignored"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteList(NewWriter(&buf), []models.Pack{pack}))

	packs, err := ReadList[models.Pack](NewReader(&buf))
	require.NoError(t, err)
	require.Len(t, packs, 1)

	got := packs[0]
	assert.Equal(t, "core", got.ID)
	assert.Equal(t, int64(1234), got.NBytes)
	assert.Equal(t, []string{"base"}, got.Dependencies)
	assert.Nil(t, got.Files)
}

func TestReaderRejectsCorruptStreams(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"unknown kind", []byte{0, 0, 0, 1, 99}},
		{"negative count", []byte{0xff, 0xff, 0xff, 0xff}},
		{"truncated", []byte{0, 0, 0, 1, byte(models.KindParsable), 0, 0}},
		{"huge count", []byte{0x7f, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadList[models.ParsableRecord](NewReader(bytes.NewReader(tt.data)))
			assert.Error(t, err)

			_, err = ReadList[models.Pack](NewReader(bytes.NewReader(tt.data)))
			assert.Error(t, err)
		})
	}
}

func TestWriterRejectsUnreadableStrings(t *testing.T) {
	long := strings.Repeat("a", maxStringLen+1)

	var buf bytes.Buffer
	err := NewWriter(&buf).WriteRecord(&models.ParsableRecord{Path: long})
	assert.Error(t, err)

	buf.Reset()
	err = NewWriter(&buf).WriteRecord(&models.ExecutableRecord{Path: "run.sh", Args: make([]string, maxStringLen+1)})
	assert.Error(t, err)

	// The longest accepted string still reads back
	buf.Reset()
	edge := strings.Repeat("b", maxStringLen)
	require.NoError(t, WriteList(NewWriter(&buf), []models.ParsableRecord{{Path: edge}}))
	got, err := ReadList[models.ParsableRecord](NewReader(&buf))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, edge, got[0].Path)
}

func TestListRejectsUnexpectedKind(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteList(NewWriter(&buf), []models.ParsableRecord{{Path: "x"}}))

	_, err := ReadList[models.ExecutableRecord](NewReader(&buf))
	assert.ErrorIs(t, err, ErrCorrupt)
}
