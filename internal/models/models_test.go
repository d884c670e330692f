package models

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackagerErrorMessage(t *testing.T) {
	tests := []struct {
		err  *PackagerError
		want string
	}{
		{&PackagerError{Type: ErrInputMismatch, Pack: "core", Path: "/src/a", Err: io.ErrUnexpectedEOF}, "[InputMismatch] pack core: /src/a: unexpected EOF"},
		{&PackagerError{Type: ErrContainer, Pack: "core", Err: io.ErrShortWrite}, "[Container] pack core: short write"},
		{&PackagerError{Type: ErrIO, Path: "/out/install.zip", Err: io.EOF}, "[IO] /out/install.zip: EOF"},
		{&PackagerError{Type: ErrManifest, Err: errors.New("no packs")}, "[Manifest] no packs"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestIsType(t *testing.T) {
	base := &PackagerError{Type: ErrInvalidConfig, Err: io.EOF}
	wrapped := fmt.Errorf("loading: %w", base)

	assert.True(t, IsType(wrapped, ErrInvalidConfig))
	assert.False(t, IsType(wrapped, ErrIO))
	assert.False(t, IsType(io.EOF, ErrIO))
	assert.ErrorIs(t, wrapped, io.EOF)
	assert.Equal(t, "Unknown", ErrorType(99).String())
}

func TestPackDefaults(t *testing.T) {
	assert.Equal(t, "Core", (&Pack{Name: "Core"}).EffectiveID())
	assert.Equal(t, "core", (&Pack{ID: "core", Name: "Core"}).EffectiveID())

	file := &FileRecord{}
	assert.True(t, file.Embedded(false))
	assert.False(t, file.Embedded(true))
	assert.False(t, (&FileRecord{Directory: true}).Embedded(false))
	assert.False(t, (&FileRecord{BackRef: &BackRef{PackID: "core"}}).Embedded(false))
	assert.False(t, (&FileRecord{SecondaryCompressed: true}).Embedded(false))

	assert.True(t, CompressionMode("").Standard())
	assert.True(t, CompressionDeflate.Standard())
	assert.False(t, CompressionZstd.Standard())
}
