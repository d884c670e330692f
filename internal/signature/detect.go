// Package signature detects payloads that carry an embedded signature, which any
// rewrite of the payload would invalidate.
package signature

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/klauspost/compress/zip"
)

// maxArmorScan bounds how much of a candidate entry is read looking for armor
const maxArmorScan = 64 * 1024

// jarSignatureSuffixes are the signature file and block names under META-INF
var jarSignatureSuffixes = []string{".SF", ".RSA", ".DSA", ".EC"}

// IsSignedArchive reports whether the zip-family archive at p holds a signature marker
func IsSignedArchive(p string) (bool, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return false, err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if IsJarSignature(f.Name) {
			return true, nil
		}

		if !isDetachedSignatureName(f.Name) {
			continue
		}

		signed, err := entryIsArmoredSignature(f)
		if err != nil {
			return false, fmt.Errorf("failed to inspect %s: %w", f.Name, err)
		}
		if signed {
			return true, nil
		}
	}

	return false, nil
}

// IsJarSignature reports whether name is a jar signature file or block
func IsJarSignature(name string) bool {
	upper := strings.ToUpper(name)
	if !strings.HasPrefix(upper, "META-INF/") {
		return false
	}
	for _, suffix := range jarSignatureSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

// IsArmoredSignature reports whether r starts with an ASCII-armored OpenPGP signature
func IsArmoredSignature(r io.Reader) bool {
	block, err := armor.Decode(io.LimitReader(r, maxArmorScan))
	if err != nil {
		return false
	}
	return block.Type == openpgp.SignatureType
}

func isDetachedSignatureName(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".asc", ".sig":
		return true
	}
	return false
}

func entryIsArmoredSignature(f *zip.File) (bool, error) {
	rc, err := f.Open()
	if err != nil {
		return false, err
	}
	defer rc.Close()

	return IsArmoredSignature(rc), nil
}
