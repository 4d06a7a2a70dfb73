// Package blobid defines the content identity used throughout carb: a
// (size, SHA-256) pair and its canonical on-disk string form.
package blobid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// sizeDigits is the width of the zero-padded decimal size prefix in the
// canonical name. 18 digits covers sizes up to ~10^18 bytes.
const sizeDigits = 18

// Suffix is the fixed file extension of a blob file on disk.
const Suffix = ".data"

// ID is the content identity of a blob: its size and SHA-256 digest.
// It is a comparable value type, suitable for use as a map key.
type ID struct {
	Size int64
	Sum  [sha256.Size]byte
}

// FromSum builds an ID from a size and a completed SHA-256 digest.
func FromSum(size int64, sum [sha256.Size]byte) ID {
	return ID{Size: size, Sum: sum}
}

// String returns the canonical "<018-digit-size>_<64-hex-hash>.data" form.
func (id ID) String() string {
	return fmt.Sprintf("%0*d_%x%s", sizeDigits, id.Size, id.Sum[:], Suffix)
}

// Digest returns the lowercase hex SHA-256 digest, without the size prefix
// or file suffix.
func (id ID) Digest() string {
	return hex.EncodeToString(id.Sum[:])
}

// Valid reports whether id differs from the zero value of ID. The ID of
// an empty file (size 0, digest of no bytes) is Valid; only an ID whose
// size and digest are both all zero is not.
func (id ID) Valid() bool {
	return id != ID{}
}

// Parse parses a canonical blob file name (with or without the ".data"
// suffix) back into an ID.
func Parse(name string) (ID, error) {
	name = strings.TrimSuffix(name, Suffix)
	us := strings.IndexByte(name, '_')
	if us < 0 {
		return ID{}, fmt.Errorf("blobid: malformed name %q: no size separator", name)
	}
	sizePart, hexPart := name[:us], name[us+1:]
	size, err := strconv.ParseInt(sizePart, 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("blobid: malformed size in %q: %v", name, err)
	}
	if len(hexPart) != sha256.Size*2 {
		return ID{}, fmt.Errorf("blobid: malformed digest in %q: want %d hex chars, got %d", name, sha256.Size*2, len(hexPart))
	}
	raw, err := hex.DecodeString(hexPart)
	if err != nil {
		return ID{}, fmt.Errorf("blobid: malformed digest in %q: %v", name, err)
	}
	var id ID
	id.Size = size
	copy(id.Sum[:], raw)
	return id, nil
}

// MarshalText implements encoding.TextMarshaler, so an ID can be written
// directly into line-oriented manifest files.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
