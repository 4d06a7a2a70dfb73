// Package mimetype sniffs a MIME type for a freshly-installed blob. It is
// adapted from the internal/magic package: sniff a bounded
// header against a small magic-number table first, then fall back to
// standard-library content sniffing and extension-based lookup. Unlike
// internal/magic, which embeds a large hand-maintained signature table,
// this package keeps only the handful of container formats a backup tool
// commonly needs to disambiguate from net/http's generic detector, since
// carrying the full table forward would add size without adding any
// behavior this package actually exercises.
package mimetype

import (
	"bytes"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

type sniffEntry struct {
	offset int
	prefix []byte
	mtype  string
}

var magicTable = []sniffEntry{
	{0, []byte("PK\x03\x04"), "application/zip"},
	{0, []byte("\x1f\x8b"), "application/gzip"},
	{0, []byte("BZh"), "application/x-bzip2"},
	{0, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}, "application/x-xz"},
	{0, []byte("ustar\x00"), "application/x-tar"},
	{257, []byte("ustar\x00"), "application/x-tar"},
	{0, []byte("%PDF-"), "application/pdf"},
	{0, []byte("SQLite format 3\x00"), "application/vnd.sqlite3"},
}

// Sniff returns the best-effort MIME type for a blob given a bounded
// header of its content and, for extension-only formats, its original
// file name. It returns "" when no type could be determined, mirroring
// the MIMEType contract in pkg/blob.
func Sniff(header []byte, filename string) string {
	for _, e := range magicTable {
		end := e.offset + len(e.prefix)
		if len(header) >= end && bytes.Equal(header[e.offset:end], e.prefix) {
			return e.mtype
		}
	}
	if len(header) > 0 {
		if t := http.DetectContentType(header); t != "application/octet-stream" {
			return stripParams(t)
		}
	}
	if filename != "" {
		if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
			return stripParams(t)
		}
	}
	return ""
}

func stripParams(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// HeaderSize is the number of bytes Sniff needs to make its determination:
// enough for net/http.DetectContentType and for the POSIX tar magic at
// offset 257, the largest offset magicTable uses.
const HeaderSize = 512
