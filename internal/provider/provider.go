// Package provider supplies file contents and directory listings to the resolver.
package provider

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Kind classifies a path.
type Kind int

const (
	Missing Kind = iota
	File
	Dir
)

// Entry is one item of a directory listing.
type Entry struct {
	Name string
	Dir  bool
}

// FileProvider reads source files relative to a project root.
type FileProvider interface {
	// CreateContent reads path below root and decodes it from encoding to UTF-8.
	CreateContent(root, path, encoding string) ([]byte, error)
	// ContentToString converts content returned by CreateContent to text.
	ContentToString(content []byte) string
	// Stat reports whether path below root is a file, a directory or missing.
	Stat(root, path string) (Kind, error)
	// List returns the immediate entries of dir below root, sorted by name.
	List(root, dir string) ([]Entry, error)
}

// DefaultEncoding is used when no encoding is configured.
const DefaultEncoding = "utf-8"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts data from the named encoding to UTF-8. Names follow the
// WHATWG encoding labels ("utf-8", "latin1", "windows-1252", "shift_jis", ...).
func Decode(data []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf8", "utf-8":
		return bytes.TrimPrefix(data, utf8BOM), nil
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", encoding, err)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", encoding, err)
	}
	return out, nil
}

// ValidEncoding reports whether encoding is known.
func ValidEncoding(encoding string) bool {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf8", "utf-8":
		return true
	}
	_, err := htmlindex.Get(encoding)
	return err == nil
}
