package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// OS reads files from the local disk.
type OS struct{}

// NewOS returns the default provider.
func NewOS() *OS { return &OS{} }

func osPath(root, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) || root == "" {
		return p
	}
	return filepath.Join(filepath.FromSlash(root), p)
}

// CreateContent reads and decodes a file.
func (OS) CreateContent(root, path, encoding string) ([]byte, error) {
	full := osPath(root, path)
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", full, err)
	}
	return Decode(data, encoding)
}

// ContentToString returns content as text.
func (OS) ContentToString(content []byte) string {
	return string(content)
}

// Stat classifies a path.
func (OS) Stat(root, path string) (Kind, error) {
	info, err := os.Stat(osPath(root, path))
	if err != nil {
		if os.IsNotExist(err) {
			return Missing, nil
		}
		return Missing, err
	}
	if info.IsDir() {
		return Dir, nil
	}
	return File, nil
}

// List returns the entries of a directory.
func (OS) List(root, dir string) ([]Entry, error) {
	full := osPath(root, dir)
	items, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", full, err)
	}
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, Entry{Name: it.Name(), Dir: it.IsDir()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
