// Package model holds the data shared by the analyzer and the resolver.
package model

import "path/filepath"

// FileDescriptor is the analysis result for one source file.
type FileDescriptor struct {
	// Path identifies the file, usually relative to the project root.
	Path string `json:"path"`
	// Names lists the class names the file defines, first occurrence kept.
	Names []string `json:"names"`
	// ParentName is the class the primary defined class extends. It is also in Requires.
	ParentName string `json:"parentName,omitempty"`
	// Requires gate load order.
	Requires []string `json:"requires"`
	// Uses must be included in the build but do not gate load order.
	Uses []string `json:"uses"`
	// AliasNames maps a canonical class name to alternate names it may be referenced by.
	AliasNames *MultiMap `json:"aliasNames,omitempty"`
	// ResolvePaths maps a class-name prefix to source folders detected in the file.
	ResolvePaths *MultiMap `json:"resolvePaths,omitempty"`
	// Src is the original text, or the rewritten text when rewriting is enabled.
	Src string `json:"-"`

	placeholder bool
}

// Placeholder returns the descriptor used for files that define nothing:
// the basename as the only name and no dependencies.
func Placeholder(path string) *FileDescriptor {
	return &FileDescriptor{
		Path:        path,
		Names:       []string{filepath.Base(path)},
		Requires:    []string{},
		Uses:        []string{},
		placeholder: true,
	}
}

// IsPlaceholder reports whether d was synthesized by Placeholder.
func (d *FileDescriptor) IsPlaceholder() bool {
	return d != nil && d.placeholder
}

// Dependencies returns Requires followed by Uses.
func (d *FileDescriptor) Dependencies() []string {
	out := make([]string, 0, len(d.Requires)+len(d.Uses))
	out = append(out, d.Requires...)
	return append(out, d.Uses...)
}
