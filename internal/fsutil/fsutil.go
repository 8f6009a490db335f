package fsutil

import (
	"crypto/sha256"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ScriptExt is the suffix of source files the resolver maps class names to.
const ScriptExt = ".js"

// MatchesName returns true if name matches any glob. Class names contain no
// separators, so `*` spans dotted segments ("Ext.*" matches "Ext.grid.Panel").
func MatchesName(name string, globs []string) bool {
	for _, g := range globs {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		ok, err := doublestar.Match(g, name)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// MatchesPath returns true if the path matches any glob. A glob without a
// slash is also tried against the basename, so "SkipMe.js" matches "app/ux/SkipMe.js".
func MatchesPath(p string, globs []string) bool {
	normalized := filepath.ToSlash(p)
	base := path.Base(normalized)
	for _, g := range globs {
		g = NormalizeGlob(g)
		if g == "" {
			continue
		}
		if ok, err := doublestar.Match(g, normalized); err == nil && ok {
			return true
		}
		if !strings.Contains(g, "/") {
			if ok, err := doublestar.Match(g, base); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// NormalizeGlob trims a glob and converts it to forward slashes.
func NormalizeGlob(g string) string {
	trimmed := strings.TrimSpace(g)
	if trimmed == "" {
		return ""
	}
	trimmed = strings.ReplaceAll(trimmed, "\\", "/")
	for strings.Contains(trimmed, "//") {
		trimmed = strings.ReplaceAll(trimmed, "//", "/")
	}
	return trimmed
}

// IsScript reports whether p has the script suffix.
func IsScript(p string) bool {
	return strings.HasSuffix(p, ScriptExt)
}

// IsFilePath reports whether name looks like a raw filesystem path rather than a class name.
func IsFilePath(name string) bool {
	return strings.HasPrefix(name, "/") || filepath.IsAbs(name)
}

// JoinSlash joins folder and rel with a forward slash, leaving an empty folder out.
func JoinSlash(folder, rel string) string {
	folder = strings.TrimRight(filepath.ToSlash(folder), "/")
	if folder == "" || folder == "." {
		return rel
	}
	return folder + "/" + rel
}

// HashContent returns the hex sha256 of data.
func HashContent(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
