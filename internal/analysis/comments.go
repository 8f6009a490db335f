package analysis

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mehmetkoksal-w/extdeps/internal/fsutil"
)

var (
	defineDirectiveRx    = regexp.MustCompile(`@define\s+([\w.]+)`)
	alternateDirectiveRx = regexp.MustCompile(`@alternateClassName\s+([\w.]+)`)
	requireDirectiveRx   = regexp.MustCompile(`@require\s+([\w./\-]+)`)

	alternateClassNameRx = regexp.MustCompile(`alternateClassName:\s*\[?\s*((['"]([\w.*]+)['"]\s*,?\s*)+)\s*\]?,?`)
)

// scanComment applies the comment directives to one comment node's text.
func (x *extraction) scanComment(text string) {
	switch {
	case strings.HasPrefix(text, "//"):
		if m := requireDirectiveRx.FindStringSubmatch(text); m != nil {
			token := strings.TrimSpace(m[1])
			if fsutil.IsScript(token) {
				x.requires = append(x.requires, x.resolveFileDirective(token))
			} else {
				x.requires = append(x.requires, x.names.Filter(token)...)
			}
		}
		for _, m := range defineDirectiveRx.FindAllStringSubmatch(text, -1) {
			x.defined = append(x.defined, x.names.Filter(m[1])...)
		}
	case strings.HasPrefix(text, "/*"):
		for _, m := range alternateDirectiveRx.FindAllStringSubmatch(text, -1) {
			x.defined = append(x.defined, x.names.Filter(m[1])...)
		}
	}
}

// resolveFileDirective turns an `@require path/to/file.js` token into an
// absolute path relative to the directory of the file being analyzed.
func (x *extraction) resolveFileDirective(token string) string {
	p := filepath.Join(filepath.Dir(filepath.FromSlash(x.path)), filepath.FromSlash(token))
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// alternateClassNames scans the source span of a define call for an
// alternateClassName property and returns the quoted names it holds.
func alternateClassNames(span string) []string {
	m := alternateClassNameRx.FindStringSubmatch(span)
	if m == nil || m[1] == "" {
		return nil
	}
	return strings.Split(m[1], ",")
}
