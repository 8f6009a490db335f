package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mehmetkoksal-w/extdeps/internal/fsutil"
)

// ErrMissingNamespace is returned when a short name must be qualified but the
// owning class has no namespace to qualify it with.
var ErrMissingNamespace = errors.New("cannot extrapolate class name without namespace")

// NameValidator cleans candidate class names and drops excluded ones.
type NameValidator struct {
	Exclude []string
}

// Valid trims and unquotes raw and returns the name, or false when the
// result is empty or matches an exclusion glob.
func (v NameValidator) Valid(raw string) (string, bool) {
	name := cleanName(raw)
	if name == "" {
		return "", false
	}
	if len(v.Exclude) > 0 && fsutil.MatchesName(name, v.Exclude) {
		return "", false
	}
	return name, true
}

// Filter returns the valid names among raw, in order.
func (v NameValidator) Filter(raw ...string) []string {
	var out []string
	for _, r := range raw {
		if name, ok := v.Valid(r); ok {
			out = append(out, name)
		}
	}
	return out
}

func cleanName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.NewReplacer(`'`, "", `"`, "").Replace(name)
	return strings.TrimSpace(name)
}

// Namespace returns the part of a class name before its first dot.
func Namespace(className string) string {
	if i := strings.IndexByte(className, '.'); i >= 0 {
		return className[:i]
	}
	return className
}

// Extrapolate qualifies short names relative to the namespace of owner:
// "Foo" with package "controller" in "myapp.controller.Main" becomes
// "myapp.controller.Foo". Names that already start with the namespace are kept.
func (v NameValidator) Extrapolate(basePackage string, shortNames []string, owner string) ([]string, error) {
	ns := Namespace(owner)
	if ns == "" {
		return nil, ErrMissingNamespace
	}
	var out []string
	for _, n := range shortNames {
		name := cleanName(n)
		if name == "" {
			continue
		}
		if !strings.HasPrefix(name, ns) {
			name = fmt.Sprintf("%s.%s.%s", ns, basePackage, name)
		}
		if valid, ok := v.Valid(name); ok {
			out = append(out, valid)
		}
	}
	return out, nil
}
