package flags

import (
	"fmt"
	"regexp"
	"strings"
)

var namespacePattern = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)

// ParsePair splits key=value. Both sides must be non-empty.
func ParsePair(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if !ok || key == "" || value == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", s)
	}
	return key, value, nil
}

// ValidateNamespace validates a framework namespace identifier.
func ValidateNamespace(v string) error {
	if !namespacePattern.MatchString(v) {
		return fmt.Errorf("namespace must be a plain identifier, got %q", v)
	}
	return nil
}
