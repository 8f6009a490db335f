// Package flags provides common flag types and validators for the CLI.
package flags

import (
	"fmt"
	"strings"
)

// BoolFlag is a boolean flag that tracks whether it was explicitly set.
// This differentiates an unset flag from a flag explicitly set to false.
type BoolFlag struct {
	Value  bool
	WasSet bool
}

// Set parses and sets the boolean value.
func (b *BoolFlag) Set(s string) error {
	if s == "" {
		b.Value = true
		b.WasSet = true
		return nil
	}
	switch strings.ToLower(s) {
	case "true", "1":
		b.Value = true
	case "false", "0":
		b.Value = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	b.WasSet = true
	return nil
}

// String returns the string representation of the boolean value.
func (b *BoolFlag) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// IsBoolFlag returns true, indicating this is a boolean flag that doesn't require a value.
func (b *BoolFlag) IsBoolFlag() bool { return true }

// ListFlag collects repeated values. Each value may also hold a comma-separated list.
type ListFlag []string

// Set appends the non-empty items of s.
func (l *ListFlag) Set(s string) error {
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*l = append(*l, item)
		}
	}
	return nil
}

func (l *ListFlag) String() string {
	return strings.Join(*l, ",")
}

// Pair is one key=value argument.
type Pair struct {
	Key   string
	Value string
}

// PairFlag collects repeated key=value arguments in order.
type PairFlag []Pair

// Set parses key=value.
func (p *PairFlag) Set(s string) error {
	key, value, err := ParsePair(s)
	if err != nil {
		return err
	}
	*p = append(*p, Pair{Key: key, Value: value})
	return nil
}

func (p *PairFlag) String() string {
	parts := make([]string, len(*p))
	for i, kv := range *p {
		parts[i] = kv.Key + "=" + kv.Value
	}
	return strings.Join(parts, ",")
}
