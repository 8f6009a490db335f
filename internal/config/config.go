// Package config loads, validates and defaults the resolver configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mehmetkoksal-w/extdeps/internal/analysis"
	"github.com/mehmetkoksal-w/extdeps/internal/jsonc"
	"github.com/mehmetkoksal-w/extdeps/internal/model"
	"github.com/mehmetkoksal-w/extdeps/internal/provider"
	"github.com/mehmetkoksal-w/extdeps/internal/resolve"
	"github.com/mehmetkoksal-w/extdeps/schemas"
)

// FileNames are the config files Find looks for, in order.
var FileNames = []string{"extdeps.jsonc", "extdeps.json", "extdeps.yaml", "extdeps.yml"}

// Defaults.
const (
	DefaultRoot      = "."
	DefaultEncoding  = provider.DefaultEncoding
	DefaultNamespace = analysis.DefaultNamespace
)

// ErrNoEntry is returned by Check when nothing is to be resolved.
var ErrNoEntry = errors.New("no entry file configured")

// ExtraDependencies adds requires and uses to named classes.
type ExtraDependencies struct {
	Requires map[string]StringList `json:"requires,omitempty" yaml:"requires,omitempty"`
	Uses     map[string]StringList `json:"uses,omitempty" yaml:"uses,omitempty"`
}

// Resolve holds the name to path rules.
type Resolve struct {
	Path  PathMap           `json:"path,omitempty" yaml:"path,omitempty"`
	Alias map[string]string `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// Options mirrors extdeps.jsonc.
type Options struct {
	Root              string            `json:"root,omitempty" yaml:"root,omitempty"`
	Encoding          string            `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Namespace         string            `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Provided          StringList        `json:"provided,omitempty" yaml:"provided,omitempty"`
	Entry             StringList        `json:"entry,omitempty" yaml:"entry,omitempty"`
	Resolve           Resolve           `json:"resolve,omitempty" yaml:"resolve,omitempty"`
	ExcludeClasses    StringList        `json:"excludeClasses,omitempty" yaml:"excludeClasses,omitempty"`
	SkipParse         StringList        `json:"skipParse,omitempty" yaml:"skipParse,omitempty"`
	ExtraDependencies ExtraDependencies `json:"extraDependencies,omitempty" yaml:"extraDependencies,omitempty"`
	OptimizeSource    bool              `json:"optimizeSource,omitempty" yaml:"optimizeSource,omitempty"`
	Verbose           bool              `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Cache             string            `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// Find returns the first config file in dir, or "" when there is none.
func Find(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// toJSON returns the file's content as plain JSON for schema validation.
func toJSON(path string, data []byte) ([]byte, error) {
	if !isYAML(path) {
		return jsonc.Clean(data), nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return json.Marshal(doc)
}

// Validate checks a config file against the embedded schema.
func Validate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := toJSON(path, data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if err := schemas.Validate(schemas.Config, doc); err != nil {
		return fmt.Errorf("%s invalid: %w", path, err)
	}
	return nil
}

// Load reads, validates and defaults a config file. A relative root is taken
// relative to the file's directory.
func Load(path string) (*Options, error) {
	if err := Validate(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var o Options
	if isYAML(path) {
		err = yaml.Unmarshal(data, &o)
	} else {
		err = jsonc.Decode(data, &o)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if o.Root == "" {
		o.Root = DefaultRoot
	}
	if !isURL(o.Root) && !filepath.IsAbs(o.Root) {
		o.Root = filepath.Join(filepath.Dir(path), o.Root)
	}
	o.ApplyDefaults()
	return &o, nil
}

func isURL(s string) bool {
	return strings.Contains(s, "://")
}

// ApplyDefaults fills every unset field that has a default.
func (o *Options) ApplyDefaults() {
	if o.Root == "" {
		o.Root = DefaultRoot
	}
	if o.Encoding == "" {
		o.Encoding = DefaultEncoding
	}
	if o.Namespace == "" {
		o.Namespace = DefaultNamespace
	}
}

// Check reports settings that cannot work.
func (o *Options) Check() error {
	if len(o.Entry) == 0 {
		return ErrNoEntry
	}
	if !provider.ValidEncoding(o.Encoding) {
		return fmt.Errorf("unsupported encoding %q", o.Encoding)
	}
	return nil
}

// AnalysisOptions returns the analyzer part of the configuration.
func (o *Options) AnalysisOptions() analysis.Options {
	return analysis.Options{
		ExcludeClasses: o.ExcludeClasses,
		SkipParse:      o.SkipParse,
		ExtraRequires:  toMap(o.ExtraDependencies.Requires),
		ExtraUses:      toMap(o.ExtraDependencies.Uses),
		OptimizeSource: o.OptimizeSource,
		Namespace:      o.Namespace,
	}
}

func toMap(in map[string]StringList) map[string][]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ResolveOptions converts the configuration. Provider, cache and sink are
// left for the caller.
func (o *Options) ResolveOptions() resolve.Options {
	return resolve.Options{
		Root:     o.Root,
		Encoding: o.Encoding,
		Provided: o.Provided,
		Entry:    o.Entry,
		Paths:    o.Resolve.Path.MultiMap(),
		Alias:    o.Resolve.Alias,
		Analysis: o.AnalysisOptions(),
		Verbose:  o.Verbose,
	}
}

// Provider returns the file provider for Root: afs for URLs, the local disk otherwise.
func (o *Options) Provider() provider.FileProvider {
	if isURL(o.Root) {
		return provider.NewAFS(nil)
	}
	return provider.NewOS()
}

// PathMap maps class-name prefixes to folders, keeping document order.
type PathMap struct {
	entries *model.MultiMap
}

// Set adds folders to prefix.
func (p *PathMap) Set(prefix string, folders ...string) {
	if p.entries == nil {
		p.entries = model.NewMultiMap()
	}
	p.entries.Add(prefix, folders...)
}

// Override replaces the folders of every prefix in m. Prefixes keep their
// position; new ones are appended.
func (p *PathMap) Override(m *model.MultiMap) {
	merged := model.NewMultiMap()
	for _, prefix := range p.entries.Keys() {
		folders, ok := m.Get(prefix)
		if !ok {
			folders, _ = p.entries.Get(prefix)
		}
		merged.Add(prefix, folders...)
	}
	merged.Merge(m)
	p.entries = merged
}

// Len returns the number of prefixes.
func (p PathMap) Len() int {
	return p.entries.Len()
}

// MultiMap returns a copy of the rules.
func (p PathMap) MultiMap() *model.MultiMap {
	return p.entries.Clone()
}

// IsZero lets encoders omit an empty map.
func (p PathMap) IsZero() bool {
	return p.entries.Len() == 0
}

// MarshalJSON writes the rules in order.
func (p PathMap) MarshalJSON() ([]byte, error) {
	if p.entries == nil {
		return []byte("{}"), nil
	}
	return p.entries.MarshalJSON()
}

// UnmarshalJSON accepts a folder or a list of folders per prefix.
func (p *PathMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	if _, err := dec.Token(); err != nil {
		return err
	}
	p.entries = model.NewMultiMap()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		prefix, _ := tok.(string)
		var folders StringList
		if err := dec.Decode(&folders); err != nil {
			return fmt.Errorf("resolve.path %q: %w", prefix, err)
		}
		p.entries.Add(prefix, folders...)
	}
	_, err := dec.Token()
	return err
}

// UnmarshalYAML accepts a folder or a list of folders per prefix.
func (p *PathMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("resolve.path: expected a mapping, got %s", node.Tag)
	}
	p.entries = model.NewMultiMap()
	for i := 0; i+1 < len(node.Content); i += 2 {
		prefix := node.Content[i].Value
		var folders StringList
		if err := node.Content[i+1].Decode(&folders); err != nil {
			return fmt.Errorf("resolve.path %q: %w", prefix, err)
		}
		p.entries.Add(prefix, folders...)
	}
	return nil
}
