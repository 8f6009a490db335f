// Package resolve builds the dependency graph of a project's entry files and
// orders the files so every file comes after the files it requires.
package resolve

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mehmetkoksal-w/extdeps/internal/analysis"
	"github.com/mehmetkoksal-w/extdeps/internal/cache"
	"github.com/mehmetkoksal-w/extdeps/internal/fsutil"
	"github.com/mehmetkoksal-w/extdeps/internal/logger"
	"github.com/mehmetkoksal-w/extdeps/internal/model"
	"github.com/mehmetkoksal-w/extdeps/internal/provider"
)

const wildcardSuffix = ".*"

// AnalysisCache stores analysis results across runs. *cache.Store implements it.
type AnalysisCache interface {
	Lookup(k cache.Key) (*cache.Analysis, error)
	Save(k cache.Key, a cache.Analysis) error
}

// Options configures one resolve.
type Options struct {
	// Root is the directory or URL every path is relative to. Defaults to ".".
	Root string
	// Encoding of the source files. Defaults to utf-8.
	Encoding string
	// Provided files are loaded externally: their names count as resolved,
	// they contribute aliases and paths, and they are never in the result.
	Provided []string
	// Entry files are included with all their transitive dependencies.
	Entry []string
	// Paths maps a class-name prefix to source folders.
	Paths *model.MultiMap
	// Alias maps a class name to the class that should be loaded instead.
	Alias map[string]string
	// Analysis configures the analyzer.
	Analysis analysis.Options
	// Verbose only affects the default sink.
	Verbose bool
	// Provider reads files. Defaults to provider.OS.
	Provider provider.FileProvider
	// Cache is optional.
	Cache AnalysisCache
	// Sink receives diagnostics. Defaults to a console on stderr.
	Sink logger.Sink
}

func (o Options) withDefaults() Options {
	if o.Root == "" {
		o.Root = "."
	}
	if o.Encoding == "" {
		o.Encoding = provider.DefaultEncoding
	}
	if o.Provider == nil {
		o.Provider = provider.NewOS()
	}
	if o.Sink == nil {
		o.Sink = logger.NewConsole(os.Stderr, o.Verbose)
	}
	return o
}

// resolution is the state of one Resolve call.
type resolution struct {
	opts     Options
	analyzer *analysis.Analyzer
	log      logger.Sink
	captured *capture
	options  string

	paths    *model.MultiMap
	aliases  map[string]string
	provided map[string]*model.FileDescriptor
	included map[string]*model.FileDescriptor
	visited  map[string]*model.FileDescriptor
	order    []*model.FileDescriptor
}

func newResolution(opts Options) (*resolution, error) {
	opts = opts.withDefaults()
	captured := &capture{Sink: opts.Sink}
	r := &resolution{
		opts:     opts,
		analyzer: analysis.New(opts.Analysis, captured),
		log:      opts.Sink,
		captured: captured,
		paths:    opts.Paths.Clone(),
		aliases:  make(map[string]string),
		provided: make(map[string]*model.FileDescriptor),
		included: make(map[string]*model.FileDescriptor),
		visited:  make(map[string]*model.FileDescriptor),
	}
	if opts.Cache != nil {
		fp, err := cache.Fingerprint(opts.Analysis)
		if err != nil {
			return nil, fmt.Errorf("fingerprint options: %w", err)
		}
		r.options = fp
	}
	return r, nil
}

// Resolve analyzes the entry files and everything they depend on, and returns
// the descriptors so that each file follows the files it requires.
func Resolve(opts Options) ([]*model.FileDescriptor, error) {
	r, err := newResolution(opts)
	if err != nil {
		return nil, err
	}
	for _, p := range opts.Provided {
		if err := r.markProvided(p); err != nil {
			return nil, err
		}
	}
	for _, p := range opts.Entry {
		if err := r.collect(p); err != nil {
			return nil, err
		}
	}
	return r.sort()
}

// ResolveFiles is Resolve reduced to the ordered paths.
func ResolveFiles(opts Options) ([]string, error) {
	files, err := Resolve(opts)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths, nil
}

// AnalyzeFile reads one file through the configured provider and analyzes it.
// It returns analysis.ErrSkip for a file that defines nothing.
func AnalyzeFile(filePath string, opts Options) (*model.FileDescriptor, error) {
	r, err := newResolution(opts)
	if err != nil {
		return nil, err
	}
	return r.analyze(cleanPath(filePath))
}

func cleanPath(p string) string {
	if strings.Contains(p, "://") {
		return p
	}
	return path.Clean(filepath.ToSlash(p))
}

func (r *resolution) analyze(filePath string) (*model.FileDescriptor, error) {
	content, err := r.opts.Provider.CreateContent(r.opts.Root, filePath, r.opts.Encoding)
	if err != nil {
		return nil, &FileAccessError{Path: filePath, Err: err}
	}

	var key cache.Key
	if r.opts.Cache != nil {
		key = cache.Key{Path: filePath, Hash: fsutil.HashContent(content), Options: r.options}
		a, err := r.opts.Cache.Lookup(key)
		if err != nil {
			r.log.Warn("Cache lookup failed: " + err.Error())
		} else if a != nil {
			for _, w := range a.Warnings {
				r.log.Warn(w)
			}
			if a.Descriptor == nil {
				return nil, analysis.ErrSkip
			}
			return a.Descriptor, nil
		}
	}

	r.captured.warnings = nil
	d, err := r.analyzer.Analyze(r.opts.Provider.ContentToString(content), filePath)
	if err != nil && !errors.Is(err, analysis.ErrSkip) {
		return nil, err
	}
	if r.opts.Cache != nil {
		if serr := r.opts.Cache.Save(key, cache.Analysis{Descriptor: d, Warnings: r.captured.warnings}); serr != nil {
			r.log.Warn("Cache save failed: " + serr.Error())
		}
	}
	return d, err
}

// capture forwards diagnostics and keeps the warnings of the file being
// analyzed, so a cache hit can report them again.
type capture struct {
	logger.Sink
	warnings []string
}

func (c *capture) Warn(msg string) {
	c.warnings = append(c.warnings, msg)
	c.Sink.Warn(msg)
}

func (r *resolution) markProvided(filePath string) error {
	filePath = cleanPath(filePath)
	d, err := r.analyze(filePath)
	if errors.Is(err, analysis.ErrSkip) {
		r.log.Warn("File is no class source: " + filePath)
		return nil
	}
	if err != nil {
		return err
	}
	r.addHints(d)
	for _, name := range d.Names {
		r.provided[name] = d
	}
	return nil
}

func (r *resolution) addHints(d *model.FileDescriptor) {
	for _, canonical := range d.AliasNames.Keys() {
		alternates, _ := d.AliasNames.Get(canonical)
		for _, alt := range alternates {
			r.aliases[alt] = canonical
		}
	}
	r.paths.Merge(d.ResolvePaths)
}

// collect analyzes filePath once and collects its dependencies before
// appending it, so the accumulated order is roughly dependency-first.
func (r *resolution) collect(filePath string) error {
	filePath = cleanPath(filePath)
	if _, ok := r.visited[filePath]; ok {
		return nil
	}

	d, err := r.analyze(filePath)
	if errors.Is(err, analysis.ErrSkip) {
		r.log.Warn("File is no class source: " + filePath)
		d = model.Placeholder(filePath)
		r.visited[filePath] = d
		r.order = append(r.order, d)
		return nil
	}
	if err != nil {
		return err
	}

	r.visited[filePath] = d
	for _, name := range d.Names {
		r.included[name] = d
	}
	r.addHints(d)

	for _, name := range d.Dependencies() {
		if err := r.resolveName(name, filePath); err != nil {
			return err
		}
	}
	r.order = append(r.order, d)
	return nil
}

func (r *resolution) known(name string) bool {
	_, provided := r.provided[name]
	_, included := r.included[name]
	return provided || included
}

func (r *resolution) canonical(name string) string {
	if target, ok := r.opts.Alias[name]; ok && target != "" {
		return target
	}
	if target, ok := r.aliases[name]; ok {
		return target
	}
	return name
}

func (r *resolution) resolveName(name, from string) error {
	if r.known(name) {
		return nil
	}
	if fsutil.IsFilePath(name) {
		r.log.Write("Ignoring file dependency " + name + " (found in " + from + ")")
		return nil
	}
	if strings.HasSuffix(name, wildcardSuffix) {
		return r.resolveWildcard(strings.TrimSuffix(name, wildcardSuffix), from)
	}

	r.log.Write("Resolve " + name + "... ")
	target := r.canonical(name)
	if target != name && r.known(target) {
		r.log.Ok("Done: alias of " + target)
		return nil
	}

	candidates := r.candidates(target)
	if len(candidates) == 0 {
		r.log.Warn(fmt.Sprintf("No resolve rule for %q (found in %s)", target, from))
		return nil
	}
	for _, c := range candidates {
		kind, err := r.opts.Provider.Stat(r.opts.Root, c)
		if err != nil {
			return &FileAccessError{Path: c, Err: err}
		}
		if kind == provider.File {
			r.log.Ok("Done: " + c)
			return r.collect(c)
		}
	}
	r.log.Warn(fmt.Sprintf("Couldn't find class file for %q (found in %s) - Maybe you should define an alias", target, from))
	return nil
}

type candidate struct {
	path      string
	exact     bool
	prefixLen int
}

// candidates lists the files name may live in: whole-name matches first, then
// longer prefixes, then folder order.
func (r *resolution) candidates(name string) []string {
	var found []candidate
	for _, prefix := range r.paths.Keys() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := name[len(prefix):]
		folders, _ := r.paths.Get(prefix)
		for _, folder := range folders {
			c := candidate{prefixLen: len(prefix)}
			switch {
			case rest == "" && fsutil.IsScript(folder):
				c.path, c.exact = folder, true
			case rest == "" && !strings.Contains(prefix, "."):
				c.path, c.exact = fsutil.JoinSlash(folder, prefix+fsutil.ScriptExt), true
			case rest != "" && rest[0] == '.' && !fsutil.IsScript(folder):
				c.path = fsutil.JoinSlash(folder, strings.ReplaceAll(rest[1:], ".", "/")+fsutil.ScriptExt)
			default:
				continue
			}
			found = append(found, c)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].exact != found[j].exact {
			return found[i].exact
		}
		return found[i].prefixLen > found[j].prefixLen
	})
	out := make([]string, 0, len(found))
	seen := model.NewSet()
	for _, c := range found {
		p := cleanPath(c.path)
		if seen.Add(p) {
			out = append(out, p)
		}
	}
	return out
}

// resolveWildcard collects every file directly inside the folders mapped to ns.
func (r *resolution) resolveWildcard(ns, from string) error {
	r.log.Write("Resolve " + ns + wildcardSuffix + "... ")
	var targets []string
	for _, prefix := range r.paths.Keys() {
		var rest string
		switch {
		case ns == prefix:
		case strings.HasPrefix(ns, prefix+"."):
			rest = strings.ReplaceAll(ns[len(prefix)+1:], ".", "/")
		default:
			continue
		}
		folders, _ := r.paths.Get(prefix)
		for _, folder := range folders {
			if rest == "" {
				targets = append(targets, folder)
			} else if !fsutil.IsScript(folder) {
				targets = append(targets, fsutil.JoinSlash(folder, rest))
			}
		}
	}

	collected := 0
	for _, target := range targets {
		target = cleanPath(target)
		kind, err := r.opts.Provider.Stat(r.opts.Root, target)
		if err != nil {
			return &FileAccessError{Path: target, Err: err}
		}
		switch kind {
		case provider.File:
			collected++
			if err := r.collect(target); err != nil {
				return err
			}
		case provider.Dir:
			entries, err := r.opts.Provider.List(r.opts.Root, target)
			if err != nil {
				return &FileAccessError{Path: target, Err: err}
			}
			for _, e := range entries {
				if e.Dir {
					continue
				}
				collected++
				if err := r.collect(fsutil.JoinSlash(target, e.Name)); err != nil {
					return err
				}
			}
		}
	}
	if collected == 0 {
		r.log.Warn(fmt.Sprintf("No files found for %q (found in %s)", ns+wildcardSuffix, from))
		return nil
	}
	r.log.Ok(fmt.Sprintf("Done: %d files", collected))
	return nil
}

// includedFile returns the included descriptor a required name maps to, or
// nil when the name is provided or unknown.
func (r *resolution) includedFile(name string) *model.FileDescriptor {
	for _, n := range []string{name, r.canonical(name)} {
		if _, ok := r.provided[n]; ok {
			return nil
		}
		if d, ok := r.included[n]; ok {
			return d
		}
	}
	return nil
}

type pending struct {
	file     *model.FileDescriptor
	blocking []string
}

// sort repeatedly emits every file whose required files were all emitted.
// Uses edges never block.
func (r *resolution) sort() ([]*model.FileDescriptor, error) {
	items := make([]*pending, 0, len(r.order))
	unresolved := make(map[string]bool, len(r.order))
	for _, d := range r.order {
		item := &pending{file: d}
		seen := model.NewSet()
		for _, name := range d.Requires {
			if strings.HasSuffix(name, wildcardSuffix) || fsutil.IsFilePath(name) {
				continue
			}
			dep := r.includedFile(name)
			if dep == nil || dep.Path == d.Path {
				continue
			}
			if seen.Add(dep.Path) {
				item.blocking = append(item.blocking, dep.Path)
			}
		}
		items = append(items, item)
		unresolved[d.Path] = true
	}

	ordered := make([]*model.FileDescriptor, 0, len(items))
	for len(items) > 0 {
		r.log.Write(fmt.Sprintf("Resolving loop - %d files left", len(items)))
		progress := false
		remaining := items[:0]
		for _, item := range items {
			blocking := item.blocking[:0]
			for _, p := range item.blocking {
				if unresolved[p] {
					blocking = append(blocking, p)
				}
			}
			item.blocking = blocking
			if len(item.blocking) == 0 {
				ordered = append(ordered, item.file)
				unresolved[item.file.Path] = false
				progress = true
				continue
			}
			remaining = append(remaining, item)
		}
		items = remaining
		if !progress {
			paths := make([]string, len(items))
			for i, item := range items {
				paths[i] = item.file.Path
			}
			return nil, &CircularDependencyError{Paths: paths}
		}
	}
	return ordered, nil
}
