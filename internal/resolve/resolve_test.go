package resolve

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/viant/afs"

	"github.com/mehmetkoksal-w/extdeps/internal/analysis"
	"github.com/mehmetkoksal-w/extdeps/internal/cache"
	"github.com/mehmetkoksal-w/extdeps/internal/logger"
	"github.com/mehmetkoksal-w/extdeps/internal/model"
	"github.com/mehmetkoksal-w/extdeps/internal/provider"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func paths(files []*model.FileDescriptor) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func srcPaths() *model.MultiMap {
	return model.MultiMapOf(map[string][]string{"p": {"src"}})
}

// assertOrdered checks that no file is emitted twice and that every file
// follows the included files it requires.
func assertOrdered(t *testing.T, files []*model.FileDescriptor) {
	t.Helper()
	index := map[string]int{}
	byName := map[string]string{}
	for i, f := range files {
		if _, dup := index[f.Path]; dup {
			t.Fatalf("%s emitted twice", f.Path)
		}
		index[f.Path] = i
		for _, n := range f.Names {
			byName[n] = f.Path
		}
	}
	for i, f := range files {
		for _, req := range f.Requires {
			dep, ok := byName[req]
			if !ok || dep == f.Path {
				continue
			}
			if index[dep] > i {
				t.Errorf("%s emitted before its requirement %s", f.Path, dep)
			}
		}
	}
}

func TestResolveApplication(t *testing.T) {
	root := writeProject(t, map[string]string{
		"ext/Ext.js":               "var Ext = Ext || {};\nExt.define('Ext.app.Application', {});",
		"app.js":                   "Ext.application({ name: 'myapp', controllers: ['Main'] });",
		"app/controller/Main.js":   "Ext.define('myapp.controller.Main', { extend: 'myapp.controller.Base', views: ['Grid'] });",
		"app/controller/Base.js":   "Ext.define('myapp.controller.Base', {});",
		"app/view/Grid.js":         "Ext.define('myapp.view.Grid', { requires: ['myapp.store.Users'] });",
		"app/store/Users.js":       "Ext.define('myapp.store.Users', {});",
		"app/store/NotReferred.js": "Ext.define('myapp.store.NotReferred', {});",
	})
	rec := &logger.Recorder{}
	files, err := Resolve(Options{
		Root:     root,
		Provided: []string{"ext/Ext.js"},
		Entry:    []string{"app.js"},
		Sink:     rec,
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []string{
		"app/controller/Base.js",
		"app/store/Users.js",
		"app/view/Grid.js",
		"app/controller/Main.js",
		"app.js",
	}
	if got := paths(files); !reflect.DeepEqual(got, want) {
		t.Fatalf("Resolve() = %v, want %v", got, want)
	}
	assertOrdered(t, files)
	if rec.WarningCount() != 0 {
		t.Fatalf("unexpected warnings: %v", rec.Warnings)
	}
}

func TestResolveRequiresCycleFails(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/A.js": "Ext.define('p.A', { requires: ['p.B'] });",
		"src/B.js": "Ext.define('p.B', { requires: ['p.A'] });",
	})
	_, err := Resolve(Options{Root: root, Entry: []string{"src/A.js"}, Paths: srcPaths(), Sink: logger.Discard})
	var cycle *CircularDependencyError
	if !errors.As(err, &cycle) {
		t.Fatalf("Resolve() error = %v, want CircularDependencyError", err)
	}
	if !reflect.DeepEqual(cycle.Paths, []string{"src/B.js", "src/A.js"}) {
		t.Fatalf("cycle paths = %v", cycle.Paths)
	}
	if !strings.Contains(err.Error(), "src/A.js") || !strings.Contains(err.Error(), "src/B.js") {
		t.Fatalf("error message %q should name both files", err.Error())
	}
}

func TestResolveUsesCycleIsAllowed(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/A.js": "Ext.define('p.A', { uses: ['p.B'] });",
		"src/B.js": "Ext.define('p.B', { uses: ['p.A'] });",
		"src/C.js": "Ext.define('p.C', { requires: ['p.D'] });",
		"src/D.js": "Ext.define('p.D', { uses: ['p.C'] });",
	})
	files, err := Resolve(Options{Root: root, Entry: []string{"src/A.js", "src/C.js"}, Paths: srcPaths(), Sink: logger.Discard})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []string{"src/B.js", "src/A.js", "src/D.js", "src/C.js"}
	if got := paths(files); !reflect.DeepEqual(got, want) {
		t.Fatalf("Resolve() = %v, want %v", got, want)
	}
	assertOrdered(t, files)
}

func TestResolveWildcard(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/A.js":           "Ext.define('p.A', { requires: ['p.model.*'] });",
		"src/model/X.js":     "Ext.define('p.model.X', {});",
		"src/model/Y.js":     "var y = 1;",
		"src/model/sub/Z.js": "Ext.define('p.model.sub.Z', {});",
	})
	rec := &logger.Recorder{}
	files, err := Resolve(Options{Root: root, Entry: []string{"src/A.js"}, Paths: srcPaths(), Sink: rec})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []string{"src/model/X.js", "src/model/Y.js", "src/A.js"}
	if got := paths(files); !reflect.DeepEqual(got, want) {
		t.Fatalf("Resolve() = %v, want %v", got, want)
	}
	if !files[1].IsPlaceholder() || files[1].Names[0] != "Y.js" {
		t.Fatalf("Y.js descriptor = %+v, want placeholder", files[1])
	}
	if rec.WarningCount() != 1 {
		t.Fatalf("warnings = %v, want one for Y.js", rec.Warnings)
	}
}

func TestResolveAliases(t *testing.T) {
	root := writeProject(t, map[string]string{
		"alias.js":    "Ext.define('p.Base', {});\nExt.ClassManager.addNameAlternateMappings({'p.Real': ['p.Nick']});",
		"src/Main.js": "Ext.define('p.Main', { requires: ['p.Old', 'p.Nick'] });",
		"src/New.js":  "Ext.define('p.New', {});",
		"src/Real.js": "Ext.define('p.Real', {});",
	})
	files, err := Resolve(Options{
		Root:     root,
		Provided: []string{"alias.js"},
		Entry:    []string{"src/Main.js"},
		Paths:    srcPaths(),
		Alias:    map[string]string{"p.Old": "p.New"},
		Sink:     logger.Discard,
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []string{"src/New.js", "src/Real.js", "src/Main.js"}
	if got := paths(files); !reflect.DeepEqual(got, want) {
		t.Fatalf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveProvidedAndUnresolved(t *testing.T) {
	root := writeProject(t, map[string]string{
		"ext/panel/Panel.js": "Ext.define('Ext.panel.Panel', {});",
		"src/Main.js":        "Ext.define('p.Main', { extend: 'Ext.panel.Panel', requires: ['p.Missing', 'other.Thing'] });",
	})
	rec := &logger.Recorder{}
	files, err := Resolve(Options{
		Root:     root,
		Provided: []string{"ext/panel/Panel.js"},
		Entry:    []string{"src/Main.js"},
		Paths:    srcPaths(),
		Sink:     rec,
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := paths(files); !reflect.DeepEqual(got, []string{"src/Main.js"}) {
		t.Fatalf("Resolve() = %v", got)
	}
	joined := strings.Join(rec.Warnings, "\n")
	for _, want := range []string{`Couldn't find class file for "p.Missing"`, `No resolve rule for "other.Thing"`} {
		if !strings.Contains(joined, want) {
			t.Errorf("warnings %q missing %q", joined, want)
		}
	}
}

func TestResolveFileAccessError(t *testing.T) {
	root := t.TempDir()
	_, err := Resolve(Options{Root: root, Entry: []string{"missing.js"}, Sink: logger.Discard})
	var access *FileAccessError
	if !errors.As(err, &access) {
		t.Fatalf("Resolve() error = %v, want FileAccessError", err)
	}
	if access.Path != "missing.js" {
		t.Fatalf("FileAccessError.Path = %q", access.Path)
	}
}

func TestResolveMissingNamespaceIsFatal(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.js": "Ext.define(computedName, { views: ['Grid'] });",
	})
	_, err := Resolve(Options{Root: root, Entry: []string{"main.js"}, Sink: logger.Discard})
	if !errors.Is(err, analysis.ErrMissingNamespace) {
		t.Fatalf("Resolve() error = %v, want ErrMissingNamespace", err)
	}
}

func TestResolveIgnoresFileDirectives(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/A.js":     "//@require other.js\nExt.define('p.A', {});",
		"src/other.js": "var other = true;",
	})
	rec := &logger.Recorder{}
	files, err := Resolve(Options{Root: root, Entry: []string{"src/A.js"}, Paths: srcPaths(), Sink: rec})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := paths(files); !reflect.DeepEqual(got, []string{"src/A.js"}) {
		t.Fatalf("Resolve() = %v", got)
	}
	found := false
	for _, m := range rec.Messages {
		if strings.HasPrefix(m, "Ignoring file dependency") {
			found = true
		}
	}
	if !found {
		t.Fatalf("messages %v should mention the ignored file dependency", rec.Messages)
	}
}

func TestCandidates(t *testing.T) {
	r, err := newResolution(Options{
		Paths: model.MultiMapOf(map[string][]string{
			"Ext":     {"ext/src"},
			"p":       {"src", "./lib"},
			"p.ux":    {"ux"},
			"Ext.Foo": {"vendor/foo.js"},
		}),
		Sink: logger.Discard,
	})
	if err != nil {
		t.Fatalf("newResolution() error = %v", err)
	}
	tests := []struct {
		name string
		want []string
	}{
		{"Ext", []string{"ext/src/Ext.js"}},
		{"Ext.grid.Panel", []string{"ext/src/grid/Panel.js"}},
		{"Ext.Foo", []string{"vendor/foo.js", "ext/src/Foo.js"}},
		{"p.ux.Grid", []string{"ux/Grid.js", "src/ux/Grid.js", "lib/ux/Grid.js"}},
		{"px.Grid", nil},
	}
	for _, tt := range tests {
		got := r.candidates(tt.name)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("candidates(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestResolveFilesAndPlaceholders(t *testing.T) {
	root := writeProject(t, map[string]string{
		"plain.js": "console.log(1);",
	})
	got, err := ResolveFiles(Options{Root: root, Entry: []string{"./plain.js"}, Sink: logger.Discard})
	if err != nil {
		t.Fatalf("ResolveFiles() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"plain.js"}) {
		t.Fatalf("ResolveFiles() = %v", got)
	}
	if _, err := AnalyzeFile("plain.js", Options{Root: root, Sink: logger.Discard}); !errors.Is(err, analysis.ErrSkip) {
		t.Fatalf("AnalyzeFile() error = %v, want ErrSkip", err)
	}
}

func TestResolveMemoryProviderWithCache(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	root := "mem://localhost/resolve-cache"
	for name, content := range map[string]string{
		"src/A.js": "Ext.define('p.A', { requires: ['p.B'] });",
		"src/B.js": "Ext.define('p.B', {});",
	} {
		if err := fs.Upload(ctx, root+"/"+name, 0o644, strings.NewReader(content)); err != nil {
			t.Fatalf("Upload(%s) error = %v", name, err)
		}
	}
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	defer store.Close()

	opts := Options{
		Root:     root,
		Entry:    []string{"src/A.js"},
		Paths:    srcPaths(),
		Provider: provider.NewAFS(fs),
		Cache:    store,
		Sink:     logger.Discard,
	}
	for i := 0; i < 2; i++ {
		got, err := ResolveFiles(opts)
		if err != nil {
			t.Fatalf("ResolveFiles() run %d error = %v", i, err)
		}
		if !reflect.DeepEqual(got, []string{"src/B.js", "src/A.js"}) {
			t.Fatalf("ResolveFiles() run %d = %v", i, got)
		}
	}
	hits, misses := store.Stats()
	if hits != 2 || misses != 2 {
		t.Fatalf("cache stats = %d hits, %d misses; want 2, 2", hits, misses)
	}
}

func TestResolveCachedAnalysisReportsWarnings(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.js": "Ext.define(name, { hasMany: 'p.B' });",
	})
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	defer store.Close()

	var runs [][]string
	for i := 0; i < 2; i++ {
		rec := &logger.Recorder{}
		_, err := Resolve(Options{Root: root, Entry: []string{"main.js"}, Paths: srcPaths(), Cache: store, Sink: rec})
		if err != nil {
			t.Fatalf("Resolve() run %d error = %v", i, err)
		}
		runs = append(runs, rec.Warnings)
	}
	if !reflect.DeepEqual(runs[0], runs[1]) {
		t.Fatalf("warnings differ between runs:\n%q\n%q", runs[0], runs[1])
	}
	var unnamed bool
	for _, w := range runs[1] {
		unnamed = unnamed || strings.Contains(w, "Cannot determine class name")
	}
	if !unnamed {
		t.Fatalf("cached run warnings = %q, want the unnamed class warning", runs[1])
	}
	if hits, _ := store.Stats(); hits != 1 {
		t.Fatalf("cache hits = %d, want 1", hits)
	}
}
