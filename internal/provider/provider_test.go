package provider

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/viant/afs"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestOSProvider(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/view/B.js", "b")
	writeFile(t, root, "app/view/A.js", "\xEF\xBB\xBFa")
	writeFile(t, root, "app/view/sub/C.js", "c")

	p := NewOS()
	data, err := p.CreateContent(root, "app/view/A.js", "")
	if err != nil {
		t.Fatalf("CreateContent() error = %v", err)
	}
	if got := p.ContentToString(data); got != "a" {
		t.Fatalf("content = %q, want BOM stripped", got)
	}

	kinds := map[string]Kind{"app/view": Dir, "app/view/A.js": File, "app/missing.js": Missing}
	for rel, want := range kinds {
		got, err := p.Stat(root, rel)
		if err != nil {
			t.Fatalf("Stat(%s) error = %v", rel, err)
		}
		if got != want {
			t.Errorf("Stat(%s) = %v, want %v", rel, got, want)
		}
	}

	entries, err := p.List(root, "app/view")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []Entry{{Name: "A.js"}, {Name: "B.js"}, {Name: "sub", Dir: true}}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("List() = %v, want %v", entries, want)
	}

	if _, err := p.CreateContent(root, "app/missing.js", ""); err == nil {
		t.Fatal("CreateContent() expected error for missing file")
	}
}

func TestDecodeLatin1(t *testing.T) {
	out, err := Decode([]byte{'c', 'a', 'f', 0xE9}, "latin1")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if string(out) != "café" {
		t.Fatalf("Decode() = %q, want café", out)
	}
	if _, err := Decode([]byte("x"), "no-such-encoding"); err == nil {
		t.Fatal("Decode() expected error for unknown encoding")
	}
	if !ValidEncoding("UTF-8") || ValidEncoding("no-such-encoding") {
		t.Fatal("ValidEncoding() returned wrong result")
	}
}

func TestAFSProviderMemory(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	root := "mem://localhost/afs-provider"
	for name, content := range map[string]string{
		"app/Main.js":     "Ext.define('app.Main', {});",
		"app/view/One.js": "one",
	} {
		if err := fs.Upload(ctx, root+"/"+name, 0o644, strings.NewReader(content)); err != nil {
			t.Fatalf("Upload(%s) error = %v", name, err)
		}
	}

	p := NewAFS(fs)
	data, err := p.CreateContent(root, "app/Main.js", DefaultEncoding)
	if err != nil {
		t.Fatalf("CreateContent() error = %v", err)
	}
	if got := p.ContentToString(data); got != "Ext.define('app.Main', {});" {
		t.Fatalf("content = %q", got)
	}

	if kind, err := p.Stat(root, "app/Main.js"); err != nil || kind != File {
		t.Fatalf("Stat(file) = %v, %v", kind, err)
	}
	if kind, err := p.Stat(root, "app/Nope.js"); err != nil || kind != Missing {
		t.Fatalf("Stat(missing) = %v, %v", kind, err)
	}

	entries, err := p.List(root, "app")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if !reflect.DeepEqual(names, []string{"Main.js", "view"}) {
		t.Fatalf("List() names = %v", names)
	}
}

type countingProvider struct {
	OS
	reads int
}

func (c *countingProvider) CreateContent(root, path, encoding string) ([]byte, error) {
	c.reads++
	return c.OS.CreateContent(root, path, encoding)
}

func TestCachedProvider(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js", "a")

	inner := &countingProvider{}
	c, err := NewCached(inner, 0)
	if err != nil {
		t.Fatalf("NewCached() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := c.CreateContent(root, "a.js", ""); err != nil {
			t.Fatalf("CreateContent() error = %v", err)
		}
	}
	if inner.reads != 1 {
		t.Fatalf("inner reads = %d, want 1", inner.reads)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	if kind, _ := c.Stat(root, "a.js"); kind != File {
		t.Fatalf("Stat() through cache = %v", kind)
	}
	c.Purge()
	if c.Len() != 0 {
		t.Fatal("Purge() left entries")
	}
}
