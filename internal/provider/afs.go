package provider

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

// AFS reads files through an afs.Service, so the root may be any URL the
// service supports (file://, mem://, gs://, s3:// ...).
type AFS struct {
	fs afs.Service
}

// NewAFS returns a provider backed by fs, or by afs.New() when fs is nil.
func NewAFS(fs afs.Service) *AFS {
	if fs == nil {
		fs = afs.New()
	}
	return &AFS{fs: fs}
}

func (a *AFS) url(root, p string) string {
	if root == "" || strings.Contains(p, "://") {
		return p
	}
	return url.Join(root, p)
}

// CreateContent downloads and decodes a file.
func (a *AFS) CreateContent(root, p, encoding string) ([]byte, error) {
	u := a.url(root, p)
	data, err := a.fs.DownloadWithURL(context.Background(), u)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	return Decode(data, encoding)
}

// ContentToString returns content as text.
func (a *AFS) ContentToString(content []byte) string {
	return string(content)
}

// Stat classifies a path.
func (a *AFS) Stat(root, p string) (Kind, error) {
	ctx := context.Background()
	u := a.url(root, p)
	ok, err := a.fs.Exists(ctx, u)
	if err != nil {
		return Missing, fmt.Errorf("stat %s: %w", u, err)
	}
	if !ok {
		return Missing, nil
	}
	obj, err := a.fs.Object(ctx, u)
	if err != nil {
		return Missing, fmt.Errorf("stat %s: %w", u, err)
	}
	if obj.IsDir() {
		return Dir, nil
	}
	return File, nil
}

// List returns the entries of a directory. afs lists the directory itself
// first; it is left out.
func (a *AFS) List(root, dir string) ([]Entry, error) {
	u := a.url(root, dir)
	objects, err := a.fs.List(context.Background(), u)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", u, err)
	}
	self := path.Base(strings.TrimRight(u, "/"))
	entries := make([]Entry, 0, len(objects))
	for i, obj := range objects {
		if i == 0 && obj.IsDir() && obj.Name() == self {
			continue
		}
		entries = append(entries, Entry{Name: obj.Name(), Dir: obj.IsDir()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
