// Package localfs keeps re-uploaded files on the local disk. The HTTP API
// serves them under /media/, so PublicBaseURL must reach this server.
package localfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"lipsync/internal/adapters/mediahost/remote"
	"lipsync/internal/ports"
)

// MediaPrefix is the URL path the files are served under.
const MediaPrefix = "/media/"

type LocalFS struct {
	root          string
	publicBaseURL string
	fetcher       *remote.Fetcher
}

func New(root, publicBaseURL string, fetcher *remote.Fetcher) *LocalFS {
	return &LocalFS{
		root:          root,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		fetcher:       fetcher,
	}
}

func (l *LocalFS) Provider() string { return "localfs" }

func (l *LocalFS) UploadFromURL(ctx context.Context, sourceURL string) (ports.HostedMedia, error) {
	f, err := l.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return ports.HostedMedia{}, err
	}
	defer f.Close()

	key := path.Join(f.ResourceType(), uuid.NewString()+f.Extension)
	dst := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ports.HostedMedia{}, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return ports.HostedMedia{}, err
	}
	n, err := io.Copy(out, f)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return ports.HostedMedia{}, fmt.Errorf("write %s: %w", key, err)
	}

	return ports.HostedMedia{
		URL:          l.publicBaseURL + MediaPrefix + key,
		ResourceType: f.ResourceType(),
		Bytes:        n,
	}, nil
}

// Handler serves stored files. Mount it under MediaPrefix.
func (l *LocalFS) Handler() http.Handler {
	return http.StripPrefix(strings.TrimSuffix(MediaPrefix, "/"), http.FileServer(noDirFS{http.Dir(l.root)}))
}

// noDirFS hides directory listings.
type noDirFS struct{ fs http.FileSystem }

func (n noDirFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
