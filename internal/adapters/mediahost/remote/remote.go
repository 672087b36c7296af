// Package remote downloads a source file into a local spool so media hosts
// that need a seekable body can re-upload it.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultContentType is used when sniffing finds nothing better.
const DefaultContentType = "application/octet-stream"

// File is a downloaded copy of a remote file. Close removes the spool.
type File struct {
	*os.File
	ContentType string
	Extension   string
	Size        int64
}

// ResourceType maps the content type to audio, video, image or raw.
func (f *File) ResourceType() string {
	return ResourceType(f.ContentType)
}

func (f *File) Close() error {
	name := f.File.Name()
	err := f.File.Close()
	if rmErr := os.Remove(name); rmErr != nil && err == nil && !os.IsNotExist(rmErr) {
		err = rmErr
	}
	return err
}

type Fetcher struct {
	client *http.Client
	dir    string
}

// NewFetcher returns a Fetcher spooling into dir (os.TempDir when empty).
func NewFetcher(client *http.Client, dir string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, dir: dir}
}

// Fetch downloads sourceURL and sniffs its content type from the bytes.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL string) (*File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid source url: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", sourceURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(f.dir, "lipsync-*")
	if err != nil {
		return nil, fmt.Errorf("create spool: %w", err)
	}
	out := &File{File: tmp}

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("fetch %s: %w", sourceURL, err)
	}
	out.Size = n

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = out.Close()
		return nil, err
	}
	mt, err := mimetype.DetectReader(tmp)
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = out.Close()
		return nil, err
	}

	out.ContentType, out.Extension = mt.String(), mt.Extension()
	if out.ContentType == DefaultContentType || strings.HasPrefix(out.ContentType, "text/plain") {
		// Sniffing failed; trust the server's header and the URL's extension.
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			out.ContentType = ct
		}
		if ext := path.Ext(req.URL.Path); ext != "" {
			out.Extension = ext
		}
	}
	return out, nil
}

// ResourceType maps a content type to audio, video, image or raw.
func ResourceType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	default:
		return "raw"
	}
}
