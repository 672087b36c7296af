package gdrive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"lipsync/internal/adapters/mediahost/remote"
)

func TestUploadFromURL(t *testing.T) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3 fake audio payload"))
	}))
	defer src.Close()

	var (
		mu    sync.Mutex
		paths []string
	)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/permissions") {
			_, _ = w.Write([]byte(`{"id":"perm-1","type":"anyone","role":"reader"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"file-123"}`))
	}))
	defer api.Close()

	srv, err := drive.NewService(context.Background(),
		option.WithHTTPClient(api.Client()),
		option.WithEndpoint(api.URL+"/"),
	)
	require.NoError(t, err)

	h := NewWithService(srv, "folder-1", remote.NewFetcher(src.Client(), t.TempDir()))
	got, err := h.UploadFromURL(context.Background(), src.URL+"/voice.mp3")
	require.NoError(t, err)

	assert.Equal(t, DownloadURL("file-123"), got.URL)
	assert.Equal(t, "audio", got.ResourceType)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 2)
	assert.True(t, strings.HasSuffix(paths[1], "/files/file-123/permissions"), paths[1])
}

func TestDownloadURL(t *testing.T) {
	assert.Equal(t, "https://drive.google.com/uc?export=download&id=abc", DownloadURL("abc"))
}
