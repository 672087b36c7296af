package syncflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lipsync/internal/historycache"
	"lipsync/internal/models"
	"lipsync/internal/ports"
)

type memStore struct {
	mu      sync.Mutex
	records []models.SyncRecord
	seq     int

	insertErr error
	listErr   error
	fillErr   error
}

func (m *memStore) Insert(ctx context.Context, url string) (models.SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return models.SyncRecord{}, m.insertErr
	}
	m.seq++
	rec := models.SyncRecord{
		ID:             fmt.Sprintf("rec-%d", m.seq),
		SyncedVideoURL: url,
		CreatedAt:      time.Unix(int64(m.seq), 0).UTC(),
	}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memStore) List(ctx context.Context) ([]models.SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]models.SyncRecord{}, m.records...), nil
}

func (m *memStore) FillLatestMissing(ctx context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fillErr != nil {
		return false, m.fillErr
	}
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].SyncedVideoURL == "" {
			m.records[i].SyncedVideoURL = url
			return true, nil
		}
	}
	return false, nil
}

// pausingStore holds its first List call after the snapshot is taken until
// release is closed.
type pausingStore struct {
	*memStore
	once    sync.Once
	listed  chan struct{}
	release chan struct{}
}

func newPausingStore() *pausingStore {
	return &pausingStore{
		memStore: &memStore{},
		listed:   make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (p *pausingStore) List(ctx context.Context) ([]models.SyncRecord, error) {
	records, err := p.memStore.List(ctx)
	p.once.Do(func() {
		close(p.listed)
		<-p.release
	})
	return records, err
}

func (m *memStore) Ping(ctx context.Context) error  { return nil }
func (m *memStore) Close(ctx context.Context) error { return nil }

type staticStores struct {
	store ports.RecordStore
	err   error
}

func (s staticStores) Get(ctx context.Context) (ports.RecordStore, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.store, nil
}

type fakeHost struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (h *fakeHost) Provider() string { return "cloudinary" }

func (h *fakeHost) UploadFromURL(ctx context.Context, src string) (ports.HostedMedia, error) {
	h.mu.Lock()
	h.calls = append(h.calls, src)
	h.mu.Unlock()
	if err := h.fail[src]; err != nil {
		return ports.HostedMedia{}, err
	}
	return ports.HostedMedia{URL: "https://hosted/" + src[len("https://cdn/"):]}, nil
}

type fakeSyncer struct {
	calls   int
	got     ports.LipSyncRequest
	logs    []string
	url     string
	err     error
	ctxErrs []error
}

func (f *fakeSyncer) Provider() string { return "fal" }

func (f *fakeSyncer) LipSync(ctx context.Context, req ports.LipSyncRequest, onLog func(string)) (ports.LipSyncResult, error) {
	f.calls++
	f.got = req
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	for _, l := range f.logs {
		onLog(l)
	}
	if f.err != nil {
		return ports.LipSyncResult{RequestID: "req-1"}, f.err
	}
	return ports.LipSyncResult{RequestID: "req-1", SyncedVideoURL: f.url}, nil
}

type providerErr struct {
	status int
	auth   bool
}

func (e *providerErr) Error() string     { return fmt.Sprintf("provider said %d", e.status) }
func (e *providerErr) Status() int       { return e.status }
func (e *providerErr) AuthFailure() bool { return e.auth }

// countingCache behaves like the Redis cache, generation check included.
// Invalidate reports an error after doing its work.
type countingCache struct {
	mu          sync.Mutex
	records     []models.SyncRecord
	ok          bool
	gen         int64
	getErr      error
	sets        int
	invalidates int
}

func (c *countingCache) Get(ctx context.Context) ([]models.SyncRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records, c.ok, c.getErr
}

func (c *countingCache) Generation(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *countingCache) Set(ctx context.Context, gen int64, r []models.SyncRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return historycache.ErrStale
	}
	c.sets++
	c.records, c.ok = r, true
	return nil
}

func (c *countingCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.invalidates++
	c.records, c.ok = nil, false
	return errors.New("redis down")
}
