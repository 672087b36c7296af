package syncflow

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lipsync/internal/models"
	"lipsync/internal/pkg/errors"
	"lipsync/internal/pkg/logger"
	"lipsync/internal/ports"
)

var validInput = Input{AudioURL: "https://cdn/a.mp3", VideoURL: "https://cdn/v.mp4"}

func newService(store *memStore, host *fakeHost, syncer *fakeSyncer, cache *countingCache) *Service {
	return New(staticStores{store: store}, host, syncer, cache, logger.Discard())
}

func TestRun(t *testing.T) {
	store := &memStore{}
	host := &fakeHost{}
	syncer := &fakeSyncer{url: "https://fal.media/out.mp4", logs: []string{"step 1", "step 2"}}
	cache := &countingCache{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newService(store, host, syncer, cache).Run(ctx, validInput)
	require.NoError(t, err)

	assert.Equal(t, Result{
		AudioURL:       "https://hosted/a.mp3",
		VideoURL:       "https://hosted/v.mp4",
		SyncedVideoURL: "https://fal.media/out.mp4",
	}, res)
	assert.ElementsMatch(t, []string{"https://cdn/a.mp3", "https://cdn/v.mp4"}, host.calls)
	assert.Equal(t, ports.LipSyncRequest{VideoURL: "https://hosted/v.mp4", AudioURL: "https://hosted/a.mp3"}, syncer.got)

	require.Len(t, store.records, 1)
	assert.Equal(t, "https://fal.media/out.mp4", store.records[0].SyncedVideoURL)
	assert.Equal(t, 1, cache.invalidates)

	// The caller's cancellation does not reach the flow.
	assert.Equal(t, []error{nil}, syncer.ctxErrs)
}

func TestRunUploadFailure(t *testing.T) {
	for _, failing := range []string{"https://cdn/a.mp3", "https://cdn/v.mp4"} {
		t.Run(failing, func(t *testing.T) {
			store := &memStore{}
			host := &fakeHost{fail: map[string]error{failing: stderrors.New("Invalid image file")}}
			syncer := &fakeSyncer{url: "https://fal.media/out.mp4"}

			_, err := newService(store, host, syncer, &countingCache{}).Run(context.Background(), validInput)
			require.Error(t, err)

			assert.Equal(t, OpUpload, errors.GetOp(err))
			assert.Equal(t, 0, syncer.calls)
			assert.Len(t, host.calls, 2, "both uploads are awaited")
			assert.Empty(t, store.records)

			var coded *errors.Error
			require.True(t, errors.As(err, &coded))
			assert.Equal(t, "Invalid image file", coded.Cause())
		})
	}
}

func TestRunInferenceFailure(t *testing.T) {
	store := &memStore{}
	syncer := &fakeSyncer{err: &providerErr{status: 403, auth: true}}

	_, err := newService(store, &fakeHost{}, syncer, &countingCache{}).Run(context.Background(), validInput)
	require.Error(t, err)

	assert.Equal(t, OpInference, errors.GetOp(err))
	var pe ports.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.AuthFailure())
	assert.Empty(t, store.records)
}

func TestRunConnectFailure(t *testing.T) {
	host := &fakeHost{}
	svc := New(staticStores{err: stderrors.New("no reachable servers")}, host, &fakeSyncer{}, nil, logger.Discard())

	_, err := svc.Run(context.Background(), validInput)
	require.Error(t, err)
	assert.Equal(t, OpConnect, errors.GetOp(err))
	assert.Empty(t, host.calls)
}

func TestRunPersistFailure(t *testing.T) {
	store := &memStore{insertErr: stderrors.New("disk full")}

	_, err := newService(store, &fakeHost{}, &fakeSyncer{url: "u"}, &countingCache{}).Run(context.Background(), validInput)
	require.Error(t, err)
	assert.Equal(t, OpPersist, errors.GetOp(err))
	assert.Equal(t, errors.CodeInternal, errors.GetCode(err))
}

func TestHistoryUsesCache(t *testing.T) {
	store := &memStore{}
	_, _ = store.Insert(context.Background(), "https://a")
	cache := &countingCache{}
	svc := newService(store, &fakeHost{}, &fakeSyncer{}, cache)

	first, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, cache.sets)

	store.listErr = stderrors.New("must not be called")
	second, err := svc.History(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHistoryDoesNotCacheListingOlderThanASync(t *testing.T) {
	store := newPausingStore()
	cache := &countingCache{}
	svc := New(staticStores{store: store}, &fakeHost{}, &fakeSyncer{url: "https://fal.media/out.mp4"}, cache, logger.Discard())

	done := make(chan []models.SyncRecord)
	go func() {
		records, err := svc.History(context.Background())
		assert.NoError(t, err)
		done <- records
	}()

	// The listing is taken; a sync completes before History returns.
	<-store.listed
	_, err := svc.Run(context.Background(), validInput)
	require.NoError(t, err)
	close(store.release)

	assert.Empty(t, <-done)
	assert.Equal(t, 0, cache.sets)

	got, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://fal.media/out.mp4", got[0].SyncedVideoURL)
}

func TestHistoryEmptyIsNotNil(t *testing.T) {
	got, err := newService(&memStore{}, &fakeHost{}, &fakeSyncer{}, &countingCache{}).History(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHistoryIgnoresCacheErrors(t *testing.T) {
	store := &memStore{}
	_, _ = store.Insert(context.Background(), "https://a")
	cache := &countingCache{getErr: stderrors.New("redis down")}

	got, err := newService(store, &fakeHost{}, &fakeSyncer{}, cache).History(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestHistoryStoreError(t *testing.T) {
	store := &memStore{listErr: stderrors.New("cursor killed")}

	_, err := newService(store, &fakeHost{}, &fakeSyncer{}, &countingCache{}).History(context.Background())
	assert.ErrorContains(t, err, "cursor killed")
}

func TestCompleteLatest(t *testing.T) {
	store := &memStore{}
	ctx := context.Background()
	_, _ = store.Insert(ctx, "")
	_, _ = store.Insert(ctx, "https://done")
	cache := &countingCache{}
	svc := newService(store, &fakeHost{}, &fakeSyncer{}, cache)

	matched, err := svc.CompleteLatest(ctx, "https://x/y.mp4")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, "https://x/y.mp4", store.records[0].SyncedVideoURL)
	assert.Equal(t, "https://done", store.records[1].SyncedVideoURL)
	assert.Equal(t, 1, cache.invalidates)

	matched, err = svc.CompleteLatest(ctx, "https://x/z.mp4")
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Equal(t, 1, cache.invalidates)
}

func TestInputValidate(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"valid", validInput, ""},
		{"missing audio", Input{VideoURL: "https://cdn/v.mp4"}, "audio"},
		{"missing video", Input{AudioURL: "https://cdn/a.mp3"}, "video"},
		{"not a url", Input{AudioURL: "ftp://x", VideoURL: "https://cdn/v.mp4"}, "audio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errors.CodeValidation, errors.GetCode(err))
			assert.Equal(t, tt.field, errors.GetFields(err)["field"])
		})
	}
}
