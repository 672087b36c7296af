// Package syncflow runs the upload-and-sync flow: re-host the audio and
// video, run lip-sync on the hosted copies, record the result.
package syncflow

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"lipsync/internal/historycache"
	"lipsync/internal/models"
	"lipsync/internal/pkg/errors"
	"lipsync/internal/pkg/logger"
	"lipsync/internal/ports"
)

// Operation names carried by the errors Run returns.
const (
	OpConnect   = "syncflow.connect"
	OpUpload    = "syncflow.upload"
	OpInference = "syncflow.inference"
	OpPersist   = "syncflow.persist"
)

// StoreProvider hands out the shared record store connection.
type StoreProvider interface {
	Get(ctx context.Context) (ports.RecordStore, error)
}

type Input struct {
	AudioURL string `json:"audio"`
	VideoURL string `json:"video"`
}

// Validate checks both sources are present absolute http(s) URLs.
func (in Input) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"audio", in.AudioURL},
		{"video", in.VideoURL},
	} {
		v := strings.TrimSpace(f.value)
		if v == "" {
			return errors.ValidationField(f.name, f.name+" is required")
		}
		if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
			return errors.ValidationField(f.name, f.name+" must be an http(s) URL")
		}
	}
	return nil
}

type Result struct {
	AudioURL       string `json:"audioUrl"`
	VideoURL       string `json:"videoUrl"`
	SyncedVideoURL string `json:"syncedVideoUrl"`
}

type Service struct {
	stores StoreProvider
	host   ports.MediaHost
	syncer ports.LipSyncer
	cache  historycache.Cache
	log    *logger.Logger
	now    func() time.Time
}

func New(stores StoreProvider, host ports.MediaHost, syncer ports.LipSyncer, cache historycache.Cache, log *logger.Logger) *Service {
	if cache == nil {
		cache = historycache.Nop{}
	}
	return &Service{
		stores: stores,
		host:   host,
		syncer: syncer,
		cache:  cache,
		log:    log.WithComponent("syncflow"),
		now:    time.Now,
	}
}

// HostName is the configured media host's provider name.
func (s *Service) HostName() string { return s.host.Provider() }

// Run executes the whole flow. It is not interrupted when ctx is canceled:
// once started, uploads and inference run to completion so the result gets
// recorded.
func (s *Service) Run(ctx context.Context, in Input) (Result, error) {
	ctx = context.WithoutCancel(ctx)
	log := s.log.FromContext(ctx)
	start := s.now()

	store, err := s.stores.Get(ctx)
	if err != nil {
		return Result{}, errors.WrapWithCode(err, errors.CodeUnavailable, OpConnect, "Failed to connect to database")
	}

	audioURL, videoURL, err := s.upload(ctx, in)
	if err != nil {
		return Result{}, errors.Upstream(err, s.host.Provider(), OpUpload)
	}
	log.Info("files uploaded",
		"host", s.host.Provider(),
		"audio_url", audioURL,
		"video_url", videoURL,
	)

	res, err := s.syncer.LipSync(ctx, ports.LipSyncRequest{VideoURL: videoURL, AudioURL: audioURL}, func(line string) {
		log.Info("inference progress", "provider", s.syncer.Provider(), "message", line)
	})
	if err != nil {
		return Result{}, errors.Upstream(err, s.syncer.Provider(), OpInference).
			WithField("request_id", res.RequestID)
	}
	ctx = logger.ContextWithProviderRequestID(ctx, res.RequestID)

	rec, err := store.Insert(ctx, res.SyncedVideoURL)
	if err != nil {
		return Result{}, errors.Wrap(err, OpPersist, "failed to save sync record")
	}
	s.invalidate(ctx)

	s.log.FromContext(ctx).Info("sync completed",
		"record_id", rec.ID,
		"synced_video_url", rec.SyncedVideoURL,
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)

	return Result{
		AudioURL:       audioURL,
		VideoURL:       videoURL,
		SyncedVideoURL: res.SyncedVideoURL,
	}, nil
}

// upload re-hosts both files concurrently. Both uploads run to completion
// even when one fails; nothing is cleaned up.
func (s *Service) upload(ctx context.Context, in Input) (audioURL, videoURL string, err error) {
	var g errgroup.Group

	g.Go(func() error {
		m, err := s.host.UploadFromURL(ctx, in.AudioURL)
		if err != nil {
			return errors.Wrap(err, OpUpload, "audio upload failed")
		}
		audioURL = m.URL
		return nil
	})
	g.Go(func() error {
		m, err := s.host.UploadFromURL(ctx, in.VideoURL)
		if err != nil {
			return errors.Wrap(err, OpUpload, "video upload failed")
		}
		videoURL = m.URL
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return audioURL, videoURL, nil
}

// History lists every record, through the cache when one is configured.
// Cache failures are logged and never fail the call.
func (s *Service) History(ctx context.Context) ([]models.SyncRecord, error) {
	log := s.log.FromContext(ctx)

	if records, ok, err := s.cache.Get(ctx); err != nil {
		log.WithError(err).Warn("history cache read failed")
	} else if ok {
		return records, nil
	}

	// Taken before listing so a write landing in between voids the refill.
	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		log.WithError(genErr).Warn("history cache generation read failed")
	}

	store, err := s.stores.Get(ctx)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, OpConnect, "Failed to connect to database")
	}

	records, err := store.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "syncflow.history", "failed to list sync records")
	}
	if records == nil {
		records = []models.SyncRecord{}
	}

	if genErr == nil {
		switch err := s.cache.Set(ctx, gen, records); {
		case errors.Is(err, historycache.ErrStale):
			log.Debug("history changed while listing, cache not refilled")
		case err != nil:
			log.WithError(err).Warn("history cache write failed")
		}
	}
	return records, nil
}

// CompleteLatest stores syncedVideoURL on the newest record that has none.
// Requests carry no correlation id, so a concurrent run may be matched
// instead of the one the callback belongs to.
func (s *Service) CompleteLatest(ctx context.Context, syncedVideoURL string) (bool, error) {
	store, err := s.stores.Get(ctx)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.CodeUnavailable, OpConnect, "Failed to connect to database")
	}

	matched, err := store.FillLatestMissing(ctx, syncedVideoURL)
	if err != nil {
		return false, errors.Wrap(err, "syncflow.webhook", "failed to update sync record")
	}
	if matched {
		s.invalidate(ctx)
	}
	return matched, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.FromContext(ctx).WithError(err).Warn("history cache invalidate failed")
	}
}
