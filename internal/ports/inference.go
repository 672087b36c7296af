package ports

import "context"

type LipSyncRequest struct {
	VideoURL string `json:"video_url"`
	AudioURL string `json:"audio_url"`
}

type LipSyncResult struct {
	RequestID      string
	SyncedVideoURL string
}

// LipSyncer runs a lip-sync inference and blocks until it finishes. onLog,
// when non-nil, receives progress lines while the request is in progress.
type LipSyncer interface {
	Provider() string
	LipSync(ctx context.Context, req LipSyncRequest, onLog func(string)) (LipSyncResult, error)
}

// ProviderError is an error answered by the inference provider itself.
type ProviderError interface {
	error
	// Status is the status code to surface to clients.
	Status() int
	// AuthFailure reports a rejected credential.
	AuthFailure() bool
}
