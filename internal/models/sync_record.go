package models

import "time"

// SyncRecord is one finished lip-sync run. SyncedVideoURL may be empty on
// records waiting for the provider's webhook.
type SyncRecord struct {
	ID             string    `json:"_id"`
	SyncedVideoURL string    `json:"syncedVideoUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
