package ports

import (
	"context"

	"lipsync/internal/models"
)

// RecordStore persists SyncRecords. Implementations: mongostore, pgstore.
type RecordStore interface {
	Insert(ctx context.Context, syncedVideoURL string) (models.SyncRecord, error)
	// List returns every record in insertion order. Never nil.
	List(ctx context.Context) ([]models.SyncRecord, error)
	// FillLatestMissing sets syncedVideoURL on the most recently created record
	// that has none, and reports whether such a record existed.
	FillLatestMissing(ctx context.Context, syncedVideoURL string) (bool, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
