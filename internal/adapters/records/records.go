// Package records selects the record store backend.
package records

import (
	"context"
	"fmt"

	"lipsync/internal/adapters/records/mongostore"
	"lipsync/internal/adapters/records/pgstore"
	"lipsync/internal/config"
	"lipsync/internal/pkg/connector"
	"lipsync/internal/ports"
)

// Dialer returns the connect function for the configured backend. Nothing
// is dialed until the returned function is called.
func Dialer(cfg *config.Config) (connector.DialFunc[ports.RecordStore], error) {
	switch cfg.RecordStore {
	case config.RecordStoreMongo:
		uri, db := cfg.MongoURI, cfg.MongoDatabase
		return func(ctx context.Context) (ports.RecordStore, error) {
			s, err := mongostore.Connect(ctx, uri, db)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	case config.RecordStorePostgres:
		dsn := cfg.DatabaseURL
		return func(ctx context.Context) (ports.RecordStore, error) {
			s, err := pgstore.Connect(ctx, dsn)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown record store: %s", cfg.RecordStore)
	}
}
