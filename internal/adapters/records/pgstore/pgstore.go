// Package pgstore keeps SyncRecords in PostgreSQL.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lipsync/internal/httpkit"
	"lipsync/internal/models"
	"lipsync/internal/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_records (
	id               text PRIMARY KEY,
	synced_video_url text NULL,
	created_at       timestamptz NOT NULL DEFAULT now()
)`

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db   DB
	pool *pgxpool.Pool
}

// Connect opens a pool, pings it and makes sure the table exists.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create sync_records: %w", err)
	}
	return &Store{db: pool, pool: pool}, nil
}

// New builds a store over an existing connection. The schema is assumed.
func New(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, syncedVideoURL string) (models.SyncRecord, error) {
	rec := models.SyncRecord{ID: uuid.NewString(), SyncedVideoURL: syncedVideoURL}

	var url *string
	if syncedVideoURL != "" {
		url = &syncedVideoURL
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO sync_records (id, synced_video_url)
		VALUES ($1, $2)
		RETURNING created_at
	`, rec.ID, url).Scan(&rec.CreatedAt)
	if err != nil {
		return models.SyncRecord{}, wrap(err, "pgstore.insert", "failed to insert record")
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (s *Store) List(ctx context.Context) ([]models.SyncRecord, error) {
	out := make([]models.SyncRecord, 0)

	rows, err := s.db.Query(ctx, `
		SELECT id, synced_video_url, created_at
		FROM sync_records
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		if httpkit.IsUndefinedTable(err) {
			return out, nil
		}
		return nil, wrap(err, "pgstore.list", "failed to query records")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec       models.SyncRecord
			url       *string
			createdAt time.Time
		)
		if err := rows.Scan(&rec.ID, &url, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if url != nil {
			rec.SyncedVideoURL = *url
		}
		rec.CreatedAt = createdAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return out, nil
}

func (s *Store) FillLatestMissing(ctx context.Context, syncedVideoURL string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE sync_records
		SET synced_video_url = $1
		WHERE id = (
			SELECT id FROM sync_records
			WHERE synced_video_url IS NULL
			ORDER BY created_at DESC
			LIMIT 1
		)
	`, syncedVideoURL)
	if err != nil {
		return false, wrap(err, "pgstore.fill", "failed to update record")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// wrap marks lost connections as unavailable so callers can tell them
// apart from query errors.
func wrap(err error, op, msg string) error {
	if httpkit.IsConnectionFailure(err) {
		return errors.WrapWithCode(err, errors.CodeUnavailable, op, "database unavailable")
	}
	return fmt.Errorf("%s: %w", msg, err)
}
