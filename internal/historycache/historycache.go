// Package historycache caches the history listing in Redis. Writers call
// Invalidate; a nil or Nop cache disables caching.
//
// Every Invalidate bumps a generation counter. Readers take the generation
// before listing the store and Set only stores a listing whose generation is
// still current, so a slow reader cannot put back a listing older than the
// last write.
package historycache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"lipsync/internal/models"
)

const (
	// Key holds the JSON-encoded listing.
	Key = "lipsync:history:v1"
	// GenKey holds the generation counter.
	GenKey = "lipsync:history:gen"
)

// ErrStale is returned by Set when the listing was read before the last
// invalidation; nothing is stored.
var ErrStale = errors.New("history listing is stale")

type Cache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context) (records []models.SyncRecord, ok bool, err error)
	// Generation must be read before the listing passed to Set is fetched.
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, gen int64, records []models.SyncRecord) error
	Invalidate(ctx context.Context) error
}

// KEYS[1]=listing KEYS[2]=generation ARGV[1]=expected generation
// ARGV[2]=payload ARGV[3]=ttl in milliseconds
var setIfCurrent = redis.NewScript(`
local cur = redis.call('GET', KEYS[2]) or '0'
if cur ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

type Redis struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedis(rdb redis.Cmdable, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context) ([]models.SyncRecord, bool, error) {
	raw, err := c.rdb.Get(ctx, Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	records := make([]models.SyncRecord, 0)
	if err := json.Unmarshal(raw, &records); err != nil {
		// Drop the corrupt entry so the next read refills it.
		_ = c.rdb.Del(ctx, Key).Err()
		return nil, false, err
	}
	return records, true, nil
}

func (c *Redis) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, GenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Redis) Set(ctx context.Context, gen int64, records []models.SyncRecord) error {
	if records == nil {
		records = []models.SyncRecord{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}

	stored, err := setIfCurrent.Run(ctx, c.rdb,
		[]string{Key, GenKey},
		strconv.FormatInt(gen, 10), raw, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return err
	}
	if stored == 0 {
		return ErrStale
	}
	return nil
}

// Invalidate bumps the generation before dropping the listing. A Set racing
// between the two either fails the generation check or is deleted.
func (c *Redis) Invalidate(ctx context.Context) error {
	return errors.Join(
		c.rdb.Incr(ctx, GenKey).Err(),
		c.rdb.Del(ctx, Key).Err(),
	)
}

// Nop never hits.
type Nop struct{}

func (Nop) Get(context.Context) ([]models.SyncRecord, bool, error) { return nil, false, nil }
func (Nop) Generation(context.Context) (int64, error)               { return 0, nil }
func (Nop) Set(context.Context, int64, []models.SyncRecord) error   { return nil }
func (Nop) Invalidate(context.Context) error                        { return nil }
