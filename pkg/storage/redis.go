package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
	"github.com/OHMS-DeAI/ratefeed/pkg/logging"
)

// Redis persists the latest record in a Redis key. It is the production
// backend of the persistence facade.
type Redis struct {
	client *redis.Client
	key    string
	logger *logging.Logger
}

var _ Store = (*Redis)(nil)

// NewRedis creates a Redis-backed store. logger may be nil.
func NewRedis(client *redis.Client, key string, logger *logging.Logger) *Redis {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Redis{
		client: client,
		key:    key,
		logger: logger,
	}
}

// Ping checks the connection to the Redis server.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// SaveRecord persists the record under the fixed key. Records are kept
// without expiry; the engine decides staleness, not the store.
func (r *Redis) SaveRecord(ctx context.Context, rec sources.PriceRecord) error {
	payload, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

// LoadRecord returns the persisted record. A missing key is a clean cold
// start.
func (r *Redis) LoadRecord(ctx context.Context) (sources.PriceRecord, bool, error) {
	payload, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return sources.PriceRecord{}, false, nil
	}
	if err != nil {
		return sources.PriceRecord{}, false, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	rec, err := DecodeRecord(payload)
	if err != nil {
		r.logger.Warn("discarding corrupt persisted record", "key", r.key, "error", err)
		return sources.PriceRecord{}, false, err
	}
	return rec, true, nil
}
