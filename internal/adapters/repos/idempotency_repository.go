package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/architeacher/device-inventory/internal/infrastructure"
	"github.com/architeacher/device-inventory/internal/ports"
)

// A lock lives beside the response it guards, under the same key plus this suffix.
const (
	idempotencyLockSuffix = ":lock"
	idempotencyLockMarker = "in-flight"
)

var errNilCachedResponse = errors.New("refusing to store an empty idempotent response")

// IdempotencyRepository keeps replayable create responses in Redis. Keys arrive
// already namespaced by the middleware.
type IdempotencyRepository struct {
	client *infrastructure.RedisClient
}

var _ ports.IdempotencyCache = (*IdempotencyRepository)(nil)

func NewIdempotencyRepository(client *infrastructure.RedisClient) *IdempotencyRepository {
	return &IdempotencyRepository{client: client}
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*ports.CachedResponse, error) {
	payload, err := r.client.Get(ctx, key)
	switch {
	case errors.Is(err, infrastructure.ErrCacheMiss):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("reading idempotent response %q: %w", key, err)
	}

	response := new(ports.CachedResponse)
	if err := json.Unmarshal(payload, response); err != nil {
		return nil, fmt.Errorf("decoding idempotent response %q: %w", key, err)
	}

	return response, nil
}

func (r *IdempotencyRepository) Set(ctx context.Context, key string, response *ports.CachedResponse, ttl time.Duration) error {
	if response == nil {
		return errNilCachedResponse
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("encoding idempotent response %q: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl); err != nil {
		return fmt.Errorf("storing idempotent response %q: %w", key, err)
	}

	return nil
}

// SetLock marks key as being processed. It reports false while another request
// holds the marker; the marker expires on its own after ttl.
func (r *IdempotencyRepository) SetLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := r.client.SetNX(ctx, lockKey(key), idempotencyLockMarker, ttl)
	if err != nil {
		return false, fmt.Errorf("locking idempotency key %q: %w", key, err)
	}

	return acquired, nil
}

func (r *IdempotencyRepository) ReleaseLock(ctx context.Context, key string) error {
	if err := r.client.Delete(ctx, lockKey(key)); err != nil {
		return fmt.Errorf("unlocking idempotency key %q: %w", key, err)
	}

	return nil
}

func lockKey(key string) string {
	return key + idempotencyLockSuffix
}
