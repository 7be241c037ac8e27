package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

var compareAndSwapScript = redis.NewScript(`
	local current = redis.call("GET", KEYS[1])
	if current == false or tonumber(current) ~= tonumber(ARGV[1]) then
		return 0
	end
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
`)

// setIfGenerationScript writes KEYS[2] only while the counter at KEYS[1] still holds
// ARGV[1]. A missing counter reads as zero.
var setIfGenerationScript = redis.NewScript(`
	local current = tonumber(redis.call("GET", KEYS[1]) or "0")
	if current ~= tonumber(ARGV[1]) then
		return 0
	end
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
	return 1
`)

// bumpGenerationScript increments the counter at KEYS[1] and drops every other key.
var bumpGenerationScript = redis.NewScript(`
	local generation = redis.call("INCR", KEYS[1])
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	for i = 2, #KEYS do
		redis.call("DEL", KEYS[i])
	end
	return generation
`)

// RedisClient is the key value store shared by the device cache, idempotency
// records and the rate limiter.
type RedisClient struct {
	client *redis.Client
	logger logger.Logger
	config config.Cache
}

func NewRedisClient(cfg config.Cache, log logger.Logger) *RedisClient {
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.Address,
			Password:     cfg.Password,
			DB:           int(cfg.DB),
			PoolSize:     int(cfg.PoolSize),
			MinIdleConns: int(cfg.MinIdleConns),
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			PoolTimeout:  cfg.PoolTimeout,
			MaxRetries:   int(cfg.MaxRetries),
		}),
		logger: log,
		config: cfg,
	}
}

// ConnectRedis builds a client and waits for the server to answer a ping.
func ConnectRedis(ctx context.Context, cfg config.Cache, backoffCfg config.Backoff, log logger.Logger) (*RedisClient, error) {
	client := NewRedisClient(cfg, log)

	_, err := RetryConnect(ctx, backoffCfg, cfg.ConnectRetries, log, "redis", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, client.Ping(ctx)
	})
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Address, err)
	}

	return client, nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}

func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()

	result, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.observe("get", key, start, nil).Bool("hit", false).Msg("redis operation")

		return nil, ErrCacheMiss
	}

	c.observe("get", key, start, err).Bool("hit", err == nil).Msg("redis operation")

	return result, err
}

// Set stores value under key; a zero ttl falls back to the configured default.
func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.config.DefaultExpiry
	}

	start := time.Now()
	err := c.client.Set(ctx, key, value, ttl).Err()
	c.observe("set", key, start, err).Dur("ttl", ttl).Msg("redis operation")

	return err
}

// SetNX stores value only when key is absent and reports whether it did.
func (c *RedisClient) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	start := time.Now()
	acquired, err := c.client.SetNX(ctx, key, value, ttl).Result()
	c.observe("setnx", key, start, err).Bool("acquired", acquired).Msg("redis operation")

	if err != nil {
		return false, fmt.Errorf("setting %s if absent: %w", key, err)
	}

	return acquired, nil
}

func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	start := time.Now()
	err := c.client.Del(ctx, keys...).Err()
	c.observe("del", keys[0], start, err).Int("keys", len(keys)).Msg("redis operation")

	return err
}

// GetInt64 returns -1 for a missing key, together with the current time.
func (c *RedisClient) GetInt64(ctx context.Context, key string) (int64, time.Time, error) {
	val, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return -1, time.Now(), nil
	}

	if err != nil {
		return 0, time.Time{}, err
	}

	return val, time.Now(), nil
}

func (c *RedisClient) SetInt64NX(ctx context.Context, key string, value int64, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, ttl).Result()
}

// CompareAndSwapInt64 replaces the value at key only while it still equals old.
func (c *RedisClient) CompareAndSwapInt64(ctx context.Context, key string, old, new int64, ttl time.Duration) (bool, error) {
	result, err := compareAndSwapScript.Run(ctx, c.client, []string{key}, old, new, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

// Generation returns the counter stored at key, zero when it does not exist.
func (c *RedisClient) Generation(ctx context.Context, key string) (int64, error) {
	generation, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("reading generation %s: %w", key, err)
	}

	return generation, nil
}

// SetIfGeneration stores value under key unless the counter at generationKey moved
// past generation, and reports whether it wrote.
func (c *RedisClient) SetIfGeneration(
	ctx context.Context,
	generationKey, key string,
	generation int64,
	value []byte,
	ttl time.Duration,
) (bool, error) {
	if ttl == 0 {
		ttl = c.config.DefaultExpiry
	}

	start := time.Now()
	written, err := setIfGenerationScript.Run(ctx, c.client,
		[]string{generationKey, key}, generation, value, ttl.Milliseconds(),
	).Int64()
	c.observe("set_if_generation", key, start, err).Bool("written", written == 1).Msg("redis operation")

	if err != nil {
		return false, fmt.Errorf("setting %s at generation %d: %w", key, generation, err)
	}

	return written == 1, nil
}

// BumpGeneration increments the counter at generationKey, keeps it for ttl and
// deletes keys in the same step.
func (c *RedisClient) BumpGeneration(ctx context.Context, generationKey string, ttl time.Duration, keys ...string) (int64, error) {
	start := time.Now()
	generation, err := bumpGenerationScript.Run(ctx, c.client,
		append([]string{generationKey}, keys...), ttl.Milliseconds(),
	).Int64()
	c.observe("bump_generation", generationKey, start, err).Int64("generation", generation).Msg("redis operation")

	if err != nil {
		return 0, fmt.Errorf("bumping generation %s: %w", generationKey, err)
	}

	return generation, nil
}

func (c *RedisClient) observe(op, key string, start time.Time, err error) *zerolog.Event {
	event := c.logger.Debug()
	if err != nil {
		event = c.logger.Warn().Err(err)
	}

	return event.
		Str("op", op).
		Str("key", key).
		Int64("duration_ms", time.Since(start).Milliseconds())
}
