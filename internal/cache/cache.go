// Package cache mirrors the latest reading of every sensor into Redis so
// other processes (and this one after a restart) can read current values
// without touching the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"airmetrics/internal/hub"
	"airmetrics/pkg/types"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Defaults for Options.
const (
	DefaultPrefix = "airmetrics:last:"
	DefaultTTL    = 24 * time.Hour
)

// ErrMiss is returned by Get when nothing is cached for the sensor.
var ErrMiss = errors.New("cache miss")

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to the sensor name to form the key.
	Prefix string
	// TTL expires entries of sensors that stopped reporting.
	TTL time.Duration
}

// LatestCache stores one JSON-encoded reading per sensor.
type LatestCache struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New creates a client for opts.Addr. It does not dial; use Ping.
func New(opts Options) *LatestCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(rdb, opts.Prefix, opts.TTL)
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb redis.UniversalClient, prefix string, ttl time.Duration) *LatestCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LatestCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Key returns the Redis key for sensor.
func (c *LatestCache) Key(sensor string) string { return c.prefix + sensor }

// Set overwrites the cached reading for r.Sensor.
func (c *LatestCache) Set(ctx context.Context, r types.Reading) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	if err := c.rdb.Set(ctx, c.Key(r.Sensor), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns the cached reading for sensor or ErrMiss.
func (c *LatestCache) Get(ctx context.Context, sensor string) (types.Reading, error) {
	b, err := c.rdb.Get(ctx, c.Key(sensor)).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.Reading{}, ErrMiss
	}
	if err != nil {
		return types.Reading{}, fmt.Errorf("redis get: %w", err)
	}
	var r types.Reading
	if err := json.Unmarshal(b, &r); err != nil {
		return types.Reading{}, fmt.Errorf("decode cached reading: %w", err)
	}
	return r, nil
}

func (c *LatestCache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *LatestCache) Close() error { return c.rdb.Close() }

// Setter is what Mirror writes to.
type Setter interface {
	Set(ctx context.Context, r types.Reading) error
}

// Mirror copies every "reading" event from sub into dst until ctx is done.
// Each write gets its own timeout; failures are logged and skipped.
func Mirror(ctx context.Context, sub *hub.Subscriber, dst Setter, timeout time.Duration, log zerolog.Logger) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.Events():
			r, ok := ev.Data.(types.Reading)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, timeout)
			if err := dst.Set(wctx, r); err != nil {
				log.Warn().Err(err).Str("sensor", r.Sensor).Msg("cache mirror write failed")
			}
			cancel()
		}
	}
}
