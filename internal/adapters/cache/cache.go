// Package cache persists analysis results keyed by content fingerprint, so
// re-submitting identical bytes returns the stored verdict instead of
// re-running the detector pipeline. Concurrent requests for the same
// fingerprint are collapsed onto a single computation.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/veridianlabs/veridian/internal/domain/fusion"
	"github.com/veridianlabs/veridian/pkg/logger"
	"github.com/veridianlabs/veridian/pkg/metrics"
)

const keyPrefix = "result:"

// Entry is the stored representation of a cached analysis.
type Entry struct {
	Result    fusion.Result `json:"result"`
	CreatedAt time.Time     `json:"created_at"`
}

// Option applies a configuration option to the cache.
type Option func(*Cache)

// WithTTL sets an expiry on stored results. Zero means results never
// expire.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// Cache is a fingerprint-keyed result store backed by badger.
type Cache struct {
	db     *badger.DB
	group  singleflight.Group
	ttl    time.Duration
	closed atomic.Bool
	log    logger.Logger
}

// New opens a cache store at dir. An empty dir opens an in-memory store
// that does not survive restarts.
func New(dir string, opts ...Option) (*Cache, error) {
	var bopts badger.Options
	if dir == "" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(dir)
		bopts.ValueLogFileSize = 16 << 20
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	c := &Cache{
		db:  db,
		log: logger.Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the cached result for a fingerprint. A corrupted entry is
// dropped and reported as a miss so the pipeline recomputes it.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*fusion.Result, bool) {
	if err := ctx.Err(); err != nil {
		return nil, false
	}
	if c.closed.Load() {
		return nil, false
	}
	key := []byte(keyPrefix + fingerprint)

	var entry Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	switch {
	case err == nil:
		metrics.RecordCacheHit()
		return &entry.Result, true
	case errors.Is(err, badger.ErrKeyNotFound):
		metrics.RecordCacheMiss()
		return nil, false
	default:
		// Unreadable entry: drop it and recompute.
		c.log.Warn(ctx, "dropping corrupted cache entry",
			logger.String("fingerprint", fingerprint),
			logger.Error(err))
		metrics.RecordCacheCorruption()
		if derr := c.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		}); derr != nil {
			c.log.Warn(ctx, "failed to drop corrupted entry", logger.Error(derr))
		}
		metrics.RecordCacheMiss()
		return nil, false
	}
}

// Put stores a result. Write failures are surfaced to the caller but never
// invalidate the computed result itself.
func (c *Cache) Put(ctx context.Context, fingerprint string, result *fusion.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return ErrClosed
	}
	data, err := json.Marshal(Entry{Result: *result, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(keyPrefix+fingerprint), data)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		metrics.RecordCacheWriteError()
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// GetOrCompute returns the cached result or runs compute exactly once per
// fingerprint across concurrent callers, storing its result on success. A
// failed store write is logged and the result still returned.
func (c *Cache) GetOrCompute(ctx context.Context, fingerprint string, compute func(context.Context) (*fusion.Result, error)) (*fusion.Result, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if result, ok := c.Get(ctx, fingerprint); ok {
		return result, nil
	}

	v, err, _ := c.group.Do(fingerprint, func() (any, error) {
		// Another caller may have stored it between our miss and here.
		if result, ok := c.Get(ctx, fingerprint); ok {
			return result, nil
		}
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if perr := c.Put(ctx, fingerprint, result); perr != nil {
			c.log.Warn(ctx, "result computed but not cached",
				logger.String("fingerprint", fingerprint),
				logger.Error(perr))
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*fusion.Result), nil
}

// Close releases the underlying store. Subsequent reads miss and writes
// return ErrClosed.
func (c *Cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.db.Close()
}
