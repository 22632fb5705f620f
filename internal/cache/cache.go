// Package cache implements a TTL cache with background auto-refresh and
// stale-read fallback. Entries are never evicted on read: an expired entry
// stays readable until it is deleted, cleared or overwritten, so callers can
// serve stale data while the backing store is unavailable.
package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNoRefresher is returned by ForceRefresh for a key that has no
// registered refresh function.
var ErrNoRefresher = errors.New("no refresher registered")

// RefreshFunc fetches a fresh value for one key.
type RefreshFunc[T any] func(ctx context.Context) (T, error)

// Entry is one cached value with its freshness window.
// Entries are replaced wholesale by Set, never mutated in place.
type Entry[T any] struct {
	Data      T
	CachedAt  time.Time
	ExpiresAt time.Time
}

type refresher[T any] struct {
	fn   RefreshFunc[T]
	stop chan struct{}
}

// Stats is an introspection snapshot.
type Stats struct {
	Keys            []string `json:"keys"`
	TotalEntries    int      `json:"total_entries"`
	AutoRefreshKeys []string `json:"auto_refresh_keys"`
}

type Cache[T any] struct {
	ttl            time.Duration
	refreshTimeout time.Duration
	clock          Clock
	logger         *zap.Logger

	mu         sync.Mutex
	entries    map[string]Entry[T]
	refreshers map[string]*refresher[T]
}

type Option[T any] func(*Cache[T])

// WithClock sets a custom clock. Useful for testing TTL behavior.
func WithClock[T any](clk Clock) Option[T] {
	return func(c *Cache[T]) {
		c.clock = clk
	}
}

// WithRefreshTimeout bounds how long one background refresh call may run.
func WithRefreshTimeout[T any](d time.Duration) Option[T] {
	return func(c *Cache[T]) {
		c.refreshTimeout = d
	}
}

func New[T any](ttl time.Duration, logger *zap.Logger, opts ...Option[T]) *Cache[T] {
	if ttl <= 0 {
		ttl = time.Second
	}
	c := &Cache[T]{
		ttl:            ttl,
		refreshTimeout: 30 * time.Second,
		clock:          realClock{},
		logger:         logger,
		entries:        make(map[string]Entry[T]),
		refreshers:     make(map[string]*refresher[T]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the stored entry regardless of expiry. The second return is
// false only if the key was never set or has been deleted.
func (c *Cache[T]) Get(key string) (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// IsFresh reports whether an entry exists and has not passed its TTL.
func (c *Cache[T]) IsFresh(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && c.clock.Now().Before(e.ExpiresAt)
}

// Set stores data under key with a full TTL window, overwriting any
// existing entry.
func (c *Cache[T]) Set(key string, data T) {
	now := c.clock.Now()
	c.mu.Lock()
	c.entries[key] = Entry[T]{
		Data:      data,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.mu.Unlock()

	c.logger.Debug("cache set",
		zap.String("key", key),
		zap.Time("expires_at", now.Add(c.ttl)),
	)
}

// Delete removes the entry and cancels any active refresh schedule for key.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.stopRefresherLocked(key)
	c.mu.Unlock()
}

// Clear removes all entries and cancels all refresh schedules.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry[T])
	for key := range c.refreshers {
		c.stopRefresherLocked(key)
	}
	c.mu.Unlock()
}

// Age returns how long ago the entry for key was cached.
func (c *Cache[T]) Age(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	return c.clock.Now().Sub(e.CachedAt), true
}

// AutoRefresh registers fn as the refresher for key and starts a recurring
// schedule firing every TTL. A failed refresh is logged and leaves the
// existing (possibly stale) entry untouched. Re-registering for the same key
// cancels the prior schedule first: at most one schedule per key, always.
func (c *Cache[T]) AutoRefresh(key string, fn RefreshFunc[T]) {
	r := &refresher[T]{fn: fn, stop: make(chan struct{})}

	c.mu.Lock()
	c.stopRefresherLocked(key)
	c.refreshers[key] = r
	c.mu.Unlock()

	go c.runRefresher(key, r)

	c.logger.Info("auto refresh registered",
		zap.String("key", key),
		zap.Duration("interval", c.ttl),
	)
}

// StopAutoRefresh cancels the schedule for key, leaving the entry intact.
func (c *Cache[T]) StopAutoRefresh(key string) {
	c.mu.Lock()
	c.stopRefresherLocked(key)
	c.mu.Unlock()
}

// ForceRefresh synchronously invokes the registered refresher and stores the
// result. Unlike the background schedule, a refresh error is propagated to
// the caller and the cached entry is left unchanged. Calling ForceRefresh
// for a key without a refresher is a soft no-op returning ErrNoRefresher.
func (c *Cache[T]) ForceRefresh(ctx context.Context, key string) (T, error) {
	var zero T

	c.mu.Lock()
	r, ok := c.refreshers[key]
	c.mu.Unlock()
	if !ok {
		c.logger.Warn("force refresh without a registered refresher", zap.String("key", key))
		return zero, ErrNoRefresher
	}

	data, err := r.fn(ctx)
	if err != nil {
		return zero, err
	}
	c.Set(key, data)
	return data, nil
}

func (c *Cache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Stats{
		Keys:            make([]string, 0, len(c.entries)),
		TotalEntries:    len(c.entries),
		AutoRefreshKeys: make([]string, 0, len(c.refreshers)),
	}
	for key := range c.entries {
		st.Keys = append(st.Keys, key)
	}
	for key := range c.refreshers {
		st.AutoRefreshKeys = append(st.AutoRefreshKeys, key)
	}
	sort.Strings(st.Keys)
	sort.Strings(st.AutoRefreshKeys)
	return st
}

// stopRefresherLocked must be called with c.mu held.
func (c *Cache[T]) stopRefresherLocked(key string) {
	if r, ok := c.refreshers[key]; ok {
		close(r.stop)
		delete(c.refreshers, key)
	}
}

func (c *Cache[T]) runRefresher(key string, r *refresher[T]) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
			data, err := r.fn(ctx)
			cancel()
			if err != nil {
				// Keep serving the old entry, stale or not.
				c.logger.Warn("background refresh failed",
					zap.String("key", key),
					zap.Error(err),
				)
				continue
			}
			c.Set(key, data)
		}
	}
}
