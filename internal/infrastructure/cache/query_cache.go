package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Lookup outcomes reported to an Observer
const (
	OutcomeHit   = "hit"
	OutcomeStale = "stale"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

const defaultRefreshTimeout = 30 * time.Second

// Observer receives one call per cache lookup
type Observer interface {
	ObserveLookup(ctx context.Context, view, outcome string)
}

// QueryCacheConfig configures a QueryCache
type QueryCacheConfig struct {
	Namespace      string        // key prefix, e.g. "analytics:"
	DefaultTTL     time.Duration // how long an entry may be served at all
	StaleTime      time.Duration // how long an entry is served without a refresh
	RefreshTimeout time.Duration // deadline for loads shared between callers and for background refreshes
}

// QueryCache is a read-through cache with stale-while-revalidate semantics.
// Fresh entries are served directly. Stale entries are served while one background
// refresh runs. Missing entries load synchronously, with concurrent identical
// loads collapsed into one. A load that overlaps an Invalidate returns its value
// to its callers but is not written back.
type QueryCache struct {
	store      Store
	config     QueryCacheConfig
	group      singleflight.Group
	refreshing sync.Map
	wg         sync.WaitGroup
	observer   Observer
	logger     *zap.Logger
	now        func() time.Time

	// generation is bumped by every Invalidate; writes check it under mu
	generation atomic.Uint64
	mu         sync.RWMutex
}

// NewQueryCache creates a query cache over store. observer may be nil.
func NewQueryCache(store Store, config QueryCacheConfig, observer Observer, logger *zap.Logger) *QueryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 5 * time.Minute
	}
	if config.StaleTime <= 0 || config.StaleTime > config.DefaultTTL {
		config.StaleTime = config.DefaultTTL
	}
	if config.RefreshTimeout <= 0 {
		config.RefreshTimeout = defaultRefreshTimeout
	}
	return &QueryCache{
		store:    store,
		config:   config,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

type forceRefreshKey struct{}

// WithForceRefresh marks ctx so lookups skip cached values and reload
func WithForceRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, forceRefreshKey{}, true)
}

func isForceRefresh(ctx context.Context) bool {
	v, _ := ctx.Value(forceRefreshKey{}).(bool)
	return v
}

// Key builds the cache key of a view
func (c *QueryCache) Key(view, params string) string {
	return c.config.Namespace + view + ":" + params
}

// Fetch returns the cached value of view/params, loading it with load when needed.
// A zero ttl uses the configured default.
func Fetch[T any](ctx context.Context, c *QueryCache, view, params string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	key := c.Key(view, params)
	loader := func(ctx context.Context) (any, error) { return load(ctx) }

	if !isForceRefresh(ctx) {
		if v, ok := lookup[T](ctx, c, key, view); ok {
			if v.stale {
				c.refresh(ctx, key, view, ttl, loader)
			}
			return v.value, nil
		}
	}

	c.observe(ctx, view, OutcomeMiss)
	gen := c.generation.Load()
	ch := c.group.DoChan(flightKey(key, gen), func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.RefreshTimeout)
		defer cancel()
		return c.loadAndStore(lctx, key, gen, ttl, loader)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// flightKey separates loads started before and after an invalidation
func flightKey(key string, gen uint64) string {
	return key + "#" + strconv.FormatUint(gen, 10)
}

type cached[T any] struct {
	value T
	stale bool
}

func lookup[T any](ctx context.Context, c *QueryCache, key, view string) (cached[T], bool) {
	var out cached[T]
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Cache read failed, loading from source", zap.String("key", key), zap.Error(err))
		c.observe(ctx, view, OutcomeError)
		return out, false
	}
	if entry == nil {
		return out, false
	}
	if err := json.Unmarshal(entry.Value, &out.value); err != nil {
		c.logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.store.Delete(ctx, key)
		return out, false
	}
	out.stale = entry.Age(c.now()) >= c.config.StaleTime
	if out.stale {
		c.observe(ctx, view, OutcomeStale)
	} else {
		c.observe(ctx, view, OutcomeHit)
	}
	return out, true
}

func (c *QueryCache) loadAndStore(ctx context.Context, key string, gen uint64, ttl time.Duration, load func(context.Context) (any, error)) (any, error) {
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Value not cacheable", zap.String("key", key), zap.Error(err))
		return v, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.generation.Load() != gen {
		c.logger.Debug("Load overlapped an invalidation, not caching", zap.String("key", key))
		return v, nil
	}
	now := c.now()
	if err := c.store.Set(ctx, key, &Entry{Value: data, StoredAt: now, ExpiresAt: now.Add(ttl)}); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// refresh reloads key in the background unless a refresh for it is already running
func (c *QueryCache) refresh(ctx context.Context, key, view string, ttl time.Duration, load func(context.Context) (any, error)) {
	if _, busy := c.refreshing.LoadOrStore(key, struct{}{}); busy {
		return
	}
	gen := c.generation.Load()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.refreshing.Delete(key)

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.RefreshTimeout)
		defer cancel()
		if _, err, _ := c.group.Do(flightKey(key, gen), func() (any, error) {
			return c.loadAndStore(rctx, key, gen, ttl, load)
		}); err != nil {
			c.logger.Warn("Background cache refresh failed", zap.String("key", key), zap.String("view", view), zap.Error(err))
		}
	}()
}

// Invalidate removes every entry whose key starts with the namespace plus prefix.
// Loads already in flight finish but their results are not cached.
func (c *QueryCache) Invalidate(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation.Add(1)
	return c.store.DeletePrefix(ctx, c.config.Namespace+prefix)
}

// Wait blocks until running background refreshes finish
func (c *QueryCache) Wait() {
	c.wg.Wait()
}

func (c *QueryCache) observe(ctx context.Context, view, outcome string) {
	if c.observer != nil {
		c.observer.ObserveLookup(ctx, view, outcome)
	}
}
