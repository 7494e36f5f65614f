package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pharmapos/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Supported cache backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendTiered = "tiered"
)

// defaultL1TTL caps how long a tiered instance keeps an entry locally
const defaultL1TTL = 15 * time.Second

// Backend is the store selected by configuration plus the pieces that need a lifecycle
type Backend struct {
	Store       Store
	Kind        string
	invalidator *RedisInvalidator
	tiered      *TieredStore
	logger      *zap.Logger
}

// NewBackend builds the configured store. client may be nil when Redis is disabled;
// redis and tiered backends then fall back to memory with a warning.
func NewBackend(cfg config.CacheConfig, client redis.UniversalClient, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	kind := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if kind == "" {
		kind = BackendMemory
	}

	if (kind == BackendRedis || kind == BackendTiered) && client == nil {
		logger.Warn("Redis unavailable, falling back to in-memory analytics cache. "+
			"Cached views will not be shared between instances.",
			zap.String("configured_backend", kind))
		kind = BackendMemory
	}

	b := &Backend{Kind: kind, logger: logger}
	switch kind {
	case BackendMemory:
		b.Store = NewMemoryStore(cfg.CleanupInterval)
	case BackendRedis:
		b.Store = NewRedisStore(client, cfg.KeyPrefix, WithRedisLogger(logger))
	case BackendTiered:
		b.invalidator = NewRedisInvalidator(client,
			WithInvalidatorChannel(cfg.KeyPrefix+"cache:invalidate"),
			WithInvalidatorLogger(logger))
		b.tiered = NewTieredStore(
			NewMemoryStore(cfg.CleanupInterval),
			NewRedisStore(client, cfg.KeyPrefix, WithRedisLogger(logger)),
			b.invalidator,
			defaultL1TTL,
			logger,
		)
		b.Store = b.tiered
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}

	logger.Info("Analytics cache backend ready", zap.String("backend", kind))
	return b, nil
}

// Start begins listening for peer invalidations when the backend is tiered
func (b *Backend) Start(ctx context.Context) {
	if b.tiered == nil || b.invalidator == nil {
		return
	}
	go func() {
		if err := b.invalidator.Subscribe(ctx, b.tiered.HandleInvalidation); err != nil && ctx.Err() == nil {
			b.logger.Error("Cache invalidation subscription ended", zap.Error(err))
		}
	}()
}

// Close stops the subscription and the store
func (b *Backend) Close() error {
	if b.invalidator != nil {
		_ = b.invalidator.Close()
	}
	return b.Store.Close()
}
