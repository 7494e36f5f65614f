package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// PrefixPublisher announces prefix invalidations to other instances
type PrefixPublisher interface {
	Publish(ctx context.Context, prefix string) error
}

// TieredStore reads through a local memory L1 into a shared L2.
// Writes go to both tiers; invalidations clear both and are broadcast so peers drop their L1.
type TieredStore struct {
	l1        *MemoryStore
	l2        Store
	publisher PrefixPublisher
	l1TTL     time.Duration
	logger    *zap.Logger
	now       func() time.Time

	l1Hits   atomic.Int64
	l2Hits   atomic.Int64
	l2Misses atomic.Int64
}

// NewTieredStore creates a tiered store. l1TTL caps how long an L2 entry lives locally.
// publisher may be nil for a single instance.
func NewTieredStore(l1 *MemoryStore, l2 Store, publisher PrefixPublisher, l1TTL time.Duration, logger *zap.Logger) *TieredStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredStore{
		l1:        l1,
		l2:        l2,
		publisher: publisher,
		l1TTL:     l1TTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Get checks L1, then L2, promoting L2 hits into L1
func (t *TieredStore) Get(ctx context.Context, key string) (*Entry, error) {
	if e, _ := t.l1.Get(ctx, key); e != nil {
		t.l1Hits.Add(1)
		return e, nil
	}

	e, err := t.l2.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if e == nil {
		t.l2Misses.Add(1)
		return nil, nil
	}
	t.l2Hits.Add(1)
	_ = t.l1.Set(ctx, key, t.local(e))
	return e, nil
}

// Set writes L2 first so L1 never holds something peers cannot see
func (t *TieredStore) Set(ctx context.Context, key string, entry *Entry) error {
	if entry == nil {
		return nil
	}
	if err := t.l2.Set(ctx, key, entry); err != nil {
		return err
	}
	return t.l1.Set(ctx, key, t.local(entry))
}

// Delete removes a key from both tiers
func (t *TieredStore) Delete(ctx context.Context, key string) error {
	_ = t.l1.Delete(ctx, key)
	if err := t.l2.Delete(ctx, key); err != nil {
		return err
	}
	t.publish(ctx, key)
	return nil
}

// DeletePrefix clears both tiers and tells peers to clear their L1
func (t *TieredStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	local, _ := t.l1.DeletePrefix(ctx, prefix)
	shared, err := t.l2.DeletePrefix(ctx, prefix)
	if err != nil {
		return local, err
	}
	t.publish(ctx, prefix)
	return shared, nil
}

// HandleInvalidation drops local entries announced by a peer
func (t *TieredStore) HandleInvalidation(msg InvalidationMessage) {
	n, _ := t.l1.DeletePrefix(context.Background(), msg.Prefix)
	t.logger.Debug("Dropped L1 entries on peer invalidation",
		zap.String("prefix", msg.Prefix),
		zap.String("origin", msg.Origin),
		zap.Int("count", n))
}

// Stats returns L1 counters plus L2 hits and misses seen through this store
func (t *TieredStore) Stats() Stats {
	l1 := t.l1.Stats()
	return Stats{
		Hits:    t.l1Hits.Load() + t.l2Hits.Load(),
		Misses:  t.l2Misses.Load(),
		Entries: l1.Entries,
	}
}

// Close stops the L1 janitor
func (t *TieredStore) Close() error {
	return t.l1.Close()
}

func (t *TieredStore) local(e *Entry) *Entry {
	if t.l1TTL <= 0 {
		return e
	}
	limit := t.now().Add(t.l1TTL)
	if e.ExpiresAt.Before(limit) {
		return e
	}
	c := *e
	c.ExpiresAt = limit
	return &c
}

func (t *TieredStore) publish(ctx context.Context, prefix string) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.Publish(ctx, prefix); err != nil {
		t.logger.Warn("Failed to broadcast cache invalidation", zap.String("prefix", prefix), zap.Error(err))
	}
}

var _ Store = (*TieredStore)(nil)
