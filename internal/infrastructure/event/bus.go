// Package event delivers domain events to in-process handlers.
package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pharmapos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BusConfig sizes the asynchronous dispatch pool
type BusConfig struct {
	Workers        int
	QueueSize      int
	HandlerTimeout time.Duration
}

// DefaultBusConfig returns the bus settings used when none are configured
func DefaultBusConfig() BusConfig {
	return BusConfig{Workers: 4, QueueSize: 256, HandlerTimeout: 10 * time.Second}
}

// Observer receives the outcome of each handler invocation
type Observer interface {
	ObserveHandled(ctx context.Context, eventType string, err error, duration time.Duration)
}

type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// InMemoryEventBus dispatches events to registered handlers.
// Before Start, and after Stop, Publish delivers synchronously. While running,
// events are queued and handled by a fixed worker pool; a full queue falls back
// to synchronous delivery so no event is dropped.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	config   BusConfig
	observer Observer
	logger   *zap.Logger

	mu      sync.RWMutex
	queue   chan envelope
	running atomic.Bool
	wg      sync.WaitGroup
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithBusConfig overrides the worker pool settings
func WithBusConfig(cfg BusConfig) BusOption {
	return func(b *InMemoryEventBus) {
		if cfg.Workers > 0 {
			b.config.Workers = cfg.Workers
		}
		if cfg.QueueSize > 0 {
			b.config.QueueSize = cfg.QueueSize
		}
		if cfg.HandlerTimeout > 0 {
			b.config.HandlerTimeout = cfg.HandlerTimeout
		}
	}
}

// WithObserver records handler outcomes, e.g. as metrics
func WithObserver(o Observer) BusOption {
	return func(b *InMemoryEventBus) {
		b.observer = o
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		config:   DefaultBusConfig(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers events to every handler registered for their type.
// Handler failures are logged, never returned to the publisher.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		if event == nil {
			continue
		}
		if !b.enqueue(ctx, event) {
			b.deliver(ctx, event)
		}
	}
	return nil
}

// enqueue hands the event to the worker pool, reporting false when the caller must deliver it
func (b *InMemoryEventBus) enqueue(ctx context.Context, event shared.DomainEvent) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.running.Load() {
		return false
	}
	select {
	case b.queue <- envelope{ctx: context.WithoutCancel(ctx), event: event}:
		return true
	default:
		b.logger.Warn("Event queue full, delivering inline",
			zap.String("event_type", event.EventType()),
			zap.Int("queue_size", b.config.QueueSize))
		return false
	}
}

// Subscribe registers a handler. Without explicit types the handler's own EventTypes are used;
// a handler with no types receives every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Event handler subscribed",
		zap.String("handler", fmt.Sprintf("%T", handler)),
		zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start launches the worker pool
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running.Load() {
		return nil
	}
	b.queue = make(chan envelope, b.config.QueueSize)
	for i := 0; i < b.config.Workers; i++ {
		b.wg.Add(1)
		go b.worker(b.queue)
	}
	b.running.Store(true)
	b.logger.Info("Event bus started",
		zap.Int("workers", b.config.Workers),
		zap.Int("queue_size", b.config.QueueSize))
	return nil
}

// Stop drains queued events and waits for the workers, bounded by ctx
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running.Load() {
		b.mu.Unlock()
		return nil
	}
	b.running.Store(false)
	close(b.queue)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus stop timed out with events pending")
		return ctx.Err()
	}
}

// Pending returns the number of queued events
func (b *InMemoryEventBus) Pending() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.queue == nil {
		return 0
	}
	return len(b.queue)
}

func (b *InMemoryEventBus) worker(queue <-chan envelope) {
	defer b.wg.Done()
	for env := range queue {
		b.deliver(env.ctx, env.event)
	}
}

func (b *InMemoryEventBus) deliver(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		hctx, cancel := context.WithTimeout(ctx, b.config.HandlerTimeout)
		start := time.Now()
		err := b.dispatchToHandler(hctx, handler, event)
		cancel()
		if b.observer != nil {
			b.observer.ObserveHandled(ctx, event.EventType(), err, time.Since(start))
		}
		if err != nil {
			b.logger.Error("Event handler failed",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.String("handler", fmt.Sprintf("%T", handler)),
				zap.Error(err))
		}
	}
}

func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
