package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/notification"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis channel notifications are fanned out on
const DefaultChannel = "pharmapos:notifications"

// LocalBroadcaster delivers notifications to this instance's hub only
type LocalBroadcaster struct {
	hub *Hub
}

// NewLocalBroadcaster creates a LocalBroadcaster
func NewLocalBroadcaster(hub *Hub) *LocalBroadcaster {
	return &LocalBroadcaster{hub: hub}
}

// Broadcast implements notification.Broadcaster
func (b *LocalBroadcaster) Broadcast(_ context.Context, n *notification.Notification) error {
	b.hub.Deliver(n)
	return nil
}

type envelope struct {
	Origin       string                     `json:"origin"`
	Notification *notification.Notification `json:"notification"`
}

// RedisBroadcaster delivers locally and publishes to Redis so every other instance
// delivers to its own clients
type RedisBroadcaster struct {
	client  redis.UniversalClient
	hub     *Hub
	channel string
	origin  string
	logger  *zap.Logger
}

// NewRedisBroadcaster creates a RedisBroadcaster. The caller owns the client.
func NewRedisBroadcaster(client redis.UniversalClient, hub *Hub, channel string, logger *zap.Logger) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroadcaster{
		client:  client,
		hub:     hub,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Broadcast implements notification.Broadcaster
func (b *RedisBroadcaster) Broadcast(ctx context.Context, n *notification.Notification) error {
	b.hub.Deliver(n)

	data, err := json.Marshal(envelope{Origin: b.origin, Notification: n})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Run relays notifications published by other instances to the local hub until ctx ends.
// It resubscribes after connection loss.
func (b *RedisBroadcaster) Run(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		err := b.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		b.logger.Warn("Notification subscription lost, retrying",
			zap.String("channel", b.channel),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (b *RedisBroadcaster) listen(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	b.logger.Info("Subscribed to notification channel", zap.String("channel", b.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("channel closed")
			}
			b.relay(msg.Payload)
		}
	}
}

func (b *RedisBroadcaster) relay(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil || env.Notification == nil {
		b.logger.Error("Dropping malformed notification message", zap.String("payload", payload), zap.Error(err))
		return
	}
	if env.Origin == b.origin {
		return
	}
	b.hub.Deliver(env.Notification)
}
