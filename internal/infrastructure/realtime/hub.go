// Package realtime fans notifications out to connected SSE and WebSocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/notification"
	"go.uber.org/zap"
)

// Stream event names
const (
	EventConnected    = "connected"
	EventNotification = "notification"
	EventHeartbeat    = "heartbeat"
)

const clientBufferSize = 64

// ErrTooManyClients is returned by Register when the hub is full
var ErrTooManyClients = errors.New("maximum number of realtime connections reached")

// Message is one event written to a client stream
type Message struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// Client is one connected stream. Messages arrive on C until Done is closed.
type Client struct {
	ID          string
	UserID      uuid.UUID
	ConnectedAt time.Time

	ch      chan Message
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

// C returns the client's message channel
func (c *Client) C() <-chan Message {
	return c.ch
}

// Done is closed when the hub disconnects the client
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Dropped returns the number of messages skipped because the client was slow
func (c *Client) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// send never blocks; a full buffer drops the message for this client only
func (c *Client) send(msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.ch <- msg:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// HubConfig configures a Hub
type HubConfig struct {
	Heartbeat  time.Duration
	MaxClients int
}

// Hub tracks connected clients and delivers notifications to them
type Hub struct {
	clients sync.Map // client id -> *Client
	count   atomic.Int64
	config  HubConfig
	logger  *zap.Logger
	now     func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
}

// NewHub creates a new Hub
func NewHub(config HubConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Heartbeat <= 0 {
		config.Heartbeat = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{config: config, logger: logger, now: time.Now, ctx: ctx, cancel: cancel}
}

// Start begins sending heartbeats
func (h *Hub) Start() {
	if !h.started.CompareAndSwap(false, true) {
		return
	}
	h.wg.Add(1)
	go h.heartbeatLoop()
	h.logger.Info("Realtime hub started", zap.Duration("heartbeat", h.config.Heartbeat))
}

// Stop disconnects every client and stops the heartbeat
func (h *Hub) Stop() {
	h.cancel()
	h.clients.Range(func(_, v any) bool {
		v.(*Client).close()
		return true
	})
	h.wg.Wait()
	h.logger.Info("Realtime hub stopped")
}

// Register adds a client for userID and queues its connected event
func (h *Hub) Register(userID uuid.UUID) (*Client, error) {
	if h.ctx.Err() != nil {
		return nil, errors.New("realtime hub is stopped")
	}
	if n := h.count.Add(1); h.config.MaxClients > 0 && n > int64(h.config.MaxClients) {
		h.count.Add(-1)
		return nil, ErrTooManyClients
	}
	c := &Client{
		ID:          uuid.NewString(),
		UserID:      userID,
		ConnectedAt: h.now(),
		ch:          make(chan Message, clientBufferSize),
		done:        make(chan struct{}),
	}
	c.send(h.message(EventConnected, "", map[string]any{
		"client_id": c.ID,
		"timestamp": c.ConnectedAt.Unix(),
	}))
	h.clients.Store(c.ID, c)
	h.logger.Debug("Realtime client connected", zap.String("client_id", c.ID), zap.String("user_id", userID.String()))
	return c, nil
}

// Unregister removes a client
func (h *Hub) Unregister(c *Client) {
	if _, loaded := h.clients.LoadAndDelete(c.ID); loaded {
		h.count.Add(-1)
		c.close()
		h.logger.Debug("Realtime client disconnected",
			zap.String("client_id", c.ID),
			zap.Int64("dropped", c.Dropped()))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Deliver sends n to every client allowed to see it and returns the number of recipients.
// Notifications without a user go to everyone.
func (h *Hub) Deliver(n *notification.Notification) int {
	msg := h.message(EventNotification, n.ID.String(), n)
	delivered := 0
	h.clients.Range(func(_, v any) bool {
		c := v.(*Client)
		if n.UserID != nil && *n.UserID != c.UserID {
			return true
		}
		if c.send(msg) {
			delivered++
		} else {
			h.logger.Warn("Realtime client too slow, dropping notification", zap.String("client_id", c.ID))
		}
		return true
	})
	return delivered
}

func (h *Hub) heartbeatLoop() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.config.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			msg := h.message(EventHeartbeat, "", map[string]int64{"timestamp": h.now().Unix()})
			h.clients.Range(func(_, v any) bool {
				v.(*Client).send(msg)
				return true
			})
		}
	}
}

func (h *Hub) message(event, id string, payload any) Message {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to encode realtime payload", zap.String("event", event), zap.Error(err))
		data = []byte("{}")
	}
	return Message{Event: event, ID: id, Data: data}
}
