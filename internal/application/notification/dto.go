package notification

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/notification"
)

// ListFilter represents filter options for a user's notification list
type ListFilter struct {
	Type     string     `form:"type" binding:"omitempty,oneof=low_stock out_of_stock expiring expired sale system"`
	Priority string     `form:"priority" binding:"omitempty,oneof=low normal high critical"`
	IsRead   *bool      `form:"is_read"`
	Since    *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Page     int        `form:"page" binding:"min=0"`
	PageSize int        `form:"page_size" binding:"min=0,max=100"`
}

// CreateNotificationRequest represents an admin or system broadcast
type CreateNotificationRequest struct {
	UserID   *uuid.UUID `json:"user_id"`
	Type     string     `json:"type" binding:"omitempty,oneof=low_stock out_of_stock expiring expired sale system"`
	Priority string     `json:"priority" binding:"omitempty,oneof=low normal high critical"`
	Title    string     `json:"title" binding:"required,min=1,max=200"`
	Message  string     `json:"message" binding:"required,min=1,max=2000"`
}

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID         uuid.UUID  `json:"id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	Type       string     `json:"type"`
	Priority   string     `json:"priority"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	EntityType string     `json:"entity_type,omitempty"`
	EntityID   *uuid.UUID `json:"entity_id,omitempty"`
	IsRead     bool       `json:"is_read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToNotificationResponse converts a domain notification to a response
func ToNotificationResponse(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID,
		UserID:     n.UserID,
		Type:       string(n.Type),
		Priority:   string(n.Priority),
		Title:      n.Title,
		Message:    n.Message,
		EntityType: n.EntityType,
		EntityID:   n.EntityID,
		IsRead:     n.IsRead,
		ReadAt:     n.ReadAt,
		CreatedAt:  n.CreatedAt,
	}
}

// PollResponse carries new notifications and the cursor for the next poll.
// ServerTime is the value to send back as since.
type PollResponse struct {
	Notifications       []NotificationResponse `json:"notifications"`
	UnreadCount         int64                  `json:"unread_count"`
	ServerTime          time.Time              `json:"server_time"`
	HasMore             bool                   `json:"has_more"`
	PollIntervalSeconds int                    `json:"poll_interval_seconds"`
}

// UnreadCountResponse is returned by the unread badge endpoint
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// AffectedResponse reports how many rows a bulk operation touched
type AffectedResponse struct {
	Affected int64 `json:"affected"`
}
