package notification

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// Type classifies what a notification is about
type Type string

const (
	TypeLowStock   Type = "low_stock"
	TypeOutOfStock Type = "out_of_stock"
	TypeExpiring   Type = "expiring"
	TypeExpired    Type = "expired"
	TypeSale       Type = "sale"
	TypeSystem     Type = "system"
)

// IsValid checks if the notification type is known
func (t Type) IsValid() bool {
	switch t {
	case TypeLowStock, TypeOutOfStock, TypeExpiring, TypeExpired, TypeSale, TypeSystem:
		return true
	}
	return false
}

// Priority orders notifications for display
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValid checks if the priority is known
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Notification is an alert shown to staff. A nil UserID makes it visible to everyone.
type Notification struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Type       Type           `gorm:"type:varchar(20);not null;index" json:"type"`
	Priority   Priority       `gorm:"type:varchar(20);not null;default:'normal'" json:"priority"`
	Title      string         `gorm:"type:varchar(200);not null" json:"title"`
	Message    string         `gorm:"type:text;not null" json:"message"`
	EntityType string         `gorm:"type:varchar(50)" json:"entity_type,omitempty"`
	EntityID   *uuid.UUID     `gorm:"type:uuid" json:"entity_id,omitempty"`
	DedupKey   string         `gorm:"type:varchar(200);index" json:"-"`
	IsRead     bool           `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt     *time.Time     `json:"read_at,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

// New creates an unread notification
func New(nType Type, priority Priority, title, message string) (*Notification, error) {
	if !nType.IsValid() {
		return nil, shared.NewDomainError("INVALID_NOTIFICATION_TYPE", "Unknown notification type")
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.IsValid() {
		return nil, shared.NewDomainError("INVALID_PRIORITY", "Unknown notification priority")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Notification title cannot be empty")
	}
	if len(title) > 200 {
		return nil, shared.NewDomainError("INVALID_TITLE", "Notification title cannot exceed 200 characters")
	}
	if strings.TrimSpace(message) == "" {
		return nil, shared.NewDomainError("INVALID_MESSAGE", "Notification message cannot be empty")
	}

	now := time.Now()
	return &Notification{
		ID:        uuid.New(),
		Type:      nType,
		Priority:  priority,
		Title:     title,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ForUser restricts the notification to a single recipient
func (n *Notification) ForUser(userID uuid.UUID) *Notification {
	n.UserID = &userID
	return n
}

// About links the notification to the entity it describes
func (n *Notification) About(entityType string, entityID uuid.UUID) *Notification {
	n.EntityType = entityType
	n.EntityID = &entityID
	return n
}

// WithDedupKey sets the key used to suppress repeats of the same alert
func (n *Notification) WithDedupKey(key string) *Notification {
	n.DedupKey = key
	return n
}

// MarkRead marks the notification as read, idempotently
func (n *Notification) MarkRead(at time.Time) {
	if n.IsRead {
		return
	}
	n.IsRead = true
	n.ReadAt = &at
	n.UpdatedAt = at
}

// VisibleTo reports whether a user may see the notification
func (n *Notification) VisibleTo(userID uuid.UUID) bool {
	return n.UserID == nil || *n.UserID == userID
}
