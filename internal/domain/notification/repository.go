package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/shared"
)

// Repository defines the interface for notification persistence.
// All queries are scoped to notifications visible to the given user.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	FindForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Notification, error)
	CountForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) (int64, error)
	// FindSince returns notifications created in (after, until], oldest first
	FindSince(ctx context.Context, userID uuid.UUID, after, until time.Time, limit int) ([]Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, n *Notification) error
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteReadForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// ExistsByDedupKey reports whether a notification with the key was created after since
	ExistsByDedupKey(ctx context.Context, key string, since time.Time) (bool, error)

	// PurgeReadBefore hard-deletes read notifications older than the cutoff
	PurgeReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
