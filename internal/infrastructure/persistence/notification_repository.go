package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/notification"
	"github.com/pharmapos/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormNotificationRepository implements notification.Repository using GORM.
// Rows with a NULL user_id are broadcasts visible to everyone.
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) visibleTo(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&notification.Notification{}).
		Where("user_id IS NULL OR user_id = ?", userID)
}

// Create inserts a notification
func (r *GormNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return translateError(r.db.WithContext(ctx).Create(n).Error)
}

// FindByID finds a live notification
func (r *GormNotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	var n notification.Notification
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &n, nil
}

// FindForUser lists notifications visible to the user
func (r *GormNotificationRepository) FindForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]notification.Notification, error) {
	var list []notification.Notification
	query := r.applyFilter(r.visibleTo(ctx, userID), filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, NotificationSortFields, "created_at")).
		Offset(filter.Offset())
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
	}
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// CountForUser counts notifications visible to the user
func (r *GormNotificationRepository) CountForUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.visibleTo(ctx, userID), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindSince returns notifications created in (after, until], oldest first
func (r *GormNotificationRepository) FindSince(ctx context.Context, userID uuid.UUID, after, until time.Time, limit int) ([]notification.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []notification.Notification
	if err := r.visibleTo(ctx, userID).
		Where("created_at > ? AND created_at <= ?", after.UTC(), until.UTC()).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// CountUnread counts unread notifications visible to the user
func (r *GormNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.visibleTo(ctx, userID).Where("is_read = ?", false).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead persists the read flag
func (r *GormNotificationRepository) MarkRead(ctx context.Context, n *notification.Notification) error {
	result := r.db.WithContext(ctx).Model(&notification.Notification{}).
		Where("id = ?", n.ID).
		Updates(map[string]any{"is_read": true, "read_at": n.ReadAt, "updated_at": n.UpdatedAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification visible to the user as read
func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	result := r.visibleTo(ctx, userID).
		Where("is_read = ?", false).
		Updates(map[string]any{"is_read": true, "read_at": at.UTC(), "updated_at": at.UTC()})
	return result.RowsAffected, result.Error
}

// Delete soft-deletes a notification
func (r *GormNotificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&notification.Notification{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteReadForUser soft-deletes read notifications addressed to the user.
// Broadcasts stay in place since other users may not have read them.
func (r *GormNotificationRepository) DeleteReadForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ?", userID, true).
		Delete(&notification.Notification{})
	return result.RowsAffected, result.Error
}

// ExistsByDedupKey reports whether an alert with the key was raised after since
func (r *GormNotificationRepository) ExistsByDedupKey(ctx context.Context, key string, since time.Time) (bool, error) {
	if key == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Unscoped().Model(&notification.Notification{}).
		Where("dedup_key = ? AND created_at > ?", key, since.UTC()).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// PurgeReadBefore permanently removes read or deleted notifications older than cutoff
func (r *GormNotificationRepository) PurgeReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().
		Where("created_at < ? AND (is_read = ? OR deleted_at IS NOT NULL)", cutoff.UTC(), true).
		Delete(&notification.Notification{})
	return result.RowsAffected, result.Error
}

func (r *GormNotificationRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "type":
			query = query.Where("type = ?", value)
		case "priority":
			query = query.Where("priority = ?", value)
		case "is_read":
			query = query.Where("is_read = ?", value)
		case "since":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at > ?", t.UTC())
			}
		}
	}
	return query
}

// Ensure GormNotificationRepository implements notification.Repository
var _ notification.Repository = (*GormNotificationRepository)(nil)
