package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/notification"
	"github.com/pharmapos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	pollLimit        = 100
	pollDefaultSince = 24 * time.Hour
	// rows younger than this are left for the next poll so inserts still in flight are not skipped
	pollSettle = 5 * time.Second
)

// Broadcaster pushes freshly created notifications to connected realtime clients
type Broadcaster interface {
	Broadcast(ctx context.Context, n *notification.Notification) error
}

// ServiceConfig holds notification settings
type ServiceConfig struct {
	PollIntervalSeconds int
	DedupWindow         time.Duration
	Retention           time.Duration
}

// NotificationService handles the notification center
type NotificationService struct {
	repo        notification.Repository
	broadcaster Broadcaster
	config      ServiceConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewNotificationService creates a new NotificationService. A nil broadcaster disables realtime delivery.
func NewNotificationService(repo notification.Repository, broadcaster Broadcaster, config ServiceConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PollIntervalSeconds <= 0 {
		config.PollIntervalSeconds = 60
	}
	if config.DedupWindow <= 0 {
		config.DedupWindow = 24 * time.Hour
	}
	if config.Retention <= 0 {
		config.Retention = 30 * 24 * time.Hour
	}
	return &NotificationService{
		repo:        repo,
		broadcaster: broadcaster,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// List retrieves a page of notifications visible to the user, newest first
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]NotificationResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
	if filter.Type != "" {
		domainFilter.Filters["type"] = filter.Type
	}
	if filter.Priority != "" {
		domainFilter.Filters["priority"] = filter.Priority
	}
	if filter.IsRead != nil {
		domainFilter.Filters["is_read"] = *filter.IsRead
	}
	if filter.Since != nil {
		domainFilter.Filters["since"] = *filter.Since
	}

	list, err := s.repo.FindForUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountForUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return toResponses(list), total, nil
}

// Poll returns notifications created after since together with the cursor for the next call.
// A missing cursor returns the last day of notifications. When more than one page is
// pending the cursor stops at the last delivered row and HasMore is set.
func (s *NotificationService) Poll(ctx context.Context, userID uuid.UUID, since *time.Time) (*PollResponse, error) {
	now := s.now()
	until := now.Add(-pollSettle)
	from := now.Add(-pollDefaultSince)
	if since != nil {
		from = *since
	}

	resp := &PollResponse{
		Notifications:       []NotificationResponse{},
		ServerTime:          from,
		PollIntervalSeconds: s.config.PollIntervalSeconds,
	}
	if until.After(from) {
		list, err := s.repo.FindSince(ctx, userID, from, until, pollLimit+1)
		if err != nil {
			return nil, err
		}
		page, cursor, more := pollPage(list, pollLimit, until)
		resp.Notifications = toResponses(page)
		resp.ServerTime = cursor
		resp.HasMore = more
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp.UnreadCount = unread
	return resp, nil
}

// pollPage cuts list to limit rows. A full page ends at its last row, minus any
// trailing rows sharing a timestamp with the first row left out.
func pollPage(list []notification.Notification, limit int, until time.Time) ([]notification.Notification, time.Time, bool) {
	if len(list) <= limit {
		return list, until, false
	}
	next := list[limit].CreatedAt
	cut := limit
	for cut > 0 && list[cut-1].CreatedAt.Equal(next) {
		cut--
	}
	if cut == 0 {
		cut = limit
	}
	page := list[:cut]
	return page, page[len(page)-1].CreatedAt, true
}

// UnreadCount returns the number of unread notifications visible to the user
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one notification as read
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) (*NotificationResponse, error) {
	n, err := s.visible(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !n.IsRead {
		n.MarkRead(s.now())
		if err := s.repo.MarkRead(ctx, n); err != nil {
			return nil, err
		}
	}
	resp := ToNotificationResponse(n)
	return &resp, nil
}

// MarkAllRead marks every visible notification as read and returns how many changed
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

// Delete soft-deletes a notification visible to the user
func (s *NotificationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.visible(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// DeleteAllRead removes the user's own read notifications. Broadcasts stay for other users.
func (s *NotificationService) DeleteAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.DeleteReadForUser(ctx, userID)
}

// Create stores an admin or system notification and pushes it to realtime clients
func (s *NotificationService) Create(ctx context.Context, req CreateNotificationRequest) (*NotificationResponse, error) {
	nType := notification.Type(req.Type)
	if nType == "" {
		nType = notification.TypeSystem
	}
	n, err := notification.New(nType, notification.Priority(req.Priority), req.Title, req.Message)
	if err != nil {
		return nil, err
	}
	if req.UserID != nil {
		n.ForUser(*req.UserID)
	}
	if _, err := s.Notify(ctx, n); err != nil {
		return nil, err
	}
	resp := ToNotificationResponse(n)
	return &resp, nil
}

// Notify stores a notification and broadcasts it. A notification whose dedup key was
// already used within the dedup window is dropped and Notify returns false.
func (s *NotificationService) Notify(ctx context.Context, n *notification.Notification) (bool, error) {
	now := s.now()
	if n.DedupKey != "" {
		exists, err := s.repo.ExistsByDedupKey(ctx, n.DedupKey, now.Add(-s.config.DedupWindow))
		if err != nil {
			return false, err
		}
		if exists {
			s.logger.Debug("Duplicate alert suppressed", zap.String("dedup_key", n.DedupKey))
			return false, nil
		}
	}
	n.CreatedAt = now
	n.UpdatedAt = now
	if err := s.repo.Create(ctx, n); err != nil {
		return false, err
	}

	if s.broadcaster != nil {
		if err := s.broadcaster.Broadcast(ctx, n); err != nil {
			s.logger.Warn("Failed to broadcast notification",
				zap.String("notification_id", n.ID.String()),
				zap.Error(err),
			)
		}
	}
	return true, nil
}

// PurgeExpired hard-deletes read notifications older than the retention period
func (s *NotificationService) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.config.Retention)
	purged, err := s.repo.PurgeReadBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.logger.Info("Purged read notifications", zap.Int64("count", purged), zap.Time("cutoff", cutoff))
	}
	return purged, nil
}

func (s *NotificationService) visible(ctx context.Context, userID, id uuid.UUID) (*notification.Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !n.VisibleTo(userID) {
		return nil, shared.ErrNotFound
	}
	return n, nil
}

func toResponses(list []notification.Notification) []NotificationResponse {
	out := make([]NotificationResponse, len(list))
	for i := range list {
		out[i] = ToNotificationResponse(&list[i])
	}
	return out
}
