package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/tc-insight-api/internal/models"
)

// NotificationStore is the persistence surface for notification reads.
type NotificationStore interface {
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, recipientID string) (int, error)
}

// NotificationService exposes the notification inbox.
type NotificationService struct {
	repo   NotificationStore
	logger *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(repo NotificationStore, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, logger: logger}
}

// List retrieves notifications matching the filter, newest first.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	return s.repo.List(ctx, filter)
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	return s.repo.MarkRead(ctx, id)
}

// MarkAllRead flags every unread notification for the recipient and returns
// the number updated.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	count, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("notifications marked read",
		zap.String("recipient_id", recipientID),
		zap.Int("count", count))
	return count, nil
}
