package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tc-insight-api/internal/models"
	appErrors "github.com/noah-isme/tc-insight-api/pkg/errors"
)

// NotificationRepository persists UI notifications. Rows are append-only
// apart from the read flag.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository instantiates the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, recipient_id, title, message, kind, read, action_url,
        trigger_kind, entity_kind, entity_id, created_at`

// Create inserts a new notification.
func (r *NotificationRepository) Create(ctx context.Context, notification models.Notification) (*models.Notification, error) {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	notification.CreatedAt = time.Now().UTC()

	const insert = `INSERT INTO notifications (` + notificationColumns + `)
        VALUES (:id, :recipient_id, :title, :message, :kind, :read, :action_url,
                :trigger_kind, :entity_kind, :entity_id, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, insert, notification); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &notification, nil
}

// ExistsSince reports whether an identical (recipient, trigger, entity)
// notification was created at or after the cutoff. Used for the alert-storm
// cool-down.
func (r *NotificationRepository) ExistsSince(ctx context.Context, recipientID string, trigger models.TriggerKind, entityKind models.EntityKind, entityID string, cutoff time.Time) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM notifications
        WHERE recipient_id = $1 AND trigger_kind = $2 AND entity_kind = $3 AND entity_id = $4 AND created_at >= $5)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, recipientID, trigger, entityKind, entityID, cutoff); err != nil {
		return false, fmt.Errorf("query notification cooldown: %w", err)
	}
	return exists, nil
}

// List retrieves notifications matching the filter, newest first.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	var where strings.Builder
	where.WriteString(" WHERE 1=1")
	var args []interface{}
	if filter.RecipientID != "" {
		args = append(args, filter.RecipientID)
		where.WriteString(fmt.Sprintf(" AND recipient_id = $%d", len(args)))
	}
	if filter.Unread != nil {
		args = append(args, !*filter.Unread)
		where.WriteString(fmt.Sprintf(" AND read = $%d", len(args)))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications"+where.String(), args...); err != nil {
		return nil, nil, fmt.Errorf("count notifications: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := "SELECT " + notificationColumns + " FROM notifications" + where.String() +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, nil, fmt.Errorf("query notifications: %w", err)
	}
	return notifications, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// MarkRead flags a single notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("notification update result: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification for a recipient as read and
// returns the number updated.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND read = FALSE`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("notification update result: %w", err)
	}
	return int(affected), nil
}
