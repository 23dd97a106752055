package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"volunteer_chat/internal/domain"
	apperrors "volunteer_chat/pkg/errors"
	"volunteer_chat/pkg/logger"
)

const notificationColumns = `id, user_id, type, title, message, payload, is_read, admin_id, created_at, read_at`

type notificationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, log logger.Logger) NotificationRepository {
	return &notificationRepository{db: db, log: log}
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	n := &domain.Notification{}
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Payload, &n.IsRead, &n.AdminID, &n.CreatedAt, &n.ReadAt)
	if err != nil {
		return nil, err
	}
	if n.Payload == nil {
		n.Payload = map[string]any{}
	}
	return n, nil
}

// insertNotification is shared with the ledger and featured-project
// repositories so notifications commit with the change that caused them.
func insertNotification(ctx context.Context, q querier, n *domain.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Payload == nil {
		n.Payload = map[string]any{}
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := q.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, payload, is_read, admin_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8)
	`, n.ID, n.UserID, n.Type, n.Title, n.Message, n.Payload, n.AdminID, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if err := insertNotification(ctx, r.db, n); err != nil {
		r.log.Error("Failed to create notification", "error", err, "user_id", n.UserID, "type", n.Type)
		return err
	}
	return nil
}

func (r *notificationRepository) List(ctx context.Context, userID int64, filter domain.NotificationFilter) ([]*domain.Notification, error) {
	limit := clampLimit(filter.Limit, 20, 100)

	rows, err := r.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR is_read = false)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, userID, filter.UnreadOnly, limit, filter.Offset)
	if err != nil {
		r.log.Error("Failed to list notifications", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			r.log.Error("Failed to scan notification", "error", err)
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID,
	).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count unread notifications", "error", err, "user_id", userID)
		return 0, err
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID int64, id uuid.UUID, at time.Time) (*domain.Notification, error) {
	n, err := scanNotification(r.db.QueryRow(ctx, `
		UPDATE notifications
		SET is_read = true, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2
		RETURNING `+notificationColumns, id, userID, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotificationNotFound
		}
		r.log.Error("Failed to mark notification read", "error", err, "notification_id", id)
		return nil, err
	}
	return n, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET is_read = true, read_at = $2
		WHERE user_id = $1 AND is_read = false
	`, userID, at)
	if err != nil {
		r.log.Error("Failed to mark all notifications read", "error", err, "user_id", userID)
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
