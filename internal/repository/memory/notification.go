package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"volunteer_chat/internal/domain"
	apperrors "volunteer_chat/pkg/errors"
)

type NotificationRepository struct {
	s *Store
}

// insertNotification requires s.mu held.
func (s *Store) insertNotification(n *domain.Notification) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Payload == nil {
		n.Payload = map[string]any{}
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.IsRead = false
	n.ReadAt = nil
	s.notifications[n.ID] = copyNotification(n)
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.insertNotification(n)
	return nil
}

func (r *NotificationRepository) List(ctx context.Context, userID int64, filter domain.NotificationFilter) ([]*domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Notification, 0)
	for _, n := range r.s.notifications {
		if n.UserID != userID || (filter.UnreadOnly && n.IsRead) {
			continue
		}
		out = append(out, copyNotification(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset, 20, 100), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID int64, id uuid.UUID, at time.Time) (*domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return nil, apperrors.ErrNotificationNotFound
	}
	if !n.IsRead {
		n.IsRead = true
		n.ReadAt = ptr(at)
	}
	return copyNotification(n), nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	updated := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = ptr(at)
			updated++
		}
	}
	return updated, nil
}
