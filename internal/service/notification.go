package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/observability"
	"volunteer_chat/internal/repository"
	"volunteer_chat/pkg/logger"
)

// NotifyInput describes one in-app notification for one recipient.
type NotifyInput struct {
	UserID  int64                   `json:"user_id" validate:"required,gt=0"`
	Type    domain.NotificationType `json:"type" validate:"required,notification_type"`
	Title   string                  `json:"title" validate:"required,max=255"`
	Message string                  `json:"message" validate:"required,max=2000"`
	Payload map[string]any          `json:"payload"`
	AdminID *int64                  `json:"admin_id,omitempty" validate:"omitempty,gt=0"`
}

type NotificationService interface {
	Notify(ctx context.Context, in NotifyInput) (*domain.Notification, error)
	// Build validates the input and returns an unsaved notification, for
	// repositories that insert it inside their own transaction.
	Build(in NotifyInput) (*domain.Notification, error)
	List(ctx context.Context, userID int64, filter domain.NotificationFilter) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID int64, id uuid.UUID) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID int64) (int, error)
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
	log              logger.Logger
}

func NewNotificationService(notificationRepo repository.NotificationRepository, log logger.Logger) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		log:              log,
	}
}

func (s *notificationService) Build(in NotifyInput) (*domain.Notification, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	payload := in.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	return &domain.Notification{
		ID:        uuid.New(),
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Payload:   payload,
		AdminID:   in.AdminID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *notificationService) Notify(ctx context.Context, in NotifyInput) (*domain.Notification, error) {
	n, err := s.Build(in)
	if err != nil {
		return nil, err
	}

	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, err
	}

	observability.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	s.log.Debug("Notification created", "user_id", n.UserID, "type", n.Type)

	return n, nil
}

func (s *notificationService) List(ctx context.Context, userID int64, filter domain.NotificationFilter) ([]*domain.Notification, error) {
	return s.notificationRepo.List(ctx, userID, filter)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.notificationRepo.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, userID int64, id uuid.UUID) (*domain.Notification, error) {
	return s.notificationRepo.MarkRead(ctx, userID, id, time.Now().UTC())
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	return s.notificationRepo.MarkAllRead(ctx, userID, time.Now().UTC())
}
