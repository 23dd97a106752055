package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"volunteer_chat/internal/broadcast"
	"volunteer_chat/internal/config"
	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/observability"
	"volunteer_chat/internal/repository"
	apperrors "volunteer_chat/pkg/errors"
	"volunteer_chat/pkg/logger"
)

type ConversationService interface {
	// Start opens a requested conversation carrying the user's first message.
	Start(ctx context.Context, user domain.Actor, subject, body string) (*domain.Conversation, *domain.Message, error)
	Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Conversation, error)
	List(ctx context.Context, actor domain.Actor, filter domain.ConversationFilter) ([]*domain.Conversation, error)
	Accept(ctx context.Context, admin domain.Actor, id int64) (*domain.Conversation, error)
	End(ctx context.Context, admin domain.Actor, id int64) (*domain.Conversation, error)
}

type conversationService struct {
	conversationRepo repository.ConversationRepository
	audit            AuditService
	dispatcher       *broadcast.Dispatcher
	cfg              config.ChatConfig
	log              logger.Logger
}

func NewConversationService(conversationRepo repository.ConversationRepository, audit AuditService, dispatcher *broadcast.Dispatcher, cfg config.ChatConfig, log logger.Logger) ConversationService {
	return &conversationService{
		conversationRepo: conversationRepo,
		audit:            audit,
		dispatcher:       dispatcher,
		cfg:              cfg,
		log:              log,
	}
}

func (s *conversationService) Start(ctx context.Context, user domain.Actor, subject, body string) (*domain.Conversation, *domain.Message, error) {
	if user.Kind != domain.ActorUser {
		return nil, nil, apperrors.ErrForbidden
	}

	content, err := normalizeBody(body, s.cfg.MaxMessageLength)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	conv := &domain.Conversation{
		UserID:    user.ID,
		Status:    domain.ConversationRequested,
		Subject:   subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
	first := &domain.Message{
		SenderType: user.Kind,
		SenderID:   user.ID,
		Content:    content,
		Status:     domain.MessageSent,
		CreatedAt:  now,
	}

	if err := s.conversationRepo.Create(ctx, conv, first); err != nil {
		return nil, nil, err
	}

	observability.MessagesSent.WithLabelValues(string(user.Kind)).Inc()
	record(ctx, s.audit, s.log, user, &conv.ID, domain.EventTypeConversationStarted, map[string]any{"subject": subject})
	s.dispatcher.Dispatch(conv.ID, domain.EventMessageSent, domain.NewMessageSentEvent(first, nil, nil))

	s.log.Info("Conversation started", "conversation_id", conv.ID, "user_id", user.ID)

	return conv, first, nil
}

func (s *conversationService) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Conversation, error) {
	conv, err := s.conversationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.CanView(actor) {
		return nil, apperrors.ErrNotParticipant
	}
	return conv, nil
}

func (s *conversationService) List(ctx context.Context, actor domain.Actor, filter domain.ConversationFilter) ([]*domain.Conversation, error) {
	return s.conversationRepo.List(ctx, actor, filter)
}

func (s *conversationService) Accept(ctx context.Context, admin domain.Actor, id int64) (*domain.Conversation, error) {
	ctx, span := observability.Tracer().Start(ctx, "conversation.Accept")
	defer span.End()
	span.SetAttributes(attribute.Int64("conversation.id", id), attribute.Int64("admin.id", admin.ID))

	if !admin.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	conv, err := s.conversationRepo.Claim(ctx, id, admin.ID, time.Now().UTC())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	record(ctx, s.audit, s.log, admin, &conv.ID, domain.EventTypeConversationAccepted, nil)
	s.dispatcher.Dispatch(conv.ID, domain.EventConversationAccepted, domain.ConversationStatusEvent{
		ConversationID: conv.ID,
		Status:         conv.Status,
		AdminID:        conv.AdminID,
		At:             *conv.AcceptedAt,
	})

	s.log.Info("Conversation accepted", "conversation_id", conv.ID, "admin_id", admin.ID)

	return conv, nil
}

func (s *conversationService) End(ctx context.Context, admin domain.Actor, id int64) (*domain.Conversation, error) {
	ctx, span := observability.Tracer().Start(ctx, "conversation.End")
	defer span.End()
	span.SetAttributes(attribute.Int64("conversation.id", id), attribute.Int64("admin.id", admin.ID))

	if !admin.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	// The repository only ends an active thread for the admin who owns it.
	conv, err := s.conversationRepo.End(ctx, id, admin.ID, time.Now().UTC())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	previous := domain.ConversationRequested
	if conv.AcceptedAt != nil {
		previous = domain.ConversationActive
	}
	record(ctx, s.audit, s.log, admin, &conv.ID, domain.EventTypeConversationEnded, map[string]any{"previous_status": previous})
	s.dispatcher.Dispatch(conv.ID, domain.EventConversationEnded, domain.ConversationStatusEvent{
		ConversationID: conv.ID,
		Status:         conv.Status,
		AdminID:        conv.AdminID,
		At:             *conv.EndedAt,
	})

	s.log.Info("Conversation ended", "conversation_id", conv.ID, "admin_id", admin.ID)

	return conv, nil
}
