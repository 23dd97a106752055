package service

import (
	"context"
	"time"

	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/repository"
	"volunteer_chat/pkg/logger"
)

type AuditService interface {
	LogEvent(ctx context.Context, actor domain.Actor, conversationID *int64, eventType string, payload map[string]any) error
	ConversationHistory(ctx context.Context, conversationID int64) ([]*domain.AuditLog, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	log       logger.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, log logger.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		log:       log,
	}
}

func (s *auditService) LogEvent(ctx context.Context, actor domain.Actor, conversationID *int64, eventType string, payload map[string]any) error {
	if payload == nil {
		payload = make(map[string]any)
	}

	auditLog := &domain.AuditLog{
		EventTime:      time.Now().UTC(),
		ActorType:      actor.Kind,
		ActorID:        actor.ID,
		ConversationID: conversationID,
		EventType:      eventType,
		Payload:        payload,
	}

	return s.auditRepo.CreateLog(ctx, auditLog)
}

func (s *auditService) ConversationHistory(ctx context.Context, conversationID int64) ([]*domain.AuditLog, error) {
	return s.auditRepo.ListByConversation(ctx, conversationID)
}

// record writes an audit entry and only logs a failure; the audited change is already committed.
func record(ctx context.Context, audit AuditService, log logger.Logger, actor domain.Actor, conversationID *int64, eventType string, payload map[string]any) {
	if err := audit.LogEvent(ctx, actor, conversationID, eventType, payload); err != nil {
		log.Warn("Failed to write audit log", "error", err, "event_type", eventType)
	}
}
