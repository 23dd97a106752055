package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

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

type SendMessageInput struct {
	ConversationID int64
	Sender         domain.Actor
	Content        string
	ReplyToID      *int64
	// ClientID is the sender-generated id of an optimistic entry. Re-sending
	// with the same value returns the stored message instead of a duplicate.
	ClientID *string
}

type ChatService interface {
	SendMessage(ctx context.Context, in SendMessageInput) (*domain.Message, error)
	GetMessages(ctx context.Context, conversationID int64, actor domain.Actor, afterID int64, limit int) ([]*domain.Message, error)
	// MarkRead marks every counterpart message created at or before ts as read.
	// A zero ts means now; a ts in the future is clamped to now.
	MarkRead(ctx context.Context, conversationID int64, reader domain.Actor, ts time.Time) (*domain.ReadReceipt, error)
}

type chatService struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	profileRepo      repository.ProfileRepository
	notifications    NotificationService
	dispatcher       *broadcast.Dispatcher
	cfg              config.ChatConfig
	log              logger.Logger
}

func NewChatService(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	profileRepo repository.ProfileRepository,
	notifications NotificationService,
	dispatcher *broadcast.Dispatcher,
	cfg config.ChatConfig,
	log logger.Logger,
) ChatService {
	return &chatService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		profileRepo:      profileRepo,
		notifications:    notifications,
		dispatcher:       dispatcher,
		cfg:              cfg,
		log:              log,
	}
}

func normalizeBody(body string, max int) (string, error) {
	content := strings.TrimSpace(body)
	if content == "" {
		return "", apperrors.ErrEmptyMessage
	}
	if max > 0 && utf8.RuneCountInString(content) > max {
		return "", apperrors.ErrMessageTooLong
	}
	return content, nil
}

func (s *chatService) SendMessage(ctx context.Context, in SendMessageInput) (*domain.Message, error) {
	ctx, span := observability.Tracer().Start(ctx, "chat.SendMessage")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("conversation.id", in.ConversationID),
		attribute.String("sender", in.Sender.String()),
	)

	content, err := normalizeBody(in.Content, s.cfg.MaxMessageLength)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversationRepo.GetByID(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.CanView(in.Sender) {
		return nil, apperrors.ErrNotParticipant
	}
	if conv.IsClosed() {
		return nil, apperrors.ErrConversationClosed
	}
	if !conv.IsParticipant(in.Sender) {
		return nil, apperrors.ErrNotParticipant
	}

	message := &domain.Message{
		ConversationID: in.ConversationID,
		SenderType:     in.Sender.Kind,
		SenderID:       in.Sender.ID,
		Content:        content,
		ReplyToID:      in.ReplyToID,
		ClientID:       in.ClientID,
		Status:         domain.MessageSent,
		CreatedAt:      time.Now().UTC(),
	}

	// The repository re-checks the status under a row lock, so an End that
	// lands after the read above still yields ErrConversationClosed.
	created, err := s.messageRepo.Create(ctx, message)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !created {
		s.log.Debug("Duplicate send resolved to stored message", "message_id", message.ID, "conversation_id", message.ConversationID)
		return message, nil
	}

	observability.MessagesSent.WithLabelValues(string(message.SenderType)).Inc()
	s.dispatcher.Dispatch(message.ConversationID, domain.EventMessageSent,
		domain.NewMessageSentEvent(message, s.senderProfile(ctx, in.Sender), s.replySnapshot(ctx, message.ReplyToID)))

	if in.Sender.IsAdmin() {
		if _, err := s.notifications.Notify(ctx, ChatMessageReceived(conv.UserID, message)); err != nil {
			s.log.Warn("Failed to notify user of admin reply", "error", err, "conversation_id", conv.ID)
		}
	}

	return message, nil
}

// senderProfile is best-effort; events go out without it if the lookup fails.
func (s *chatService) senderProfile(ctx context.Context, actor domain.Actor) *domain.ActorProfile {
	profile, err := s.profileRepo.Lookup(ctx, actor)
	if err != nil {
		s.log.Warn("Failed to load sender profile", "error", err, "actor", actor.String())
		return nil
	}
	return profile
}

func (s *chatService) replySnapshot(ctx context.Context, replyToID *int64) *domain.ReplySnapshot {
	if replyToID == nil {
		return nil
	}
	target, err := s.messageRepo.GetByID(ctx, *replyToID)
	if err != nil {
		s.log.Warn("Failed to load reply target", "error", err, "message_id", *replyToID)
		return nil
	}
	return target.Snapshot()
}

func (s *chatService) GetMessages(ctx context.Context, conversationID int64, actor domain.Actor, afterID int64, limit int) ([]*domain.Message, error) {
	conv, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.CanView(actor) {
		return nil, apperrors.ErrNotParticipant
	}

	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}

	return s.messageRepo.List(ctx, domain.MessageQuery{
		ConversationID: conversationID,
		AfterID:        afterID,
		Limit:          limit,
	})
}

func (s *chatService) MarkRead(ctx context.Context, conversationID int64, reader domain.Actor, ts time.Time) (*domain.ReadReceipt, error) {
	ctx, span := observability.Tracer().Start(ctx, "chat.MarkRead")
	defer span.End()
	span.SetAttributes(attribute.Int64("conversation.id", conversationID), attribute.String("reader", reader.String()))

	conv, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(reader) {
		return nil, apperrors.ErrNotParticipant
	}

	now := time.Now().UTC()
	if ts.IsZero() || ts.After(now) {
		ts = now
	}
	ts = ts.UTC()

	updated, err := s.messageRepo.MarkRead(ctx, conversationID, domain.Counterpart(reader.Kind), ts, now)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	observability.MessagesRead.Add(float64(updated))
	s.dispatcher.Dispatch(conversationID, domain.EventMessagesRead, domain.MessagesReadEvent{
		ConversationID: conversationID,
		Timestamp:      ts,
		ReaderType:     reader.Kind,
		ReaderID:       reader.ID,
	})

	return &domain.ReadReceipt{
		ConversationID: conversationID,
		Reader:         reader,
		Timestamp:      ts,
		Updated:        updated,
	}, nil
}
