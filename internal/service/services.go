package service

import (
	"volunteer_chat/internal/broadcast"
	"volunteer_chat/internal/config"
	"volunteer_chat/internal/repository"
	"volunteer_chat/pkg/logger"
)

type Services struct {
	Conversation ConversationService
	Chat         ChatService
	Notification NotificationService
	Ledger       LedgerService
	Featured     FeaturedService
	RateLimit    RateLimitService
	Audit        AuditService
}

func NewServices(repos *repository.Repositories, dispatcher *broadcast.Dispatcher, cfg *config.Config, log logger.Logger) *Services {
	audit := NewAuditService(repos.Audit, log)
	notifications := NewNotificationService(repos.Notification, log)

	services := &Services{
		Conversation: NewConversationService(repos.Conversation, audit, dispatcher, cfg.Chat, log),
		Chat:         NewChatService(repos.Conversation, repos.Message, repos.Profile, notifications, dispatcher, cfg.Chat, log),
		Notification: notifications,
		Ledger:       NewLedgerService(repos.Ledger, notifications, audit, cfg.Ledger, log),
		Featured:     NewFeaturedService(repos.Featured, notifications, audit, log),
		RateLimit:    NewRateLimitService(repos.RateLimit, log),
		Audit:        audit,
	}

	log.Info("Services initialized")

	return services
}
