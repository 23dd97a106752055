package handler

import (
	"volunteer_chat/internal/broadcast"
	"volunteer_chat/internal/config"
	"volunteer_chat/internal/service"
	"volunteer_chat/pkg/logger"
)

type Handlers struct {
	Health       *HealthHandler
	Conversation *ConversationHandler
	Chat         *ChatHandler
	Notification *NotificationHandler
	Ledger       *LedgerHandler
	Admin        *AdminHandler
	WebSocket    *WebSocketHandler
}

func NewHandlers(
	services *service.Services,
	dispatcher *broadcast.Dispatcher,
	expiry ExpiryRunner,
	checks map[string]HealthCheck,
	cfg *config.Config,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(cfg, checks),
		Conversation: NewConversationHandler(services.Conversation, services.Audit, log),
		Chat:         NewChatHandler(services.Chat, log),
		Notification: NewNotificationHandler(services.Notification, log),
		Ledger:       NewLedgerHandler(services.Ledger, log),
		Admin:        NewAdminHandler(services.Featured, expiry, log),
		WebSocket:    NewWebSocketHandler(services.Conversation, dispatcher, cfg.Server.AllowedOrigins, cfg.Chat.WebSocketPingTime, log),
	}
}
