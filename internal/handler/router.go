package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"volunteer_chat/internal/config"
	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/middleware"
	"volunteer_chat/pkg/logger"
)

// NewRouter wires every route. extra middleware (tracing) runs before auth.
func NewRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
	extra ...gin.HandlerFunc,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(extra...)
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)
	router.GET("/ready", handlers.Health.Ready)
	router.GET("/server-info", handlers.Health.ServerInfo)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sendLimit := rateLimitMiddleware.Limit(domain.RateLimitPolicy{
		Limit:  cfg.Chat.SendLimit,
		Window: cfg.Chat.SendWindow,
	})

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth())
	{
		chats := v1.Group("/chats")
		{
			chats.POST("", sendLimit, handlers.Conversation.Start)
			chats.GET("", handlers.Conversation.List)
			chats.GET("/:id", handlers.Conversation.Get)
			chats.GET("/:id/messages", handlers.Chat.GetMessages)
			chats.POST("/:id/messages", sendLimit, handlers.Chat.SendMessage)
			chats.POST("/:id/read", handlers.Chat.MarkRead)
			chats.POST("/:id/accept", authMiddleware.RequireAdmin(), handlers.Conversation.Accept)
			chats.POST("/:id/end", authMiddleware.RequireAdmin(), handlers.Conversation.End)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", handlers.Notification.List)
			notifications.GET("/unread-count", handlers.Notification.UnreadCount)
			notifications.POST("/read-all", handlers.Notification.MarkAllRead)
			notifications.POST("/:id/read", handlers.Notification.MarkRead)
		}

		points := v1.Group("/points")
		{
			points.GET("/balance", handlers.Ledger.Balance)
			points.GET("/transactions", handlers.Ledger.Transactions)
			points.POST("/redeem", handlers.Ledger.Redeem)
		}

		v1.POST("/referrals", handlers.Ledger.CreateReferral)

		admin := v1.Group("/admin")
		admin.Use(authMiddleware.RequireAdmin())
		{
			admin.GET("/chats/:id/audit", handlers.Conversation.AuditLog)
			admin.POST("/referrals/:id/approve", handlers.Ledger.ApproveReferral)
			admin.POST("/referrals/:id/reject", handlers.Ledger.RejectReferral)
			admin.POST("/notifications", handlers.Notification.Create)
			admin.POST("/featured", handlers.Admin.FeatureProject)
			admin.POST("/jobs/expire-featured", handlers.Admin.ExpireFeatured)
		}
	}

	router.GET("/ws/chats/:id", authMiddleware.RequireAuthOrQuery(), handlers.WebSocket.HandleChat)

	return router
}
