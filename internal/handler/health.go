package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"volunteer_chat/internal/config"
)

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	service string
	storage string
	chat    config.ChatConfig
	checks  map[string]HealthCheck
}

func NewHealthHandler(cfg *config.Config, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		service: cfg.Telemetry.ServiceName,
		storage: cfg.Storage.Driver,
		chat:    cfg.Chat,
		checks:  checks,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.service,
		"storage": h.storage,
	})
}

// Ready runs every dependency check; any failure makes the instance unready.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(status, gin.H{"checks": results})
}

// ServerInfo tells clients how to drive the chat: poll cadence and limits.
func (h *HealthHandler) ServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"api_base":           "/api/v1",
		"poll_interval_ms":   h.chat.PollInterval.Milliseconds(),
		"max_message_length": h.chat.MaxMessageLength,
		"page_size":          h.chat.DefaultPageSize,
	})
}
