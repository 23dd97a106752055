package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/service"
	"volunteer_chat/pkg/logger"
)

type ConversationHandler struct {
	conversationService service.ConversationService
	auditService        service.AuditService
	log                 logger.Logger
}

func NewConversationHandler(conversationService service.ConversationService, auditService service.AuditService, log logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		auditService:        auditService,
		log:                 log,
	}
}

type StartConversationRequest struct {
	Subject string `json:"subject" binding:"max=255"`
	Message string `json:"message" binding:"required"`
}

func (h *ConversationHandler) Start(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	conv, first, err := h.conversationService.Start(c.Request.Context(), actor, req.Subject, req.Message)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"conversation": conv, "message": first})
}

func (h *ConversationHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	filter := domain.ConversationFilter{Limit: limit, Offset: offset}
	if raw := c.Query("status"); raw != "" {
		status := domain.ConversationStatus(raw)
		switch status {
		case domain.ConversationRequested, domain.ConversationActive, domain.ConversationEnded:
			filter.Status = &status
		default:
			badRequest(c, "invalid status")
			return
		}
	}

	conversations, err := h.conversationService.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (h *ConversationHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	conv, err := h.conversationService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// Accept claims a requested conversation. Losing a race, or re-accepting,
// yields 409.
func (h *ConversationHandler) Accept(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	conv, err := h.conversationService.Accept(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

func (h *ConversationHandler) End(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	conv, err := h.conversationService.End(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

func (h *ConversationHandler) AuditLog(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entries, err := h.auditService.ConversationHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
