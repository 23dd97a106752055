package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"volunteer_chat/internal/service"
	"volunteer_chat/pkg/logger"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

// GetMessages returns messages with id greater than after_id in ascending
// order, which is what the polling client asks for.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	conversationID, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	afterID, ok := queryInt(c, "after_id", 0)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}

	messages, err := h.chatService.GetMessages(c.Request.Context(), conversationID, actor, int64(afterID), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type SendMessageRequest struct {
	Content   string  `json:"content"`
	ReplyToID *int64  `json:"reply_to_id"`
	ClientID  *string `json:"client_id" binding:"omitempty,max=64"`
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	conversationID, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), service.SendMessageInput{
		ConversationID: conversationID,
		Sender:         actor,
		Content:        req.Content,
		ReplyToID:      req.ReplyToID,
		ClientID:       req.ClientID,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// MarkReadRequest is optional; an empty body marks everything up to now.
type MarkReadRequest struct {
	Timestamp *time.Time `json:"timestamp"`
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	conversationID, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}

	var ts time.Time
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	receipt, err := h.chatService.MarkRead(c.Request.Context(), conversationID, actor, ts)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}
