package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/middleware"
	apperrors "volunteer_chat/pkg/errors"
	"volunteer_chat/pkg/logger"
)

// respondError maps service errors onto status codes. Internal errors are
// logged and replaced with a generic message.
func respondError(c *gin.Context, log logger.Logger, err error) {
	status := apperrors.HTTPStatusFromError(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		message = "Internal server error"
	}
	c.JSON(status, gin.H{"error": message, "code": apperrors.CodeFromError(err)})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "code": "bad_request"})
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func currentActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.Actor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated", "code": "unauthorized"})
		return domain.Actor{}, false
	}
	return actor, true
}

// queryInt reads a non-negative integer query parameter.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}
