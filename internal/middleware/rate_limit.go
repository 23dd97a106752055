package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/service"
	apperrors "volunteer_chat/pkg/errors"
	"volunteer_chat/pkg/logger"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		log:              log,
	}
}

// Limit keys on the authenticated actor when there is one, else the client IP.
func (m *RateLimitMiddleware) Limit(policy domain.RateLimitPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := domain.RateLimitScopeIP
		key := c.ClientIP()
		if actor, ok := Actor(c); ok {
			scope = domain.RateLimitScopeActor
			key = actor.String()
		}
		policy := policy
		policy.Scope = scope

		allowed, remaining := m.rateLimitService.Allow(c.Request.Context(), policy, c.FullPath()+":"+key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(policy.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			m.log.Warn("Rate limit exceeded", "scope", scope, "key", key, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": apperrors.ErrRateLimited.Error(), "code": "rate_limited"})
			return
		}
		c.Next()
	}
}
