package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"volunteer_chat/internal/domain"
	apperrors "volunteer_chat/pkg/errors"
	"volunteer_chat/pkg/jwt"
	"volunteer_chat/pkg/logger"
)

const actorKey = "actor"

type AuthMiddleware struct {
	secret string
	log    logger.Logger
}

func NewAuthMiddleware(secret string, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret: secret,
		log:    log,
	}
}

// RequireAuth resolves the bearer token to an Actor and stores it both on the
// gin context and on the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return m.authenticate(false)
}

// RequireAuthOrQuery also accepts ?token=, for websocket upgrades where
// browsers cannot set headers.
func (m *AuthMiddleware) RequireAuthOrQuery() gin.HandlerFunc {
	return m.authenticate(true)
}

func (m *AuthMiddleware) authenticate(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok && allowQuery {
			token = c.Query("token")
			ok = token != ""
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required", "code": "unauthorized"})
			return
		}

		claims, err := jwt.ValidateToken(token, m.secret)
		if err != nil {
			m.log.Debug("Rejected token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "unauthorized"})
			return
		}

		actor := ActorFromClaims(claims)
		c.Set(actorKey, actor)
		c.Request = c.Request.WithContext(domain.ContextWithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := Actor(c)
		if !ok || !actor.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": apperrors.ErrForbidden.Error(), "code": "forbidden"})
			return
		}
		c.Next()
	}
}

// ActorFromClaims maps the platform role onto the two sender kinds. Every
// non-admin role (volunteer, organization, sponsor) chats as a user.
func ActorFromClaims(claims *jwt.Claims) domain.Actor {
	if kind, ok := domain.ParseActorKind(claims.Role); ok && kind == domain.ActorAdmin {
		return domain.AdminActor(claims.UserID)
	}
	return domain.UserActor(claims.UserID)
}

func Actor(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.ActorFromContext(c.Request.Context())
	}
	actor, ok := v.(domain.Actor)
	return actor, ok && actor.Valid()
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
