package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/repository/memory"
	"volunteer_chat/internal/service"
	apperrors "volunteer_chat/pkg/errors"
	"volunteer_chat/pkg/jwt"
	"volunteer_chat/pkg/logger"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, id int64, role string) string {
	t.Helper()
	tok, err := jwt.GenerateAccessToken(id, role, "", testSecret, "test", time.Minute)
	require.NoError(t, err)
	return tok
}

func newRouter() (*gin.Engine, *AuthMiddleware) {
	r := gin.New()
	r.Use(ErrorHandler())
	return r, NewAuthMiddleware(testSecret, logger.Nop())
}

func TestRequireAuth(t *testing.T) {
	r, auth := newRouter()
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		actor, ok := Actor(c)
		require.True(t, ok)
		fromCtx, ok := domain.ActorFromContext(c.Request.Context())
		require.True(t, ok)
		assert.Equal(t, actor, fromCtx)
		c.String(http.StatusOK, actor.String())
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage", "Bearer nope", http.StatusUnauthorized, ""},
		{"volunteer", "Bearer " + token(t, 7, "volunteer"), http.StatusOK, "user:7"},
		{"admin", "Bearer " + token(t, 3, "admin"), http.StatusOK, "admin:3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestRequireAuthOrQuery(t *testing.T) {
	r, auth := newRouter()
	r.GET("/ws", auth.RequireAuthOrQuery(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api", auth.RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	tok := token(t, 7, "user")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api?token="+tok, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	r, auth := newRouter()
	r.POST("/admin", auth.RequireAuth(), auth.RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for role, want := range map[string]int{"admin": http.StatusNoContent, "sponsor": http.StatusForbidden} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, 1, role))
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func TestRateLimit_PerActor(t *testing.T) {
	r, auth := newRouter()
	limiter := NewRateLimitMiddleware(service.NewRateLimitService(memory.NewRateLimiter(), logger.Nop()), logger.Nop())
	policy := domain.RateLimitPolicy{Limit: 2, Window: time.Minute}
	r.POST("/send", auth.RequireAuth(), limiter.Limit(policy), func(c *gin.Context) { c.Status(http.StatusCreated) })

	send := func(id int64) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/send", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, id, "user"))
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusCreated, send(1).Code)
	assert.Equal(t, http.StatusCreated, send(1).Code)
	w := send(1)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, w.Body.String(), "rate_limited")

	assert.Equal(t, http.StatusCreated, send(2).Code)
}

func TestErrorHandler_MapsSentinels(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.POST("/accept", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("claim: %w", apperrors.ErrConversationAlreadyClaimed))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/accept", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "conversation_already_claimed")
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.example"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
