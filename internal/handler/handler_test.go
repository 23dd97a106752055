package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"volunteer_chat/internal/broadcast"
	"volunteer_chat/internal/config"
	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/jobs"
	"volunteer_chat/internal/mail"
	"volunteer_chat/internal/middleware"
	"volunteer_chat/internal/repository"
	"volunteer_chat/internal/service"
	"volunteer_chat/pkg/jwt"
	"volunteer_chat/pkg/logger"
)

const testSecret = "handler-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type apiEnv struct {
	router     *gin.Engine
	dispatcher *broadcast.Dispatcher
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{AllowedOrigins: []string{"*"}},
		Storage:     config.StorageConfig{Driver: config.StorageDriverMemory},
		Chat: config.ChatConfig{
			MaxMessageLength:  200,
			DefaultPageSize:   50,
			SendLimit:         100,
			SendWindow:        time.Minute,
			BroadcastTimeout:  time.Second,
			WebSocketPingTime: time.Second,
		},
		Ledger:    config.LedgerConfig{ReferrerPoints: 100, RefereePoints: 50},
		Jobs:      config.JobsConfig{FeaturedExpiryBatch: 10, Concurrency: 2},
		Telemetry: config.TelemetryConfig{ServiceName: "volunteer-chat"},
	}
}

func newAPI(t *testing.T, cfg *config.Config) *apiEnv {
	t.Helper()
	log := logger.Nop()
	repos := repository.NewMemoryRepositories(log)
	dispatcher := broadcast.NewDispatcher(broadcast.NewMemoryBroadcaster(), time.Second, log)
	services := service.NewServices(repos, dispatcher, cfg, log)
	expiry := jobs.NewFeaturedExpiryJob(repos.Featured, services.Notification, mail.NopMailer{}, cfg.Jobs, log)

	handlers := NewHandlers(services, dispatcher, expiry, nil, cfg, log)
	router := NewRouter(handlers,
		middleware.NewAuthMiddleware(testSecret, log),
		middleware.NewRateLimitMiddleware(services.RateLimit, log),
		cfg, log)

	return &apiEnv{router: router, dispatcher: dispatcher}
}

func bearer(t *testing.T, id int64, role string) string {
	t.Helper()
	tok, err := jwt.GenerateAccessToken(id, role, "", testSecret, "test", time.Minute)
	require.NoError(t, err)
	return tok
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type startResponse struct {
	Conversation domain.Conversation `json:"conversation"`
	Message      domain.Message      `json:"message"`
}

func (e *apiEnv) startConversation(t *testing.T, userToken string) int64 {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/chats", userToken, gin.H{"subject": "Booking", "message": "Hello"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[startResponse](t, w).Conversation.ID
}

func TestHealthAndMetrics(t *testing.T) {
	api := newAPI(t, testConfig())

	w := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = api.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConversationLifecycle(t *testing.T) {
	api := newAPI(t, testConfig())
	user := bearer(t, 7, "volunteer")
	admin := bearer(t, 3, "admin")
	otherAdmin := bearer(t, 4, "admin")

	id := api.startConversation(t, user)
	chatPath := fmt.Sprintf("/api/v1/chats/%d", id)

	w := api.do(t, http.MethodPost, chatPath+"/accept", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPost, chatPath+"/accept", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	conv := decode[domain.Conversation](t, w)
	assert.Equal(t, domain.ConversationActive, conv.Status)
	require.NotNil(t, conv.AdminID)
	assert.Equal(t, int64(3), *conv.AdminID)

	w = api.do(t, http.MethodPost, chatPath+"/accept", otherAdmin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conversation_already_claimed", decode[errorBody](t, w).Code)

	// Only the owning admin may close an active thread.
	w = api.do(t, http.MethodPost, chatPath+"/end", otherAdmin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPost, chatPath+"/end", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ConversationEnded, decode[domain.Conversation](t, w).Status)

	w = api.do(t, http.MethodPost, chatPath+"/end", admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPost, chatPath+"/messages", user, gin.H{"content": "still there?"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conversation_closed", decode[errorBody](t, w).Code)

	w = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/chats/%d/audit", id), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	audit := decode[struct {
		Entries []domain.AuditLog `json:"entries"`
	}](t, w)
	assert.Len(t, audit.Entries, 3)
}

func TestMessagesPollingAndRead(t *testing.T) {
	api := newAPI(t, testConfig())
	user := bearer(t, 7, "volunteer")
	admin := bearer(t, 3, "admin")

	id := api.startConversation(t, user)
	chatPath := fmt.Sprintf("/api/v1/chats/%d", id)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, chatPath+"/accept", admin, nil).Code)

	w := api.do(t, http.MethodPost, chatPath+"/messages", admin, gin.H{"content": "  How can I help?  "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reply := decode[domain.Message](t, w)
	assert.Equal(t, "How can I help?", reply.Content)
	assert.Equal(t, domain.ActorAdmin, reply.SenderType)

	w = api.do(t, http.MethodPost, chatPath+"/messages", user, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, chatPath+"/messages", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Messages []domain.Message `json:"messages"`
	}](t, w)
	require.Len(t, page.Messages, 2)
	first := page.Messages[0].ID

	w = api.do(t, http.MethodGet, fmt.Sprintf("%s/messages?after_id=%d", chatPath, first), user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[struct {
		Messages []domain.Message `json:"messages"`
	}](t, w)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, reply.ID, page.Messages[0].ID)

	w = api.do(t, http.MethodGet, chatPath+"/messages?after_id=abc", user, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, chatPath+"/read", user, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[domain.ReadReceipt](t, w).Updated)

	stranger := bearer(t, 8, "volunteer")
	w = api.do(t, http.MethodGet, chatPath+"/messages", stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/chats/0", user, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/chats/999", user, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendMessage_ClientIDIsIdempotent(t *testing.T) {
	api := newAPI(t, testConfig())
	user := bearer(t, 7, "volunteer")
	id := api.startConversation(t, user)
	path := fmt.Sprintf("/api/v1/chats/%d/messages", id)

	body := gin.H{"content": "retry me", "client_id": "tmp-1"}
	first := decode[domain.Message](t, api.do(t, http.MethodPost, path, user, body))
	second := decode[domain.Message](t, api.do(t, http.MethodPost, path, user, body))

	assert.Equal(t, first.ID, second.ID)
}

func TestSendMessage_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Chat.SendLimit = 2
	api := newAPI(t, cfg)
	user := bearer(t, 7, "volunteer")

	id := api.startConversation(t, user)
	path := fmt.Sprintf("/api/v1/chats/%d/messages", id)

	assert.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, path, user, gin.H{"content": "one"}).Code)
	assert.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, path, user, gin.H{"content": "two"}).Code)

	w := api.do(t, http.MethodPost, path, user, gin.H{"content": "three"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decode[errorBody](t, w).Code)
}

func TestReferralApproval(t *testing.T) {
	api := newAPI(t, testConfig())
	referrer := bearer(t, 10, "volunteer")
	referee := bearer(t, 11, "volunteer")
	admin := bearer(t, 3, "admin")

	w := api.do(t, http.MethodPost, "/api/v1/referrals", referrer, gin.H{"referee_id": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/referrals", referrer, gin.H{"referee_id": 11})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ref := decode[domain.Referral](t, w)

	approvePath := fmt.Sprintf("/api/v1/admin/referrals/%d/approve", ref.ID)
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodPost, approvePath, referrer, nil).Code)

	w = api.do(t, http.MethodPost, approvePath, admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, approvePath, admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "referral_not_pending", decode[errorBody](t, w).Code)

	balance := decode[domain.Balance](t, api.do(t, http.MethodGet, "/api/v1/points/balance", referrer, nil))
	assert.Equal(t, int64(100), balance.Balance)
	balance = decode[domain.Balance](t, api.do(t, http.MethodGet, "/api/v1/points/balance", referee, nil))
	assert.Equal(t, int64(50), balance.Balance)

	w = api.do(t, http.MethodPost, "/api/v1/points/redeem", referee, gin.H{"points": 80})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/points/redeem", referee, gin.H{"points": 30})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(20), decode[domain.Balance](t, w).Balance)

	history := decode[struct {
		Transactions []domain.PointTransaction `json:"transactions"`
	}](t, api.do(t, http.MethodGet, "/api/v1/points/transactions", referee, nil))
	assert.Len(t, history.Transactions, 2)

	count := decode[struct {
		Count int `json:"count"`
	}](t, api.do(t, http.MethodGet, "/api/v1/notifications/unread-count", referrer, nil))
	assert.Equal(t, 1, count.Count)
}

func TestNotifications(t *testing.T) {
	api := newAPI(t, testConfig())
	user := bearer(t, 7, "volunteer")
	admin := bearer(t, 3, "admin")

	w := api.do(t, http.MethodPost, "/api/v1/admin/notifications", admin, gin.H{
		"user_id": 7,
		"type":    "verification_approved",
		"title":   "Verified",
		"message": "Your account is verified.",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[domain.Notification](t, w)
	require.NotNil(t, created.AdminID)
	assert.Equal(t, int64(3), *created.AdminID)

	w = api.do(t, http.MethodPost, "/api/v1/admin/notifications", admin, gin.H{
		"user_id": 7, "type": "nope", "title": "x", "message": "y",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	list := decode[struct {
		Notifications []domain.Notification `json:"notifications"`
	}](t, api.do(t, http.MethodGet, "/api/v1/notifications?unread=true", user, nil))
	require.Len(t, list.Notifications, 1)

	w = api.do(t, http.MethodPost, "/api/v1/notifications/not-a-uuid/read", user, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/notifications/"+created.ID.String()+"/read", bearer(t, 8, "volunteer"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/notifications/"+created.ID.String()+"/read", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[domain.Notification](t, w).IsRead)

	updated := decode[struct {
		Updated int `json:"updated"`
	}](t, api.do(t, http.MethodPost, "/api/v1/notifications/read-all", user, nil))
	assert.Equal(t, 0, updated.Updated)
}

func TestFeaturedExpiryEndpoint(t *testing.T) {
	api := newAPI(t, testConfig())
	admin := bearer(t, 3, "admin")
	owner := bearer(t, 20, "organization")

	w := api.do(t, http.MethodPost, "/api/v1/admin/featured", admin, gin.H{
		"project_id":  5,
		"owner_id":    20,
		"owner_email": "org@example.org",
		"title":       "Beach cleanup",
		"starts_at":   time.Now().Add(-2 * time.Hour).UTC(),
		"ends_at":     time.Now().Add(-time.Minute).UTC(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, "/api/v1/admin/jobs/expire-featured", owner, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/admin/jobs/expire-featured", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[jobs.FeaturedExpiryResult](t, w).Expired)

	w = api.do(t, http.MethodPost, "/api/v1/admin/jobs/expire-featured", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[jobs.FeaturedExpiryResult](t, w).Expired)

	// started + expired
	count := decode[struct {
		Count int `json:"count"`
	}](t, api.do(t, http.MethodGet, "/api/v1/notifications/unread-count", owner, nil))
	assert.Equal(t, 2, count.Count)
}

func TestWebSocketRelay(t *testing.T) {
	api := newAPI(t, testConfig())
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	user := bearer(t, 7, "volunteer")
	admin := bearer(t, 3, "admin")
	id := api.startConversation(t, user)
	chatPath := fmt.Sprintf("/api/v1/chats/%d", id)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, chatPath+"/accept", admin, nil).Code)
	api.dispatcher.Wait()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/ws/chats/%d?token=%s", id, user)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+fmt.Sprintf("/ws/chats/%d?token=%s", id, bearer(t, 8, "volunteer")), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	w := api.do(t, http.MethodPost, chatPath+"/messages", admin, gin.H{"content": "live"})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event domain.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, domain.EventMessageSent, event.Name)

	var sent domain.MessageSentEvent
	require.NoError(t, json.Unmarshal(event.Data, &sent))
	assert.Equal(t, "live", sent.Content)
	assert.Equal(t, id, sent.ChatID)

	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, chatPath+"/end", admin, nil).Code)
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, domain.EventConversationEnded, event.Name)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
