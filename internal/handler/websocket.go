package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"volunteer_chat/internal/broadcast"
	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/service"
	"volunteer_chat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	maxInboundSize = 512
)

// WebSocketHandler relays the events of one conversation channel to a socket.
// The socket is receive-only; clients send through the HTTP API.
type WebSocketHandler struct {
	conversationService service.ConversationService
	dispatcher          *broadcast.Dispatcher
	upgrader            websocket.Upgrader
	pingPeriod          time.Duration
	log                 logger.Logger
}

func NewWebSocketHandler(conversationService service.ConversationService, dispatcher *broadcast.Dispatcher, allowedOrigins []string, pingPeriod time.Duration, log logger.Logger) *WebSocketHandler {
	if pingPeriod <= 0 {
		pingPeriod = 30 * time.Second
	}
	return &WebSocketHandler{
		conversationService: conversationService,
		dispatcher:          dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		pingPeriod: pingPeriod,
		log:        log,
	}
}

// originChecker allows requests without an Origin header (non-browser
// clients) and browser requests from the configured origins. "*" allows all.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) || strings.EqualFold(a, u.Host) {
				return true
			}
		}
		return false
	}
}

func (h *WebSocketHandler) HandleChat(c *gin.Context) {
	conversationID, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	// Authorization happens before the upgrade so failures are plain HTTP errors.
	if _, err := h.conversationService.Get(c.Request.Context(), actor, conversationID); err != nil {
		respondError(c, h.log, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := h.dispatcher.Subscribe(ctx, conversationID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	log := h.log.With("conversation_id", conversationID, "actor", actor.String())
	log.Debug("Chat socket opened")

	go h.readPump(conn, cancel)
	h.writePump(ctx, conn, sub, log)

	log.Debug("Chat socket closed")
}

// readPump drains client frames so control messages are processed and
// cancels the relay when the peer goes away.
func (h *WebSocketHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	pongWait := 2 * h.pingPeriod
	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) writePump(ctx context.Context, conn *websocket.Conn, sub broadcast.Subscription, log logger.Logger) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				log.Warn("Failed to write event", "error", err, "event", event.Name)
				return
			}
			if event.Name == domain.EventConversationEnded {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "conversation ended"),
					time.Now().Add(writeWait))
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
