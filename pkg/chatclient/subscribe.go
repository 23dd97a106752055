package chatclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"volunteer_chat/internal/domain"
)

// Subscribe opens the websocket relay of a conversation and delivers decoded
// events until ctx is cancelled or the server closes the socket. The returned
// channel is closed when the connection ends.
func Subscribe(ctx context.Context, baseURL, token string, conversationID int64) (<-chan domain.Event, error) {
	wsURL, err := socketURL(baseURL, conversationID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial chat socket: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial chat socket: %w", err)
	}

	events := make(chan domain.Event, 16)
	stopped := make(chan struct{})

	// Closing the conn unblocks ReadJSON on cancellation.
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stopped:
		}
	}()

	go func() {
		defer close(events)
		defer close(stopped)
		defer conn.Close()
		for {
			var event domain.Event
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// Subscribe opens the websocket relay with the client's base URL and token.
func (c *Client) Subscribe(ctx context.Context, conversationID int64) (<-chan domain.Event, error) {
	return Subscribe(ctx, c.baseURL, c.token, conversationID)
}

func socketURL(baseURL string, conversationID int64) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws/chats/" + strconv.FormatInt(conversationID, 10)
	return u.String(), nil
}
