// Package chatclient is the Go client of the support chat API: a typed HTTP
// client, an optimistic message timeline, a polling loop and a websocket
// subscription.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"volunteer_chat/internal/domain"
)

// APIError is a non-2xx response of the chat API.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat api returned status %d (%s): %s", e.Status, e.Code, e.Message)
}

// IsConversationClosed reports whether err is the API refusing a write to an
// ended conversation. Such sends must not be retried.
func IsConversationClosed(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "conversation_closed"
}

// Client talks to the /api/v1 chat routes with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	return NewWithHTTPClient(baseURL, token, &http.Client{Timeout: 10 * time.Second})
}

func NewWithHTTPClient(baseURL, token string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type SendRequest struct {
	Content   string  `json:"content"`
	ReplyToID *int64  `json:"reply_to_id,omitempty"`
	ClientID  *string `json:"client_id,omitempty"`
}

type startRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type markReadRequest struct {
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (c *Client) StartConversation(ctx context.Context, subject, message string) (*domain.Conversation, *domain.Message, error) {
	var resp struct {
		Conversation *domain.Conversation `json:"conversation"`
		Message      *domain.Message      `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/chats", startRequest{Subject: subject, Message: message}, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Conversation, resp.Message, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID int64, req SendRequest) (*domain.Message, error) {
	var msg domain.Message
	if err := c.do(ctx, http.MethodPost, chatPath(conversationID, "/messages"), req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessages fetches messages with id greater than afterID, oldest first.
func (c *Client) GetMessages(ctx context.Context, conversationID, afterID int64, limit int) ([]*domain.Message, error) {
	q := url.Values{}
	if afterID > 0 {
		q.Set("after_id", strconv.FormatInt(afterID, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := chatPath(conversationID, "/messages")
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Messages []*domain.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// MarkRead marks counterpart messages up to ts as read; nil means now.
func (c *Client) MarkRead(ctx context.Context, conversationID int64, ts *time.Time) (*domain.ReadReceipt, error) {
	var receipt domain.ReadReceipt
	if err := c.do(ctx, http.MethodPost, chatPath(conversationID, "/read"), markReadRequest{Timestamp: ts}, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) Accept(ctx context.Context, conversationID int64) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := c.do(ctx, http.MethodPost, chatPath(conversationID, "/accept"), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) End(ctx context.Context, conversationID int64) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := c.do(ctx, http.MethodPost, chatPath(conversationID, "/end"), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func chatPath(conversationID int64, suffix string) string {
	return "/api/v1/chats/" + strconv.FormatInt(conversationID, 10) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if jsonErr := json.Unmarshal(raw, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
