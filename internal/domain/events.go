package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventMessageSent          = "message.sent"
	EventMessagesRead         = "message.read"
	EventConversationAccepted = "conversation.accepted"
	EventConversationEnded    = "conversation.ended"
)

// ChatChannel is the private pub/sub channel of one conversation.
func ChatChannel(conversationID int64) string {
	return fmt.Sprintf("chat.%d", conversationID)
}

// Event is the envelope published on a chat channel and relayed to sockets.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

func NewEvent(name string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s event: %w", name, err)
	}
	return Event{Name: name, Data: raw}, nil
}

type MessageSentEvent struct {
	ChatID     int64          `json:"chatId"`
	ID         int64          `json:"id"`
	Content    string         `json:"content"`
	SenderID   int64          `json:"sender_id"`
	SenderType ActorKind      `json:"sender_type"`
	CreatedAt  time.Time      `json:"created_at"`
	Status     MessageStatus  `json:"status"`
	ClientID   *string        `json:"client_id,omitempty"`
	Sender     *ActorProfile  `json:"sender,omitempty"`
	ReplyTo    *ReplySnapshot `json:"reply_to,omitempty"`
}

func NewMessageSentEvent(m *Message, sender *ActorProfile, replyTo *ReplySnapshot) MessageSentEvent {
	return MessageSentEvent{
		ChatID:     m.ConversationID,
		ID:         m.ID,
		Content:    m.Content,
		SenderID:   m.SenderID,
		SenderType: m.SenderType,
		CreatedAt:  m.CreatedAt,
		Status:     m.Status,
		ClientID:   m.ClientID,
		Sender:     sender,
		ReplyTo:    replyTo,
	}
}

// MessagesReadEvent carries no message bodies; receivers only flip checkmarks.
type MessagesReadEvent struct {
	ConversationID int64     `json:"conversationId"`
	Timestamp      time.Time `json:"timestamp"`
	ReaderType     ActorKind `json:"reader_type"`
	ReaderID       int64     `json:"reader_id"`
}

type ConversationStatusEvent struct {
	ConversationID int64              `json:"conversationId"`
	Status         ConversationStatus `json:"status"`
	AdminID        *int64             `json:"admin_id,omitempty"`
	At             time.Time          `json:"at"`
}
