package domain

import (
	"time"
)

type ConversationStatus string

const (
	ConversationRequested ConversationStatus = "requested"
	ConversationActive    ConversationStatus = "active"
	ConversationEnded     ConversationStatus = "ended"
)

// Conversation is a support chat between one end user and, once accepted, one admin.
type Conversation struct {
	ID             int64              `json:"id"`
	UserID         int64              `json:"user_id"`
	AdminID        *int64             `json:"admin_id,omitempty"`
	Status         ConversationStatus `json:"status"`
	Subject        string             `json:"subject"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	AcceptedAt     *time.Time         `json:"accepted_at,omitempty"`
	EndedAt        *time.Time         `json:"ended_at,omitempty"`
	EndedByAdminID *int64             `json:"ended_by_admin_id,omitempty"`
}

// CanTransition reports whether a conversation may move from one status to another.
// Ended is terminal.
func CanTransition(from, to ConversationStatus) bool {
	switch from {
	case ConversationRequested:
		return to == ConversationActive || to == ConversationEnded
	case ConversationActive:
		return to == ConversationEnded
	default:
		return false
	}
}

func (c *Conversation) IsClosed() bool { return c.Status == ConversationEnded }

// IsParticipant reports whether the actor may write to the conversation.
func (c *Conversation) IsParticipant(a Actor) bool {
	switch a.Kind {
	case ActorUser:
		return c.UserID == a.ID
	case ActorAdmin:
		return c.AdminID != nil && *c.AdminID == a.ID
	default:
		return false
	}
}

// CanView: the owning user, or any admin (back office sees every thread).
func (c *Conversation) CanView(a Actor) bool {
	if a.IsAdmin() {
		return true
	}
	return c.IsParticipant(a)
}

// Counterpart returns the sender kind whose messages the actor reads.
func Counterpart(kind ActorKind) ActorKind {
	if kind == ActorAdmin {
		return ActorUser
	}
	return ActorAdmin
}

type ConversationFilter struct {
	Status *ConversationStatus
	Limit  int
	Offset int
}

type MessageStatus string

const (
	MessageSending MessageStatus = "sending"
	MessageSent    MessageStatus = "sent"
	MessageRead    MessageStatus = "read"
	MessageFailed  MessageStatus = "failed"
)

// Message is a single chat line. ReplyToID, when set, points to an earlier
// message of the same conversation.
type Message struct {
	ID             int64         `json:"id"`
	ConversationID int64         `json:"conversation_id"`
	SenderType     ActorKind     `json:"sender_type"`
	SenderID       int64         `json:"sender_id"`
	Content        string        `json:"content"`
	ReplyToID      *int64        `json:"reply_to_id,omitempty"`
	ClientID       *string       `json:"client_id,omitempty"`
	Status         MessageStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	ReadAt         *time.Time    `json:"read_at,omitempty"`
}

func (m *Message) Sender() Actor {
	return Actor{Kind: m.SenderType, ID: m.SenderID}
}

// ReplySnapshot is the trimmed copy of a replied-to message carried in events.
type ReplySnapshot struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	SenderType ActorKind `json:"sender_type"`
	SenderID   int64     `json:"sender_id"`
}

func (m *Message) Snapshot() *ReplySnapshot {
	return &ReplySnapshot{ID: m.ID, Content: m.Content, SenderType: m.SenderType, SenderID: m.SenderID}
}

type MessageQuery struct {
	ConversationID int64
	AfterID        int64
	Limit          int
}

// ReadReceipt describes the outcome of a mark-read call.
type ReadReceipt struct {
	ConversationID int64     `json:"conversationId"`
	Reader         Actor     `json:"reader"`
	Timestamp      time.Time `json:"timestamp"`
	Updated        int       `json:"updated"`
}
