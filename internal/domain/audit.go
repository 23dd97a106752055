package domain

import (
	"time"
)

type AuditLog struct {
	ID             int64          `json:"id"`
	EventTime      time.Time      `json:"event_time"`
	ActorType      ActorKind      `json:"actor_type"`
	ActorID        int64          `json:"actor_id"`
	ConversationID *int64         `json:"conversation_id,omitempty"`
	EventType      string         `json:"event_type"`
	Payload        map[string]any `json:"payload"`
}

const (
	EventTypeConversationStarted  = "CONVERSATION_STARTED"
	EventTypeConversationAccepted = "CONVERSATION_ACCEPTED"
	EventTypeConversationEnded    = "CONVERSATION_ENDED"
	EventTypeReferralApproved     = "REFERRAL_APPROVED"
	EventTypeReferralRejected     = "REFERRAL_REJECTED"
	EventTypeNotificationSent     = "NOTIFICATION_SENT"
	EventTypeProjectFeatured      = "PROJECT_FEATURED"
)
