package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationProjectApproved        NotificationType = "project_approved"
	NotificationProjectRejected        NotificationType = "project_rejected"
	NotificationBookingRequested       NotificationType = "booking_requested"
	NotificationBookingApproved        NotificationType = "booking_approved"
	NotificationBookingRejected        NotificationType = "booking_rejected"
	NotificationBookingCancelled       NotificationType = "booking_cancelled"
	NotificationBookingCompleted       NotificationType = "booking_completed"
	NotificationVerificationApproved   NotificationType = "verification_approved"
	NotificationVerificationRejected   NotificationType = "verification_rejected"
	NotificationFeaturedProjectStarted NotificationType = "featured_project_started"
	NotificationFeaturedProjectExpired NotificationType = "featured_project_expired"
	NotificationReferralApproved       NotificationType = "referral_approved"
	NotificationChatMessage            NotificationType = "chat_message"
)

var notificationTypes = map[NotificationType]struct{}{
	NotificationProjectApproved:        {},
	NotificationProjectRejected:        {},
	NotificationBookingRequested:       {},
	NotificationBookingApproved:        {},
	NotificationBookingRejected:        {},
	NotificationBookingCancelled:       {},
	NotificationBookingCompleted:       {},
	NotificationVerificationApproved:   {},
	NotificationVerificationRejected:   {},
	NotificationFeaturedProjectStarted: {},
	NotificationFeaturedProjectExpired: {},
	NotificationReferralApproved:       {},
	NotificationChatMessage:            {},
}

func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

// Notification is an in-app notice for one user. Only IsRead/ReadAt ever change.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Payload   map[string]any   `json:"payload"`
	IsRead    bool             `json:"is_read"`
	AdminID   *int64           `json:"admin_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
}

type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}
