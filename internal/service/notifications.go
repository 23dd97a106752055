package service

import (
	"fmt"

	"volunteer_chat/internal/domain"
)

// Builders for the business events that notify a user. Callers pass the
// result to Notify, or to Build when the insert joins their transaction.

func ProjectApproved(ownerID, projectID int64, title string, adminID *int64) NotifyInput {
	return NotifyInput{
		UserID:  ownerID,
		Type:    domain.NotificationProjectApproved,
		Title:   "Project approved",
		Message: fmt.Sprintf("Your project %q has been approved and is now visible to volunteers.", title),
		Payload: map[string]any{"project_id": projectID},
		AdminID: adminID,
	}
}

func ProjectRejected(ownerID, projectID int64, title, reason string, adminID *int64) NotifyInput {
	return NotifyInput{
		UserID:  ownerID,
		Type:    domain.NotificationProjectRejected,
		Title:   "Project rejected",
		Message: fmt.Sprintf("Your project %q was not approved.", title),
		Payload: map[string]any{"project_id": projectID, "reason": reason},
		AdminID: adminID,
	}
}

func BookingRequested(ownerID, bookingID, projectID int64, volunteerName string) NotifyInput {
	return NotifyInput{
		UserID:  ownerID,
		Type:    domain.NotificationBookingRequested,
		Title:   "New booking request",
		Message: fmt.Sprintf("%s asked to join your project.", volunteerName),
		Payload: map[string]any{"booking_id": bookingID, "project_id": projectID},
	}
}

func BookingApproved(volunteerID, bookingID, projectID int64, projectTitle string) NotifyInput {
	return NotifyInput{
		UserID:  volunteerID,
		Type:    domain.NotificationBookingApproved,
		Title:   "Booking approved",
		Message: fmt.Sprintf("Your booking for %q has been approved.", projectTitle),
		Payload: map[string]any{"booking_id": bookingID, "project_id": projectID},
	}
}

func BookingRejected(volunteerID, bookingID, projectID int64, projectTitle string) NotifyInput {
	return NotifyInput{
		UserID:  volunteerID,
		Type:    domain.NotificationBookingRejected,
		Title:   "Booking rejected",
		Message: fmt.Sprintf("Your booking for %q was declined.", projectTitle),
		Payload: map[string]any{"booking_id": bookingID, "project_id": projectID},
	}
}

func BookingCancelled(userID, bookingID, projectID int64, projectTitle string) NotifyInput {
	return NotifyInput{
		UserID:  userID,
		Type:    domain.NotificationBookingCancelled,
		Title:   "Booking cancelled",
		Message: fmt.Sprintf("The booking for %q was cancelled.", projectTitle),
		Payload: map[string]any{"booking_id": bookingID, "project_id": projectID},
	}
}

func BookingCompleted(volunteerID, bookingID, projectID int64, projectTitle string) NotifyInput {
	return NotifyInput{
		UserID:  volunteerID,
		Type:    domain.NotificationBookingCompleted,
		Title:   "Booking completed",
		Message: fmt.Sprintf("Thanks for volunteering on %q.", projectTitle),
		Payload: map[string]any{"booking_id": bookingID, "project_id": projectID},
	}
}

func VerificationApproved(userID int64, adminID *int64) NotifyInput {
	return NotifyInput{
		UserID:  userID,
		Type:    domain.NotificationVerificationApproved,
		Title:   "Verification approved",
		Message: "Your organization has been verified.",
		Payload: map[string]any{},
		AdminID: adminID,
	}
}

func VerificationRejected(userID int64, reason string, adminID *int64) NotifyInput {
	return NotifyInput{
		UserID:  userID,
		Type:    domain.NotificationVerificationRejected,
		Title:   "Verification rejected",
		Message: "Your verification request was rejected.",
		Payload: map[string]any{"reason": reason},
		AdminID: adminID,
	}
}

func FeaturedProjectStarted(f *domain.FeaturedProject) NotifyInput {
	return NotifyInput{
		UserID:  f.OwnerID,
		Type:    domain.NotificationFeaturedProjectStarted,
		Title:   "Featured placement started",
		Message: fmt.Sprintf("%q is now featured until %s.", f.Title, f.EndsAt.Format("2006-01-02")),
		Payload: map[string]any{"project_id": f.ProjectID, "featured_id": f.ID},
	}
}

func FeaturedProjectExpired(f *domain.FeaturedProject) NotifyInput {
	return NotifyInput{
		UserID:  f.OwnerID,
		Type:    domain.NotificationFeaturedProjectExpired,
		Title:   "Featured placement ended",
		Message: fmt.Sprintf("The featured placement of %q has ended.", f.Title),
		Payload: map[string]any{"project_id": f.ProjectID, "featured_id": f.ID},
	}
}

func ReferralApproved(userID int64, ref *domain.Referral, points int64) NotifyInput {
	return NotifyInput{
		UserID:  userID,
		Type:    domain.NotificationReferralApproved,
		Title:   "Referral approved",
		Message: fmt.Sprintf("You earned %d points from a referral.", points),
		Payload: map[string]any{"referral_id": ref.ID, "points": points},
		AdminID: ref.DecidedBy,
	}
}

func ChatMessageReceived(userID int64, m *domain.Message) NotifyInput {
	preview := []rune(m.Content)
	if len(preview) > 120 {
		preview = append(preview[:120], '…')
	}
	return NotifyInput{
		UserID:  userID,
		Type:    domain.NotificationChatMessage,
		Title:   "New message from support",
		Message: string(preview),
		Payload: map[string]any{"conversation_id": m.ConversationID, "message_id": m.ID},
	}
}
