package errors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrRateLimited    = errors.New("rate limit exceeded")

	ErrConversationNotFound       = errors.New("conversation not found")
	ErrConversationClosed         = errors.New("conversation is closed")
	ErrConversationAlreadyClaimed = errors.New("conversation is already assigned to another admin")
	ErrInvalidTransition          = errors.New("invalid conversation status transition")
	ErrNotParticipant             = errors.New("actor is not a participant of this conversation")
	ErrMessageNotFound            = errors.New("message not found")
	ErrInvalidReplyTarget         = errors.New("reply target must belong to the same conversation")
	ErrEmptyMessage               = errors.New("message body is empty")
	ErrMessageTooLong             = errors.New("message body is too long")

	ErrNotificationNotFound = errors.New("notification not found")

	ErrReferralNotFound        = errors.New("referral not found")
	ErrReferralAlreadyApproved = errors.New("referral is not pending")
	ErrReferralExists          = errors.New("referee already has a referral")
	ErrSelfReferral            = errors.New("users cannot refer themselves")
	ErrInsufficientPoints      = errors.New("insufficient points")
)

type APIError struct {
	Message string `json:"error"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

func HTTPStatusFromError(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConversationNotFound),
		errors.Is(err, ErrMessageNotFound), errors.Is(err, ErrNotificationNotFound),
		errors.Is(err, ErrReferralNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, ErrConversationClosed), errors.Is(err, ErrConversationAlreadyClaimed),
		errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrReferralAlreadyApproved),
		errors.Is(err, ErrReferralExists):
		return http.StatusConflict
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrInvalidReplyTarget), errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrMessageTooLong), errors.Is(err, ErrSelfReferral):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientPoints):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// CodeFromError returns a stable machine-readable code for API clients.
func CodeFromError(err error) string {
	switch {
	case errors.Is(err, ErrConversationClosed):
		return "conversation_closed"
	case errors.Is(err, ErrConversationAlreadyClaimed):
		return "conversation_already_claimed"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrInvalidReplyTarget):
		return "invalid_reply_target"
	case errors.Is(err, ErrReferralAlreadyApproved):
		return "referral_not_pending"
	case errors.Is(err, ErrInsufficientPoints):
		return "insufficient_points"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	}

	switch HTTPStatusFromError(err) {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusConflict:
		return "conflict"
	default:
		return "internal"
	}
}
