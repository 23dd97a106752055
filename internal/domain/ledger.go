package domain

import (
	"time"

	"github.com/google/uuid"
)

type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// PointTransaction is an append-only ledger entry.
type PointTransaction struct {
	ID             uuid.UUID `json:"id"`
	UserID         int64     `json:"user_id"`
	Direction      Direction `json:"direction"`
	Points         int64     `json:"points"`
	Reason         string    `json:"reason"`
	ReferralID     *int64    `json:"referral_id,omitempty"`
	OrganizationID *int64    `json:"organization_id,omitempty"`
	BookingID      *int64    `json:"booking_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	ReasonReferralReferrer = "referral_referrer"
	ReasonReferralReferee  = "referral_referee"
	ReasonRedemption       = "redemption"
)

type ReferralStatus string

const (
	ReferralPending  ReferralStatus = "pending"
	ReferralApproved ReferralStatus = "approved"
	ReferralRejected ReferralStatus = "rejected"
)

type Referral struct {
	ID             int64          `json:"id"`
	ReferrerID     int64          `json:"referrer_id"`
	RefereeID      int64          `json:"referee_id"`
	OrganizationID *int64         `json:"organization_id,omitempty"`
	Status         ReferralStatus `json:"status"`
	DecidedBy      *int64         `json:"decided_by,omitempty"`
	DecidedAt      *time.Time     `json:"decided_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Balance is derived from the ledger on every read.
type Balance struct {
	UserID  int64 `json:"user_id"`
	Credits int64 `json:"credits"`
	Debits  int64 `json:"debits"`
	Balance int64 `json:"balance"`
}

// SumBalance folds ledger entries into a balance.
func SumBalance(userID int64, entries []*PointTransaction) Balance {
	b := Balance{UserID: userID}
	for _, e := range entries {
		if e.UserID != userID {
			continue
		}
		switch e.Direction {
		case Credit:
			b.Credits += e.Points
		case Debit:
			b.Debits += e.Points
		}
	}
	b.Balance = b.Credits - b.Debits
	return b
}
