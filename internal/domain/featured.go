package domain

import "time"

type FeaturedStatus string

const (
	FeaturedActive  FeaturedStatus = "active"
	FeaturedExpired FeaturedStatus = "expired"
)

// FeaturedProject is a paid/promoted placement of a project for a time window.
type FeaturedProject struct {
	ID         int64          `json:"id"`
	ProjectID  int64          `json:"project_id"`
	OwnerID    int64          `json:"owner_id"`
	OwnerEmail string         `json:"owner_email"`
	Title      string         `json:"title"`
	Status     FeaturedStatus `json:"status"`
	StartsAt   time.Time      `json:"starts_at"`
	EndsAt     time.Time      `json:"ends_at"`
	ExpiredAt  *time.Time     `json:"expired_at,omitempty"`
}

func (f *FeaturedProject) IsDue(now time.Time) bool {
	return f.Status == FeaturedActive && !f.EndsAt.After(now)
}
