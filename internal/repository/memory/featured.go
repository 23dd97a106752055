package memory

import (
	"context"
	"sort"
	"time"

	"volunteer_chat/internal/domain"
)

type FeaturedProjectRepository struct {
	s *Store
}

func (r *FeaturedProjectRepository) Create(ctx context.Context, f *domain.FeaturedProject) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextFeatured++
	f.ID = r.s.nextFeatured
	cp := *f
	r.s.featured[f.ID] = &cp
	return nil
}

func (r *FeaturedProjectRepository) ExpireDue(ctx context.Context, now time.Time, limit int, notify func(*domain.FeaturedProject) *domain.Notification) ([]*domain.FeaturedProject, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	due := make([]*domain.FeaturedProject, 0)
	for _, f := range r.s.featured {
		if f.IsDue(now) {
			due = append(due, f)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].EndsAt.Before(due[j].EndsAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	expired := make([]*domain.FeaturedProject, 0, len(due))
	for _, f := range due {
		f.Status = domain.FeaturedExpired
		f.ExpiredAt = ptr(now)
		cp := *f
		expired = append(expired, &cp)
		if notify != nil {
			if n := notify(&cp); n != nil {
				r.s.insertNotification(n)
			}
		}
	}
	return expired, nil
}
