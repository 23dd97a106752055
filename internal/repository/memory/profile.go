package memory

import (
	"context"

	"volunteer_chat/internal/domain"
)

type ProfileRepository struct {
	s *Store
}

// Lookup falls back to a generated name so events always carry a sender.
func (r *ProfileRepository) Lookup(ctx context.Context, actor domain.Actor) (*domain.ActorProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p, ok := r.s.profiles[actor]; ok {
		cp := *p
		return &cp, nil
	}
	return &domain.ActorProfile{Actor: actor, Name: actor.String()}, nil
}
