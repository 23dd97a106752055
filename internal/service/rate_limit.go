package service

import (
	"context"

	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/observability"
	"volunteer_chat/internal/repository"
	"volunteer_chat/pkg/logger"
)

type RateLimitService interface {
	// Allow counts one hit for key under policy. Store errors fail open.
	Allow(ctx context.Context, policy domain.RateLimitPolicy, key string) (allowed bool, remaining int)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, policy domain.RateLimitPolicy, key string) (bool, int) {
	allowed, remaining, err := s.rateLimitRepo.Allow(ctx, policy.Scope+":"+key, policy.Limit, policy.Window)
	if err != nil {
		s.log.Warn("Rate limit store unavailable, allowing request", "error", err, "scope", policy.Scope)
		return true, policy.Limit
	}
	if !allowed {
		observability.RateLimited.WithLabelValues(policy.Scope).Inc()
	}
	return allowed, remaining
}
