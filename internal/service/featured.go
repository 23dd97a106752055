package service

import (
	"context"
	"net/http"
	"time"

	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/repository"
	apperrors "volunteer_chat/pkg/errors"
	"volunteer_chat/pkg/logger"
)

type FeatureProjectInput struct {
	ProjectID  int64     `json:"project_id" validate:"required,gt=0"`
	OwnerID    int64     `json:"owner_id" validate:"required,gt=0"`
	OwnerEmail string    `json:"owner_email" validate:"required,email"`
	Title      string    `json:"title" validate:"required,max=255"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at" validate:"required"`
}

// FeaturedService opens featured placements. Closing them is the expiry job's work.
type FeaturedService interface {
	Feature(ctx context.Context, admin domain.Actor, in FeatureProjectInput) (*domain.FeaturedProject, error)
}

type featuredService struct {
	featuredRepo  repository.FeaturedProjectRepository
	notifications NotificationService
	audit         AuditService
	log           logger.Logger
}

func NewFeaturedService(featuredRepo repository.FeaturedProjectRepository, notifications NotificationService, audit AuditService, log logger.Logger) FeaturedService {
	return &featuredService{
		featuredRepo:  featuredRepo,
		notifications: notifications,
		audit:         audit,
		log:           log,
	}
}

func (s *featuredService) Feature(ctx context.Context, admin domain.Actor, in FeatureProjectInput) (*domain.FeaturedProject, error) {
	if !admin.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	startsAt := in.StartsAt.UTC()
	if in.StartsAt.IsZero() {
		startsAt = time.Now().UTC()
	}
	if !in.EndsAt.After(startsAt) {
		return nil, apperrors.NewAPIError("ends_at must be after starts_at", http.StatusBadRequest)
	}

	f := &domain.FeaturedProject{
		ProjectID:  in.ProjectID,
		OwnerID:    in.OwnerID,
		OwnerEmail: in.OwnerEmail,
		Title:      in.Title,
		Status:     domain.FeaturedActive,
		StartsAt:   startsAt,
		EndsAt:     in.EndsAt.UTC(),
	}
	if err := s.featuredRepo.Create(ctx, f); err != nil {
		return nil, err
	}

	if _, err := s.notifications.Notify(ctx, FeaturedProjectStarted(f)); err != nil {
		s.log.Warn("Failed to notify featured project owner", "error", err, "featured_id", f.ID)
	}
	record(ctx, s.audit, s.log, admin, nil, domain.EventTypeProjectFeatured, map[string]any{
		"featured_id": f.ID,
		"project_id":  f.ProjectID,
	})

	s.log.Info("Project featured", "featured_id", f.ID, "project_id", f.ProjectID, "ends_at", f.EndsAt)

	return f, nil
}
