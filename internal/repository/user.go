package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"volunteer_chat/internal/domain"
	apperrors "volunteer_chat/pkg/errors"
	"volunteer_chat/pkg/logger"
)

type profileRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

// NewProfileRepository reads the display data attached to broadcast events
// from the users and admins tables owned by the wider platform.
func NewProfileRepository(db *pgxpool.Pool, log logger.Logger) ProfileRepository {
	return &profileRepository{db: db, log: log}
}

func (r *profileRepository) Lookup(ctx context.Context, actor domain.Actor) (*domain.ActorProfile, error) {
	var query string
	switch actor.Kind {
	case domain.ActorUser:
		query = `SELECT name, avatar_url FROM users WHERE id = $1`
	case domain.ActorAdmin:
		query = `SELECT name, avatar_url FROM admins WHERE id = $1`
	default:
		return nil, apperrors.ErrBadRequest
	}

	profile := &domain.ActorProfile{Actor: actor}
	err := r.db.QueryRow(ctx, query, actor.ID).Scan(&profile.Name, &profile.AvatarURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get profile", "error", err, "actor", actor.String())
		return nil, err
	}

	return profile, nil
}
