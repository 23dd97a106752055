package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"volunteer_chat/internal/domain"
	"volunteer_chat/pkg/logger"
)

const featuredColumns = `id, project_id, owner_id, owner_email, title, status, starts_at, ends_at, expired_at`

type featuredProjectRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewFeaturedProjectRepository(db *pgxpool.Pool, log logger.Logger) FeaturedProjectRepository {
	return &featuredProjectRepository{db: db, log: log}
}

func (r *featuredProjectRepository) Create(ctx context.Context, f *domain.FeaturedProject) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO featured_projects (project_id, owner_id, owner_email, title, status, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, f.ProjectID, f.OwnerID, f.OwnerEmail, f.Title, f.Status, f.StartsAt, f.EndsAt).Scan(&f.ID)
	if err != nil {
		r.log.Error("Failed to create featured project", "error", err, "project_id", f.ProjectID)
		return err
	}
	return nil
}

func (r *featuredProjectRepository) ExpireDue(ctx context.Context, now time.Time, limit int, notify func(*domain.FeaturedProject) *domain.Notification) ([]*domain.FeaturedProject, error) {
	limit = clampLimit(limit, 100, 1000)

	var expired []*domain.FeaturedProject
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		// SKIP LOCKED lets overlapping runs split the batch instead of expiring a row twice.
		rows, err := tx.Query(ctx, `
			UPDATE featured_projects
			SET status = 'expired', expired_at = $1
			WHERE id IN (
				SELECT id FROM featured_projects
				WHERE status = 'active' AND ends_at <= $1
				ORDER BY ends_at
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			)
			RETURNING `+featuredColumns, now, limit)
		if err != nil {
			return fmt.Errorf("expire featured projects: %w", err)
		}

		expired, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.FeaturedProject, error) {
			f := &domain.FeaturedProject{}
			err := row.Scan(&f.ID, &f.ProjectID, &f.OwnerID, &f.OwnerEmail, &f.Title,
				&f.Status, &f.StartsAt, &f.EndsAt, &f.ExpiredAt)
			return f, err
		})
		if err != nil {
			return fmt.Errorf("scan featured projects: %w", err)
		}

		if notify == nil {
			return nil
		}
		for _, f := range expired {
			if n := notify(f); n != nil {
				if err := insertNotification(ctx, tx, n); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		r.log.Error("Failed to expire featured projects", "error", err)
		return nil, err
	}

	return expired, nil
}
