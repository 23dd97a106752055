package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"volunteer_chat/internal/domain"
	apperrors "volunteer_chat/pkg/errors"
	"volunteer_chat/pkg/logger"
)

const conversationColumns = `id, user_id, admin_id, status, subject, created_at, updated_at, accepted_at, ended_at, ended_by_admin_id`

type conversationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewConversationRepository(db *pgxpool.Pool, log logger.Logger) ConversationRepository {
	return &conversationRepository{db: db, log: log}
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.AdminID, &c.Status, &c.Subject,
		&c.CreatedAt, &c.UpdatedAt, &c.AcceptedAt, &c.EndedAt, &c.EndedByAdminID,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *conversationRepository) Create(ctx context.Context, conv *domain.Conversation, first *domain.Message) error {
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO conversations (user_id, status, subject, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			RETURNING id, created_at, updated_at
		`, conv.UserID, conv.Status, conv.Subject, conv.CreatedAt).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}

		if first == nil {
			return nil
		}
		first.ConversationID = conv.ID
		return insertMessage(ctx, tx, first)
	})
	if err != nil {
		r.log.Error("Failed to create conversation", "error", err, "user_id", conv.UserID)
		return err
	}
	return nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	c, err := scanConversation(r.db.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConversationNotFound
		}
		r.log.Error("Failed to get conversation", "error", err, "conversation_id", id)
		return nil, err
	}
	return c, nil
}

func (r *conversationRepository) List(ctx context.Context, actor domain.Actor, filter domain.ConversationFilter) ([]*domain.Conversation, error) {
	limit := clampLimit(filter.Limit, 20, 100)

	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	var (
		rows pgx.Rows
		err  error
	)
	if actor.IsAdmin() {
		// Admins see the request queue plus the threads they own.
		rows, err = r.db.Query(ctx, `
			SELECT `+conversationColumns+`
			FROM conversations
			WHERE (status = 'requested' OR admin_id = $1)
			  AND ($2::text IS NULL OR status = $2)
			ORDER BY updated_at DESC
			LIMIT $3 OFFSET $4
		`, actor.ID, status, limit, filter.Offset)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT `+conversationColumns+`
			FROM conversations
			WHERE user_id = $1
			  AND ($2::text IS NULL OR status = $2)
			ORDER BY updated_at DESC
			LIMIT $3 OFFSET $4
		`, actor.ID, status, limit, filter.Offset)
	}
	if err != nil {
		r.log.Error("Failed to list conversations", "error", err, "actor", actor.String())
		return nil, err
	}
	defer rows.Close()

	conversations := make([]*domain.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			r.log.Error("Failed to scan conversation", "error", err)
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

func (r *conversationRepository) Claim(ctx context.Context, id, adminID int64, at time.Time) (*domain.Conversation, error) {
	c, err := scanConversation(r.db.QueryRow(ctx, `
		UPDATE conversations
		SET status = 'active', admin_id = $2, accepted_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'requested'
		RETURNING `+conversationColumns, id, adminID, at))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.log.Error("Failed to claim conversation", "error", err, "conversation_id", id)
		return nil, err
	}

	// Nothing updated: tell apart missing, ended and already claimed.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.ConversationEnded {
		return nil, apperrors.ErrConversationClosed
	}
	return nil, apperrors.ErrConversationAlreadyClaimed
}

func (r *conversationRepository) End(ctx context.Context, id, adminID int64, at time.Time) (*domain.Conversation, error) {
	c, err := scanConversation(r.db.QueryRow(ctx, `
		UPDATE conversations
		SET status = 'ended', ended_at = $3, ended_by_admin_id = $2, updated_at = $3
		WHERE id = $1 AND (status = 'requested' OR (status = 'active' AND admin_id = $2))
		RETURNING `+conversationColumns, id, adminID, at))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.log.Error("Failed to end conversation", "error", err, "conversation_id", id)
		return nil, err
	}

	// Nothing updated: either already ended or owned by another admin.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.ConversationEnded {
		return nil, apperrors.ErrInvalidTransition
	}
	return nil, apperrors.ErrNotParticipant
}
