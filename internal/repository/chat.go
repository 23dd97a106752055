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

const messageColumns = `id, conversation_id, sender_type, sender_id, content, reply_to_id, client_id, status, created_at, read_at`

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	m := &domain.Message{}
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.SenderType, &m.SenderID, &m.Content,
		&m.ReplyToID, &m.ClientID, &m.Status, &m.CreatedAt, &m.ReadAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func insertMessage(ctx context.Context, q querier, m *domain.Message) error {
	err := q.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender_type, sender_id, content, reply_to_id, client_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, m.ConversationID, m.SenderType, m.SenderID, m.Content, m.ReplyToID, m.ClientID, m.Status, m.CreatedAt,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) (bool, error) {
	created := false
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		// The row lock serializes inserts per conversation, so ids commit in
		// id order for after_id polling, and blocks a concurrent End.
		var status domain.ConversationStatus
		err := tx.QueryRow(ctx,
			`SELECT status FROM conversations WHERE id = $1 FOR UPDATE`, message.ConversationID,
		).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrConversationNotFound
			}
			return fmt.Errorf("lock conversation: %w", err)
		}
		if status == domain.ConversationEnded {
			return apperrors.ErrConversationClosed
		}

		if message.ClientID != nil {
			existing, err := findByClientID(ctx, tx, message)
			if err == nil {
				*message = *existing
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("lookup client id: %w", err)
			}
		}

		if message.ReplyToID != nil {
			var replyConversation int64
			err := tx.QueryRow(ctx,
				`SELECT conversation_id FROM messages WHERE id = $1`, *message.ReplyToID,
			).Scan(&replyConversation)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.ErrInvalidReplyTarget
				}
				return fmt.Errorf("lookup reply target: %w", err)
			}
			if replyConversation != message.ConversationID {
				return apperrors.ErrInvalidReplyTarget
			}
		}

		if err := insertMessage(ctx, tx, message); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		if message.ClientID != nil && isUniqueViolation(err) {
			// A concurrent send with the same client id won the insert.
			existing, lookupErr := findByClientID(ctx, r.db, message)
			if lookupErr == nil {
				*message = *existing
				return false, nil
			}
			err = lookupErr
		}
		if !isDomainError(err) {
			r.log.Error("Failed to create message", "error", err, "conversation_id", message.ConversationID)
		}
		return false, err
	}
	return created, nil
}

func findByClientID(ctx context.Context, q querier, message *domain.Message) (*domain.Message, error) {
	return scanMessage(q.QueryRow(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = $1 AND sender_type = $2 AND sender_id = $3 AND client_id = $4
	`, message.ConversationID, message.SenderType, message.SenderID, *message.ClientID))
}

func (r *messageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	m, err := scanMessage(r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		r.log.Error("Failed to get message", "error", err, "message_id", id)
		return nil, err
	}
	return m, nil
}

func (r *messageRepository) List(ctx context.Context, q domain.MessageQuery) ([]*domain.Message, error) {
	limit := clampLimit(q.Limit, 50, 200)

	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3
	`, q.ConversationID, q.AfterID, limit)
	if err != nil {
		r.log.Error("Failed to get messages", "error", err, "conversation_id", q.ConversationID)
		return nil, err
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID int64, senderType domain.ActorKind, before, readAt time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET status = 'read', read_at = $4
		WHERE conversation_id = $1
		  AND sender_type = $2
		  AND created_at <= $3
		  AND status <> 'read'
	`, conversationID, senderType, before, readAt)
	if err != nil {
		r.log.Error("Failed to mark messages read", "error", err, "conversation_id", conversationID)
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func isDomainError(err error) bool {
	return errors.Is(err, apperrors.ErrConversationNotFound) ||
		errors.Is(err, apperrors.ErrConversationClosed) ||
		errors.Is(err, apperrors.ErrInvalidReplyTarget) ||
		errors.Is(err, apperrors.ErrReferralNotFound) ||
		errors.Is(err, apperrors.ErrReferralAlreadyApproved) ||
		errors.Is(err, apperrors.ErrInsufficientPoints)
}
