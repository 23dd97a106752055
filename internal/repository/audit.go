package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"volunteer_chat/internal/domain"
	"volunteer_chat/pkg/logger"
)

type AuditRepository interface {
	CreateLog(ctx context.Context, log *domain.AuditLog) error
	ListByConversation(ctx context.Context, conversationID int64) ([]*domain.AuditLog, error)
}

type auditRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAuditRepository(db *pgxpool.Pool, log logger.Logger) AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) CreateLog(ctx context.Context, auditLog *domain.AuditLog) error {
	query := `
		INSERT INTO audit_log (event_time, actor_type, actor_id, conversation_id, event_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		auditLog.EventTime, auditLog.ActorType, auditLog.ActorID,
		auditLog.ConversationID, auditLog.EventType, auditLog.Payload,
	).Scan(&auditLog.ID)

	if err != nil {
		r.log.Error("Failed to create audit log", "error", err, "event_type", auditLog.EventType)
		return err
	}

	return nil
}

func (r *auditRepository) ListByConversation(ctx context.Context, conversationID int64) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, event_time, actor_type, actor_id, conversation_id, event_type, payload
		FROM audit_log
		WHERE conversation_id = $1
		ORDER BY event_time ASC, id ASC
	`, conversationID)
	if err != nil {
		r.log.Error("Failed to list audit log", "error", err, "conversation_id", conversationID)
		return nil, err
	}
	defer rows.Close()

	logs := make([]*domain.AuditLog, 0)
	for rows.Next() {
		l := &domain.AuditLog{}
		if err := rows.Scan(&l.ID, &l.EventTime, &l.ActorType, &l.ActorID, &l.ConversationID, &l.EventType, &l.Payload); err != nil {
			r.log.Error("Failed to scan audit log", "error", err)
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
