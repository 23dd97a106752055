package memory

import (
	"context"

	"volunteer_chat/internal/domain"
)

type AuditRepository struct {
	s *Store
}

func (r *AuditRepository) CreateLog(ctx context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextAudit++
	log.ID = r.s.nextAudit
	cp := *log
	r.s.audit = append(r.s.audit, &cp)
	return nil
}

func (r *AuditRepository) ListByConversation(ctx context.Context, conversationID int64) ([]*domain.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.AuditLog, 0)
	for _, l := range r.s.audit {
		if l.ConversationID != nil && *l.ConversationID == conversationID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}
