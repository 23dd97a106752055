package memory

import (
	"context"
	"time"

	"volunteer_chat/internal/domain"
	apperrors "volunteer_chat/pkg/errors"
)

type MessageRepository struct {
	s *Store
}

// insertMessage requires s.mu held.
func (s *Store) insertMessage(m *domain.Message) {
	s.nextMessage++
	m.ID = s.nextMessage
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.messages[m.ID] = copyMessage(m)
	s.byConv[m.ConversationID] = append(s.byConv[m.ConversationID], m.ID)
	if c, ok := s.conversations[m.ConversationID]; ok && m.CreatedAt.After(c.UpdatedAt) {
		c.UpdatedAt = m.CreatedAt
	}
}

func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[message.ConversationID]
	if !ok {
		return false, apperrors.ErrConversationNotFound
	}
	if c.Status == domain.ConversationEnded {
		return false, apperrors.ErrConversationClosed
	}

	if message.ClientID != nil {
		for _, id := range r.s.byConv[message.ConversationID] {
			m := r.s.messages[id]
			if m.ClientID != nil && *m.ClientID == *message.ClientID &&
				m.SenderType == message.SenderType && m.SenderID == message.SenderID {
				*message = *copyMessage(m)
				return false, nil
			}
		}
	}

	if message.ReplyToID != nil {
		target, ok := r.s.messages[*message.ReplyToID]
		if !ok || target.ConversationID != message.ConversationID {
			return false, apperrors.ErrInvalidReplyTarget
		}
	}

	r.s.insertMessage(message)
	return true, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, apperrors.ErrMessageNotFound
	}
	return copyMessage(m), nil
}

func (r *MessageRepository) List(ctx context.Context, q domain.MessageQuery) ([]*domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Message, 0)
	for _, id := range r.s.byConv[q.ConversationID] {
		if id > q.AfterID {
			out = append(out, copyMessage(r.s.messages[id]))
		}
	}
	return page(out, q.Limit, 0, 50, 200), nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, conversationID int64, senderType domain.ActorKind, before, readAt time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	updated := 0
	for _, id := range r.s.byConv[conversationID] {
		m := r.s.messages[id]
		if m.SenderType != senderType || m.CreatedAt.After(before) || m.Status == domain.MessageRead {
			continue
		}
		m.Status = domain.MessageRead
		m.ReadAt = ptr(readAt)
		updated++
	}
	return updated, nil
}
