package memory

import (
	"context"
	"sort"
	"time"

	"volunteer_chat/internal/domain"
	apperrors "volunteer_chat/pkg/errors"
)

type ConversationRepository struct {
	s *Store
}

func (r *ConversationRepository) Create(ctx context.Context, conv *domain.Conversation, first *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextConversation++
	conv.ID = r.s.nextConversation
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}
	conv.UpdatedAt = conv.CreatedAt
	r.s.conversations[conv.ID] = copyConversation(conv)

	if first != nil {
		first.ConversationID = conv.ID
		r.s.insertMessage(first)
	}
	return nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	return copyConversation(c), nil
}

func (r *ConversationRepository) List(ctx context.Context, actor domain.Actor, filter domain.ConversationFilter) ([]*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.Conversation, 0)
	for _, c := range r.s.conversations {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if actor.IsAdmin() {
			if c.Status != domain.ConversationRequested && (c.AdminID == nil || *c.AdminID != actor.ID) {
				continue
			}
		} else if c.UserID != actor.ID {
			continue
		}
		out = append(out, copyConversation(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return page(out, filter.Limit, filter.Offset, 20, 100), nil
}

func (r *ConversationRepository) Claim(ctx context.Context, id, adminID int64, at time.Time) (*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	switch c.Status {
	case domain.ConversationEnded:
		return nil, apperrors.ErrConversationClosed
	case domain.ConversationActive:
		return nil, apperrors.ErrConversationAlreadyClaimed
	}

	c.Status = domain.ConversationActive
	c.AdminID = ptr(adminID)
	c.AcceptedAt = ptr(at)
	c.UpdatedAt = at
	return copyConversation(c), nil
}

func (r *ConversationRepository) End(ctx context.Context, id, adminID int64, at time.Time) (*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	if c.Status == domain.ConversationEnded {
		return nil, apperrors.ErrInvalidTransition
	}
	if c.Status == domain.ConversationActive && (c.AdminID == nil || *c.AdminID != adminID) {
		return nil, apperrors.ErrNotParticipant
	}

	c.Status = domain.ConversationEnded
	c.EndedAt = ptr(at)
	c.EndedByAdminID = ptr(adminID)
	c.UpdatedAt = at
	return copyConversation(c), nil
}
