// Package memory keeps every repository in process memory behind one mutex.
// It backs local runs without Postgres and the service tests.
package memory

import (
	"sync"

	"github.com/google/uuid"
	"volunteer_chat/internal/domain"
)

type Store struct {
	mu sync.Mutex

	conversations map[int64]*domain.Conversation
	messages      map[int64]*domain.Message
	byConv        map[int64][]int64
	profiles      map[domain.Actor]*domain.ActorProfile
	notifications map[uuid.UUID]*domain.Notification
	referrals     map[int64]*domain.Referral
	transactions  []*domain.PointTransaction
	featured      map[int64]*domain.FeaturedProject
	audit         []*domain.AuditLog

	nextConversation int64
	nextMessage      int64
	nextReferral     int64
	nextFeatured     int64
	nextAudit        int64
}

func NewStore() *Store {
	return &Store{
		conversations: make(map[int64]*domain.Conversation),
		messages:      make(map[int64]*domain.Message),
		byConv:        make(map[int64][]int64),
		profiles:      make(map[domain.Actor]*domain.ActorProfile),
		notifications: make(map[uuid.UUID]*domain.Notification),
		referrals:     make(map[int64]*domain.Referral),
		featured:      make(map[int64]*domain.FeaturedProject),
	}
}

func (s *Store) Conversations() *ConversationRepository { return &ConversationRepository{s: s} }
func (s *Store) Messages() *MessageRepository           { return &MessageRepository{s: s} }
func (s *Store) Profiles() *ProfileRepository           { return &ProfileRepository{s: s} }
func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s: s} }
func (s *Store) Ledger() *LedgerRepository              { return &LedgerRepository{s: s} }
func (s *Store) Featured() *FeaturedProjectRepository   { return &FeaturedProjectRepository{s: s} }
func (s *Store) Audit() *AuditRepository                { return &AuditRepository{s: s} }

// PutProfile seeds the display snapshot returned for an actor.
func (s *Store) PutProfile(p domain.ActorProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.profiles[p.Actor] = &cp
}

func ptr[T any](v T) *T { return &v }

func page[T any](items []T, limit, offset, def, max int) []T {
	if limit <= 0 || limit > max {
		limit = def
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return make([]T, 0)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func copyConversation(c *domain.Conversation) *domain.Conversation {
	cp := *c
	return &cp
}

func copyMessage(m *domain.Message) *domain.Message {
	cp := *m
	return &cp
}

func copyNotification(n *domain.Notification) *domain.Notification {
	cp := *n
	cp.Payload = make(map[string]any, len(n.Payload))
	for k, v := range n.Payload {
		cp.Payload[k] = v
	}
	return &cp
}
