package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/repository/memory"
	"volunteer_chat/pkg/logger"
)

type ConversationRepository interface {
	// Create stores a new conversation together with its first message in one transaction.
	Create(ctx context.Context, conv *domain.Conversation, first *domain.Message) error
	GetByID(ctx context.Context, id int64) (*domain.Conversation, error)
	List(ctx context.Context, actor domain.Actor, filter domain.ConversationFilter) ([]*domain.Conversation, error)
	// Claim moves a requested conversation to active for the given admin.
	// Only one concurrent caller can win; the rest get ErrConversationAlreadyClaimed.
	Claim(ctx context.Context, id, adminID int64, at time.Time) (*domain.Conversation, error)
	End(ctx context.Context, id, adminID int64, at time.Time) (*domain.Conversation, error)
}

type MessageRepository interface {
	// Create checks that the conversation is not ended and that the reply
	// target belongs to it, then inserts, all under one transaction. A repeated
	// client id from the same sender returns the stored message and created=false.
	Create(ctx context.Context, message *domain.Message) (created bool, err error)
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	List(ctx context.Context, q domain.MessageQuery) ([]*domain.Message, error)
	MarkRead(ctx context.Context, conversationID int64, senderType domain.ActorKind, before, readAt time.Time) (int, error)
}

type ProfileRepository interface {
	Lookup(ctx context.Context, actor domain.Actor) (*domain.ActorProfile, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, userID int64, filter domain.NotificationFilter) ([]*domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID int64, id uuid.UUID, at time.Time) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int, error)
}

// ReferralRewards builds the ledger entries and notifications written when a referral is approved.
type ReferralRewards = func(ref *domain.Referral) ([]*domain.PointTransaction, []*domain.Notification)

type LedgerRepository interface {
	CreateReferral(ctx context.Context, ref *domain.Referral) error
	GetReferral(ctx context.Context, id int64) (*domain.Referral, error)
	// ApproveReferral locks the referral, requires it to be pending and writes
	// the rewards and the status change atomically.
	ApproveReferral(ctx context.Context, id, adminID int64, at time.Time, rewards ReferralRewards) (*domain.Referral, []*domain.PointTransaction, error)
	RejectReferral(ctx context.Context, id, adminID int64, at time.Time) (*domain.Referral, error)
	Balance(ctx context.Context, userID int64) (domain.Balance, error)
	ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*domain.PointTransaction, error)
	// Debit appends a debit entry only if the derived balance covers it.
	Debit(ctx context.Context, entry *domain.PointTransaction) (domain.Balance, error)
}

type FeaturedProjectRepository interface {
	Create(ctx context.Context, f *domain.FeaturedProject) error
	// ExpireDue flips due rows to expired and stores one notification per row in the same transaction.
	ExpireDue(ctx context.Context, now time.Time, limit int, notify func(*domain.FeaturedProject) *domain.Notification) ([]*domain.FeaturedProject, error)
}

type Repositories struct {
	Conversation ConversationRepository
	Message      MessageRepository
	Profile      ProfileRepository
	Notification NotificationRepository
	Ledger       LedgerRepository
	Featured     FeaturedProjectRepository
	Audit        AuditRepository
	RateLimit    RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{
		Conversation: NewConversationRepository(db, log),
		Message:      NewMessageRepository(db, log),
		Profile:      NewProfileRepository(db, log),
		Notification: NewNotificationRepository(db, log),
		Ledger:       NewLedgerRepository(db, log),
		Featured:     NewFeaturedProjectRepository(db, log),
		Audit:        NewAuditRepository(db, log),
		RateLimit:    NewRateLimitRepository(redis, log),
	}

	log.Info("Postgres repositories initialized")

	return repos
}

// NewMemoryRepositories wires the in-process store used for local runs and tests.
func NewMemoryRepositories(log logger.Logger) *Repositories {
	store := memory.NewStore()

	log.Warn("Using in-memory repositories; data is lost on restart")

	return &Repositories{
		Conversation: store.Conversations(),
		Message:      store.Messages(),
		Profile:      store.Profiles(),
		Notification: store.Notifications(),
		Ledger:       store.Ledger(),
		Featured:     store.Featured(),
		Audit:        store.Audit(),
		RateLimit:    memory.NewRateLimiter(),
	}
}
