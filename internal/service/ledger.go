package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"volunteer_chat/internal/config"
	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/observability"
	"volunteer_chat/internal/repository"
	apperrors "volunteer_chat/pkg/errors"
	"volunteer_chat/pkg/logger"
)

type CreateReferralInput struct {
	ReferrerID     int64  `validate:"required,gt=0"`
	RefereeID      int64  `validate:"required,gt=0,nefield=ReferrerID"`
	OrganizationID *int64 `validate:"omitempty,gt=0"`
}

type RedeemInput struct {
	UserID    int64  `validate:"required,gt=0"`
	Points    int64  `validate:"required,gt=0"`
	BookingID *int64 `validate:"omitempty,gt=0"`
}

type LedgerService interface {
	CreateReferral(ctx context.Context, in CreateReferralInput) (*domain.Referral, error)
	// ApproveReferral credits referrer and referee in one transaction. A referral
	// that is no longer pending yields ErrReferralAlreadyApproved and writes nothing.
	ApproveReferral(ctx context.Context, admin domain.Actor, referralID int64) (*domain.Referral, []*domain.PointTransaction, error)
	RejectReferral(ctx context.Context, admin domain.Actor, referralID int64) (*domain.Referral, error)
	Balance(ctx context.Context, userID int64) (domain.Balance, error)
	History(ctx context.Context, userID int64, limit, offset int) ([]*domain.PointTransaction, error)
	Redeem(ctx context.Context, in RedeemInput) (domain.Balance, error)
}

type ledgerService struct {
	ledgerRepo    repository.LedgerRepository
	notifications NotificationService
	audit         AuditService
	cfg           config.LedgerConfig
	log           logger.Logger
}

func NewLedgerService(ledgerRepo repository.LedgerRepository, notifications NotificationService, audit AuditService, cfg config.LedgerConfig, log logger.Logger) LedgerService {
	return &ledgerService{
		ledgerRepo:    ledgerRepo,
		notifications: notifications,
		audit:         audit,
		cfg:           cfg,
		log:           log,
	}
}

func (s *ledgerService) CreateReferral(ctx context.Context, in CreateReferralInput) (*domain.Referral, error) {
	if in.ReferrerID > 0 && in.ReferrerID == in.RefereeID {
		return nil, apperrors.ErrSelfReferral
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	ref := &domain.Referral{
		ReferrerID:     in.ReferrerID,
		RefereeID:      in.RefereeID,
		OrganizationID: in.OrganizationID,
		Status:         domain.ReferralPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.ledgerRepo.CreateReferral(ctx, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// rewards builds the two credits and their notifications for an approved referral.
func (s *ledgerService) rewards(ref *domain.Referral) ([]*domain.PointTransaction, []*domain.Notification) {
	at := time.Now().UTC()
	if ref.DecidedAt != nil {
		at = *ref.DecidedAt
	}

	entries := []*domain.PointTransaction{
		{
			UserID:         ref.ReferrerID,
			Direction:      domain.Credit,
			Points:         s.cfg.ReferrerPoints,
			Reason:         domain.ReasonReferralReferrer,
			ReferralID:     &ref.ID,
			OrganizationID: ref.OrganizationID,
			CreatedAt:      at,
		},
		{
			UserID:         ref.RefereeID,
			Direction:      domain.Credit,
			Points:         s.cfg.RefereePoints,
			Reason:         domain.ReasonReferralReferee,
			ReferralID:     &ref.ID,
			OrganizationID: ref.OrganizationID,
			CreatedAt:      at,
		},
	}

	notifications := make([]*domain.Notification, 0, len(entries))
	for _, e := range entries {
		n, err := s.notifications.Build(ReferralApproved(e.UserID, ref, e.Points))
		if err != nil {
			s.log.Warn("Skipping referral notification", "error", err, "user_id", e.UserID)
			continue
		}
		notifications = append(notifications, n)
	}
	return entries, notifications
}

func (s *ledgerService) ApproveReferral(ctx context.Context, admin domain.Actor, referralID int64) (*domain.Referral, []*domain.PointTransaction, error) {
	ctx, span := observability.Tracer().Start(ctx, "ledger.ApproveReferral")
	defer span.End()
	span.SetAttributes(attribute.Int64("referral.id", referralID))

	if !admin.IsAdmin() {
		return nil, nil, apperrors.ErrForbidden
	}

	ref, entries, err := s.ledgerRepo.ApproveReferral(ctx, referralID, admin.ID, time.Now().UTC(), s.rewards)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	for _, e := range entries {
		observability.LedgerEntries.WithLabelValues(string(e.Direction)).Inc()
	}
	observability.NotificationsCreated.WithLabelValues(string(domain.NotificationReferralApproved)).Add(float64(len(entries)))
	record(ctx, s.audit, s.log, admin, nil, domain.EventTypeReferralApproved, map[string]any{
		"referral_id": ref.ID,
		"referrer_id": ref.ReferrerID,
		"referee_id":  ref.RefereeID,
	})

	s.log.Info("Referral approved", "referral_id", ref.ID, "admin_id", admin.ID)

	return ref, entries, nil
}

func (s *ledgerService) RejectReferral(ctx context.Context, admin domain.Actor, referralID int64) (*domain.Referral, error) {
	if !admin.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	ref, err := s.ledgerRepo.RejectReferral(ctx, referralID, admin.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	record(ctx, s.audit, s.log, admin, nil, domain.EventTypeReferralRejected, map[string]any{"referral_id": ref.ID})

	return ref, nil
}

func (s *ledgerService) Balance(ctx context.Context, userID int64) (domain.Balance, error) {
	return s.ledgerRepo.Balance(ctx, userID)
}

func (s *ledgerService) History(ctx context.Context, userID int64, limit, offset int) ([]*domain.PointTransaction, error) {
	return s.ledgerRepo.ListTransactions(ctx, userID, limit, offset)
}

func (s *ledgerService) Redeem(ctx context.Context, in RedeemInput) (domain.Balance, error) {
	if err := validateStruct(in); err != nil {
		return domain.Balance{}, err
	}

	entry := &domain.PointTransaction{
		UserID:    in.UserID,
		Direction: domain.Debit,
		Points:    in.Points,
		Reason:    domain.ReasonRedemption,
		BookingID: in.BookingID,
		CreatedAt: time.Now().UTC(),
	}

	balance, err := s.ledgerRepo.Debit(ctx, entry)
	if err != nil {
		return balance, err
	}

	observability.LedgerEntries.WithLabelValues(string(domain.Debit)).Inc()
	return balance, nil
}
