package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"volunteer_chat/internal/domain"
	apperrors "volunteer_chat/pkg/errors"
)

type LedgerRepository struct {
	s *Store
}

func (r *LedgerRepository) CreateReferral(ctx context.Context, ref *domain.Referral) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.referrals {
		if existing.RefereeID == ref.RefereeID {
			return apperrors.ErrReferralExists
		}
	}

	r.s.nextReferral++
	ref.ID = r.s.nextReferral
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now().UTC()
	}
	cp := *ref
	r.s.referrals[ref.ID] = &cp
	return nil
}

func (r *LedgerRepository) GetReferral(ctx context.Context, id int64) (*domain.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ref, ok := r.s.referrals[id]
	if !ok {
		return nil, apperrors.ErrReferralNotFound
	}
	cp := *ref
	return &cp, nil
}

func (r *LedgerRepository) pending(id int64) (*domain.Referral, error) {
	ref, ok := r.s.referrals[id]
	if !ok {
		return nil, apperrors.ErrReferralNotFound
	}
	if ref.Status != domain.ReferralPending {
		return nil, apperrors.ErrReferralAlreadyApproved
	}
	return ref, nil
}

func (r *LedgerRepository) ApproveReferral(ctx context.Context, id, adminID int64, at time.Time,
	rewards func(*domain.Referral) ([]*domain.PointTransaction, []*domain.Notification),
) (*domain.Referral, []*domain.PointTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ref, err := r.pending(id)
	if err != nil {
		return nil, nil, err
	}

	decided := *ref
	decided.Status = domain.ReferralApproved
	decided.DecidedBy = ptr(adminID)
	decided.DecidedAt = ptr(at)

	entries, notifications := rewards(&decided)
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		cp := *e
		r.s.transactions = append(r.s.transactions, &cp)
	}
	for _, n := range notifications {
		r.s.insertNotification(n)
	}
	*ref = decided

	out := decided
	return &out, entries, nil
}

func (r *LedgerRepository) RejectReferral(ctx context.Context, id, adminID int64, at time.Time) (*domain.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ref, err := r.pending(id)
	if err != nil {
		return nil, err
	}
	ref.Status = domain.ReferralRejected
	ref.DecidedBy = ptr(adminID)
	ref.DecidedAt = ptr(at)

	cp := *ref
	return &cp, nil
}

func (r *LedgerRepository) Balance(ctx context.Context, userID int64) (domain.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return domain.SumBalance(userID, r.s.transactions), nil
}

func (r *LedgerRepository) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*domain.PointTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*domain.PointTransaction, 0)
	for _, t := range r.s.transactions {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset, 20, 100), nil
}

func (r *LedgerRepository) Debit(ctx context.Context, entry *domain.PointTransaction) (domain.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b := domain.SumBalance(entry.UserID, r.s.transactions)
	if b.Balance < entry.Points {
		return b, apperrors.ErrInsufficientPoints
	}

	entry.Direction = domain.Debit
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	cp := *entry
	r.s.transactions = append(r.s.transactions, &cp)

	b.Debits += entry.Points
	b.Balance -= entry.Points
	return b, nil
}
