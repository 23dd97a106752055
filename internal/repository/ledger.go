package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"volunteer_chat/internal/domain"
	apperrors "volunteer_chat/pkg/errors"
	"volunteer_chat/pkg/logger"
)

const (
	referralColumns    = `id, referrer_id, referee_id, organization_id, status, decided_by, decided_at, created_at`
	transactionColumns = `id, user_id, direction, points, reason, referral_id, organization_id, booking_id, created_at`
)

type ledgerRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewLedgerRepository(db *pgxpool.Pool, log logger.Logger) LedgerRepository {
	return &ledgerRepository{db: db, log: log}
}

func scanReferral(row pgx.Row) (*domain.Referral, error) {
	ref := &domain.Referral{}
	err := row.Scan(&ref.ID, &ref.ReferrerID, &ref.RefereeID, &ref.OrganizationID,
		&ref.Status, &ref.DecidedBy, &ref.DecidedAt, &ref.CreatedAt)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func scanTransaction(row pgx.Row) (*domain.PointTransaction, error) {
	t := &domain.PointTransaction{}
	err := row.Scan(&t.ID, &t.UserID, &t.Direction, &t.Points, &t.Reason,
		&t.ReferralID, &t.OrganizationID, &t.BookingID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func insertTransaction(ctx context.Context, q querier, t *domain.PointTransaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO point_transactions (id, user_id, direction, points, reason, referral_id, organization_id, booking_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.UserID, t.Direction, t.Points, t.Reason, t.ReferralID, t.OrganizationID, t.BookingID, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert point transaction: %w", err)
	}
	return nil
}

func balanceOf(ctx context.Context, q querier, userID int64) (domain.Balance, error) {
	b := domain.Balance{UserID: userID}
	err := q.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(points) FILTER (WHERE direction = 'credit'), 0),
			COALESCE(SUM(points) FILTER (WHERE direction = 'debit'), 0)
		FROM point_transactions
		WHERE user_id = $1
	`, userID).Scan(&b.Credits, &b.Debits)
	if err != nil {
		return b, fmt.Errorf("sum balance: %w", err)
	}
	b.Balance = b.Credits - b.Debits
	return b, nil
}

func (r *ledgerRepository) CreateReferral(ctx context.Context, ref *domain.Referral) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO referrals (referrer_id, referee_id, organization_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, ref.ReferrerID, ref.RefereeID, ref.OrganizationID, ref.Status, ref.CreatedAt).Scan(&ref.ID, &ref.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrReferralExists
		}
		r.log.Error("Failed to create referral", "error", err, "referee_id", ref.RefereeID)
		return err
	}
	return nil
}

func (r *ledgerRepository) GetReferral(ctx context.Context, id int64) (*domain.Referral, error) {
	ref, err := scanReferral(r.db.QueryRow(ctx, `SELECT `+referralColumns+` FROM referrals WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrReferralNotFound
		}
		r.log.Error("Failed to get referral", "error", err, "referral_id", id)
		return nil, err
	}
	return ref, nil
}

func (r *ledgerRepository) ApproveReferral(ctx context.Context, id, adminID int64, at time.Time, rewards ReferralRewards) (*domain.Referral, []*domain.PointTransaction, error) {
	var (
		ref     *domain.Referral
		entries []*domain.PointTransaction
	)
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		ref, err = lockPendingReferral(ctx, tx, id)
		if err != nil {
			return err
		}

		ref.Status = domain.ReferralApproved
		ref.DecidedBy = &adminID
		ref.DecidedAt = &at

		var notifications []*domain.Notification
		entries, notifications = rewards(ref)
		for _, e := range entries {
			if err := insertTransaction(ctx, tx, e); err != nil {
				return err
			}
		}
		for _, n := range notifications {
			if err := insertNotification(ctx, tx, n); err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `
			UPDATE referrals SET status = 'approved', decided_by = $2, decided_at = $3 WHERE id = $1
		`, id, adminID, at)
		if err != nil {
			return fmt.Errorf("update referral: %w", err)
		}
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			r.log.Error("Failed to approve referral", "error", err, "referral_id", id)
		}
		return nil, nil, err
	}
	return ref, entries, nil
}

func (r *ledgerRepository) RejectReferral(ctx context.Context, id, adminID int64, at time.Time) (*domain.Referral, error) {
	var ref *domain.Referral
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		ref, err = lockPendingReferral(ctx, tx, id)
		if err != nil {
			return err
		}
		ref.Status = domain.ReferralRejected
		ref.DecidedBy = &adminID
		ref.DecidedAt = &at

		_, err = tx.Exec(ctx, `
			UPDATE referrals SET status = 'rejected', decided_by = $2, decided_at = $3 WHERE id = $1
		`, id, adminID, at)
		return err
	})
	if err != nil {
		if !isDomainError(err) {
			r.log.Error("Failed to reject referral", "error", err, "referral_id", id)
		}
		return nil, err
	}
	return ref, nil
}

func lockPendingReferral(ctx context.Context, tx pgx.Tx, id int64) (*domain.Referral, error) {
	ref, err := scanReferral(tx.QueryRow(ctx,
		`SELECT `+referralColumns+` FROM referrals WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrReferralNotFound
		}
		return nil, fmt.Errorf("lock referral: %w", err)
	}
	if ref.Status != domain.ReferralPending {
		return nil, apperrors.ErrReferralAlreadyApproved
	}
	return ref, nil
}

func (r *ledgerRepository) Balance(ctx context.Context, userID int64) (domain.Balance, error) {
	b, err := balanceOf(ctx, r.db, userID)
	if err != nil {
		r.log.Error("Failed to get balance", "error", err, "user_id", userID)
		return b, err
	}
	return b, nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*domain.PointTransaction, error) {
	limit = clampLimit(limit, 20, 100)

	rows, err := r.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM point_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list point transactions", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.PointTransaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			r.log.Error("Failed to scan point transaction", "error", err)
			return nil, err
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}

func (r *ledgerRepository) Debit(ctx context.Context, entry *domain.PointTransaction) (domain.Balance, error) {
	var b domain.Balance
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		// Serializes debits per user so two redemptions cannot both pass the balance check.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, entry.UserID); err != nil {
			return fmt.Errorf("lock balance: %w", err)
		}

		var err error
		b, err = balanceOf(ctx, tx, entry.UserID)
		if err != nil {
			return err
		}
		if b.Balance < entry.Points {
			return apperrors.ErrInsufficientPoints
		}

		entry.Direction = domain.Debit
		if err := insertTransaction(ctx, tx, entry); err != nil {
			return err
		}
		b.Debits += entry.Points
		b.Balance -= entry.Points
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			r.log.Error("Failed to debit points", "error", err, "user_id", entry.UserID)
		}
		return b, err
	}
	return b, nil
}
