package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

// CheckoutRepo persists pending hosted checkouts until payment is verified.
type CheckoutRepo struct{ db *sql.DB }

func NewCheckoutRepo(db *sql.DB) *CheckoutRepo { return &CheckoutRepo{db: db} }

const checkoutCols = `reference, stripe_session_id, user_id, guest, mode, course_path, pack_size, event_ids,
	promo_code, amount_cents, lang, status, result_balance, created_at, fulfilled_at`

func scanCheckout(row interface{ Scan(...any) error }) (*model.CheckoutSession, error) {
	var (
		s         model.CheckoutSession
		sessionID sql.NullString
		userID    sql.NullString
		guest     []byte
		eventIDs  []byte
		promo     sql.NullString
		balance   sql.NullInt64
		fulfilled sql.NullTime
	)
	if err := row.Scan(&s.Reference, &sessionID, &userID, &guest, &s.Mode, &s.CoursePath, &s.PackSize, &eventIDs,
		&promo, &s.AmountCents, &s.Lang, &s.Status, &balance, &s.CreatedAt, &fulfilled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCheckoutNotFound
		}
		return nil, err
	}
	s.StripeSessionID = sessionID.String
	s.UserID = userID.String
	s.PromoCode = promo.String
	if len(guest) > 0 && string(guest) != "null" {
		s.Guest = &model.GuestInfo{}
		if err := json.Unmarshal(guest, s.Guest); err != nil {
			return nil, err
		}
	}
	if len(eventIDs) > 0 {
		if err := json.Unmarshal(eventIDs, &s.EventIDs); err != nil {
			return nil, err
		}
	}
	if balance.Valid {
		n := int(balance.Int64)
		s.ResultBalance = &n
	}
	if fulfilled.Valid {
		t := fulfilled.Time
		s.FulfilledAt = &t
	}
	return &s, nil
}

// Create stores a pending checkout.
func (r *CheckoutRepo) Create(ctx context.Context, s *model.CheckoutSession) error {
	var guest []byte
	if s.Guest != nil {
		b, err := json.Marshal(s.Guest)
		if err != nil {
			return err
		}
		guest = b
	}
	ids := s.EventIDs
	if ids == nil {
		ids = []uint64{}
	}
	eventIDs, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if s.Status == "" {
		s.Status = model.CheckoutPending
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO checkout_sessions (reference, user_id, guest, mode, course_path, pack_size, event_ids, promo_code, amount_cents, lang, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Reference, nullString(&s.UserID), guest, s.Mode, s.CoursePath, s.PackSize, eventIDs,
		nullString(&s.PromoCode), s.AmountCents, s.Lang, s.Status)
	if err != nil {
		return err
	}
	s.CreatedAt = time.Now().UTC()
	return nil
}

// AttachStripeSession records the processor's session id on a checkout.
func (r *CheckoutRepo) AttachStripeSession(ctx context.Context, reference, sessionID string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE checkout_sessions SET stripe_session_id=? WHERE reference=?", sessionID, reference)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCheckoutNotFound
	}
	return nil
}

// GetByReference reads a checkout without locking.
func (r *CheckoutRepo) GetByReference(ctx context.Context, reference string) (*model.CheckoutSession, error) {
	return scanCheckout(r.db.QueryRowContext(ctx, "SELECT "+checkoutCols+" FROM checkout_sessions WHERE reference=?", reference))
}

// LockTx reads a checkout with FOR UPDATE; fulfillment holds it for the
// whole transaction so webhook and confirm calls cannot both apply it.
func (r *CheckoutRepo) LockTx(ctx context.Context, tx *sql.Tx, reference string) (*model.CheckoutSession, error) {
	return scanCheckout(tx.QueryRowContext(ctx, "SELECT "+checkoutCols+" FROM checkout_sessions WHERE reference=? FOR UPDATE", reference))
}

// FinishTx marks a checkout fulfilled or credited and records who received it.
func (r *CheckoutRepo) FinishTx(ctx context.Context, tx *sql.Tx, reference, status, userID string, balance *int, at time.Time) error {
	var bal sql.NullInt64
	if balance != nil {
		bal = sql.NullInt64{Int64: int64(*balance), Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		"UPDATE checkout_sessions SET status=?, user_id=?, result_balance=?, fulfilled_at=? WHERE reference=?",
		status, userID, bal, at.UTC(), reference)
	return err
}
