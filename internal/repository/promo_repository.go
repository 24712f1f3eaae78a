package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/model"
)

// PromoRepo manages promo_codes.  Codes are passed in already normalized.
type PromoRepo struct{ db *sql.DB }

func NewPromoRepo(db *sql.DB) *PromoRepo { return &PromoRepo{db: db} }

const promoCols = "code, course_path, discount_type, discount_value, limit_type, max_uses, expires_on, times_used, created_at"

func scanPromo(row interface{ Scan(...any) error }) (*model.PromoCode, error) {
	var (
		p       model.PromoCode
		path    sql.NullString
		maxUses sql.NullInt64
		expires sql.NullTime
	)
	if err := row.Scan(&p.Code, &path, &p.DiscountType, &p.DiscountValue, &p.LimitType, &maxUses, &expires, &p.TimesUsed, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromoNotFound
		}
		return nil, err
	}
	p.CoursePath = path.String
	if maxUses.Valid {
		n := int(maxUses.Int64)
		p.MaxUses = &n
	}
	if expires.Valid {
		t := expires.Time
		p.ExpiresOn = &t
	}
	return &p, nil
}

// Create inserts a new code; an existing code yields ErrDuplicate.
func (r *PromoRepo) Create(ctx context.Context, p *model.PromoCode) error {
	var (
		maxUses sql.NullInt64
		expires sql.NullString
	)
	if p.MaxUses != nil {
		maxUses = sql.NullInt64{Int64: int64(*p.MaxUses), Valid: true}
	}
	if p.ExpiresOn != nil {
		expires = sql.NullString{String: p.ExpiresOn.Format(dateLayout), Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO promo_codes (code, course_path, discount_type, discount_value, limit_type, max_uses, expires_on)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Code, nullString(&p.CoursePath), p.DiscountType, p.DiscountValue, p.LimitType, maxUses, expires)
	if err != nil {
		if database.IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	p.CreatedAt = time.Now().UTC()
	return nil
}

// Get returns a code without locking.
func (r *PromoRepo) Get(ctx context.Context, code string) (*model.PromoCode, error) {
	return scanPromo(r.db.QueryRowContext(ctx, "SELECT "+promoCols+" FROM promo_codes WHERE code=?", code))
}

// LockTx reads a code with FOR UPDATE so concurrent redemptions of the last
// use queue behind each other.
func (r *PromoRepo) LockTx(ctx context.Context, tx *sql.Tx, code string) (*model.PromoCode, error) {
	return scanPromo(tx.QueryRowContext(ctx, "SELECT "+promoCols+" FROM promo_codes WHERE code=? FOR UPDATE", code))
}

// IncrementUseTx bumps times_used of a locked code.
func (r *PromoRepo) IncrementUseTx(ctx context.Context, tx *sql.Tx, code string) error {
	res, err := tx.ExecContext(ctx, "UPDATE promo_codes SET times_used = times_used + 1 WHERE code=?", code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPromoNotFound
	}
	return nil
}

// List returns all codes, newest first.
func (r *PromoRepo) List(ctx context.Context) ([]model.PromoCode, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+promoCols+" FROM promo_codes ORDER BY created_at DESC, code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Delete removes a code.
func (r *PromoRepo) Delete(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM promo_codes WHERE code=?", code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPromoNotFound
	}
	return nil
}
