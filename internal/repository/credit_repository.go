package repository

import (
	"context"
	"database/sql"
	"errors"
)

// CreditRepo stores per-course credit balances.  Rows are created lazily; a
// missing row means a zero balance.
type CreditRepo struct{ db *sql.DB }

func NewCreditRepo(db *sql.DB) *CreditRepo { return &CreditRepo{db: db} }

// BalanceForUpdateTx returns the balance and locks the row (or the gap where
// it would be) until tx ends.
func (r *CreditRepo) BalanceForUpdateTx(ctx context.Context, tx *sql.Tx, userID, courseKey string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT balance FROM user_credits WHERE user_id=? AND course_key=? FOR UPDATE",
		userID, courseKey).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// AddTx applies delta to the balance, creating the row when needed, and
// returns the new balance.  The CHECK constraint rejects negative results.
func (r *CreditRepo) AddTx(ctx context.Context, tx *sql.Tx, userID, courseKey string, delta int) (int, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_credits (user_id, course_key, balance) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE balance = balance + ?`,
		userID, courseKey, delta, delta); err != nil {
		return 0, err
	}
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT balance FROM user_credits WHERE user_id=? AND course_key=?",
		userID, courseKey).Scan(&n)
	return n, err
}

// ListByUser returns every stored balance of a user keyed by course display key.
func (r *CreditRepo) ListByUser(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT course_key, balance FROM user_credits WHERE user_id=? ORDER BY course_key", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}
