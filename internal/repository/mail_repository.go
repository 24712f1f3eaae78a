package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

// MailRepo is the outbound mail queue table.  Rows are written inside
// ledger transactions and later handed to the broker by the relay.
type MailRepo struct{ db *sql.DB }

func NewMailRepo(db *sql.DB) *MailRepo { return &MailRepo{db: db} }

// InsertTx queues m as part of tx.
func (r *MailRepo) InsertTx(ctx context.Context, tx *sql.Tx, m *model.MailMessage) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO mail (recipient, subject, html) VALUES (?, ?, ?)", m.To, m.Subject, m.HTML)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// ListPending returns up to limit rows not yet relayed, oldest first.
func (r *MailRepo) ListPending(ctx context.Context, limit int) ([]model.MailMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, recipient, subject, html, created_at FROM mail WHERE relayed_at IS NULL ORDER BY id LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MailMessage
	for rows.Next() {
		var m model.MailMessage
		if err := rows.Scan(&m.ID, &m.To, &m.Subject, &m.HTML, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRelayed stamps a row as handed to the broker.
func (r *MailRepo) MarkRelayed(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE mail SET relayed_at=? WHERE id=? AND relayed_at IS NULL", at.UTC(), id)
	return err
}
