package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

// EventRepo manages dated occurrences.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying sql.DB for callers that span repositories in one
// transaction.
func (r *EventRepo) DB() *sql.DB { return r.db }

// EventSummary is an occurrence with its current booking count.
type EventSummary struct {
	model.Event
	Booked int
}

const eventCols = "id, event_date, time_label, title_en, title_de, course_path, external_link, kind, created_at"

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var (
		e    model.Event
		path sql.NullString
		link sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Date, &e.TimeLabel, &e.TitleEN, &e.TitleDE, &path, &link, &e.Kind, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	e.CoursePath = stringPtr(path)
	e.ExternalLink = stringPtr(link)
	return &e, nil
}

// Create inserts e and sets its ID.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (event_date, time_label, title_en, title_de, course_path, external_link, kind)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Date.Format(dateLayout), e.TimeLabel, e.TitleEN, e.TitleDE, nullString(e.CoursePath), nullString(e.ExternalLink), e.Kind)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// Update replaces the editable fields of e.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET event_date=?, time_label=?, title_en=?, title_de=?, course_path=?, external_link=?, kind=?
		 WHERE id=?`,
		e.Date.Format(dateLayout), e.TimeLabel, e.TitleEN, e.TitleDE, nullString(e.CoursePath), nullString(e.ExternalLink), e.Kind, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, e.ID); err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns an occurrence without locking.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, "SELECT "+eventCols+" FROM events WHERE id=?", id))
}

// LockTx reads an occurrence with FOR UPDATE.  Every booking path locks the
// event row first, which serializes bookers of the same occurrence.
func (r *EventRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error) {
	return scanEvent(tx.QueryRowContext(ctx, "SELECT "+eventCols+" FROM events WHERE id=? FOR UPDATE", id))
}

// DeleteTx removes an occurrence; bookings cascade.
func (r *EventRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM events WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// PurgeBefore deletes every occurrence dated before day and returns how many went.
func (r *EventRepo) PurgeBefore(ctx context.Context, day time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE event_date < ?", day.Format(dateLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListRange returns occurrences dated in [from, to] with booking counts.  An
// empty coursePath lists every kind.
func (r *EventRepo) ListRange(ctx context.Context, from, to time.Time, coursePath string) ([]EventSummary, error) {
	q := `SELECT e.id, e.event_date, e.time_label, e.title_en, e.title_de, e.course_path, e.external_link, e.kind, e.created_at,
	             (SELECT COUNT(*) FROM bookings b WHERE b.event_id = e.id)
	      FROM events e
	      WHERE e.event_date BETWEEN ? AND ?`
	args := []any{from.Format(dateLayout), to.Format(dateLayout)}
	if coursePath != "" {
		q += " AND e.course_path = ?"
		args = append(args, coursePath)
	}
	q += " ORDER BY e.event_date, e.time_label, e.id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventSummary
	for rows.Next() {
		var (
			s    EventSummary
			path sql.NullString
			link sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Date, &s.TimeLabel, &s.TitleEN, &s.TitleDE, &path, &link, &s.Kind, &s.CreatedAt, &s.Booked); err != nil {
			return nil, err
		}
		s.CoursePath = stringPtr(path)
		s.ExternalLink = stringPtr(link)
		out = append(out, s)
	}
	return out, rows.Err()
}
