package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/model"
)

// BookingRepo stores bookings.  The unique key (user_id, event_id) enforces
// the at-most-one booking per occurrence rule.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// InsertTx creates b and sets its ID.  A second booking of the same
// occurrence by the same user yields ErrDuplicate.
func (r *BookingRepo) InsertTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO bookings (user_id, event_id, course_path, origin) VALUES (?, ?, ?, ?)",
		b.UserID, b.EventID, b.CoursePath, b.Origin)
	if err != nil {
		if database.IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// CountByEventTx counts bookings of an occurrence.  Callers hold the event
// row lock, so the count cannot change before they commit.
func (r *BookingRepo) CountByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings WHERE event_id=?", eventID).Scan(&n)
	return n, err
}

// ExistsTx reports whether userID already booked eventID.
func (r *BookingRepo) ExistsTx(ctx context.Context, tx *sql.Tx, userID string, eventID uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		"SELECT 1 FROM bookings WHERE user_id=? AND event_id=? LIMIT 1", userID, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Exists is ExistsTx outside a transaction, used for advisory checks.
func (r *BookingRepo) Exists(ctx context.Context, userID string, eventID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM bookings WHERE user_id=? AND event_id=? LIMIT 1", userID, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// CountByEvent counts bookings of an occurrence without locking.
func (r *BookingRepo) CountByEvent(ctx context.Context, eventID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings WHERE event_id=?", eventID).Scan(&n)
	return n, err
}

// LockTx reads a booking with FOR UPDATE.
func (r *BookingRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	var b model.Booking
	err := tx.QueryRowContext(ctx,
		"SELECT id, user_id, event_id, course_path, origin, created_at FROM bookings WHERE id=? FOR UPDATE", id).
		Scan(&b.ID, &b.UserID, &b.EventID, &b.CoursePath, &b.Origin, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteTx removes a booking.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

const bookingDetailQuery = `
	SELECT b.id, b.user_id, b.event_id, b.course_path, b.origin, b.created_at,
	       e.event_date, e.time_label, e.title_en, e.title_de,
	       p.email, CONCAT_WS(' ', p.first_name, p.last_name)
	FROM bookings b
	JOIN events e   ON e.id = b.event_id
	JOIN profiles p ON p.id = b.user_id`

func (r *BookingRepo) listDetails(ctx context.Context, q querier, where string, arg any) ([]model.BookingDetail, error) {
	rows, err := q.QueryContext(ctx, bookingDetailQuery+" WHERE "+where+" ORDER BY e.event_date, b.id", arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BookingDetail
	for rows.Next() {
		var d model.BookingDetail
		if err := rows.Scan(&d.ID, &d.UserID, &d.EventID, &d.CoursePath, &d.Origin, &d.CreatedAt,
			&d.EventDate, &d.TimeLabel, &d.TitleEN, &d.TitleDE, &d.UserEmail, &d.UserName); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListByUser returns a user's bookings with their occurrence dates.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, r.db, "b.user_id = ?", userID)
}

// ListByEvent returns the participants of an occurrence.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, r.db, "b.event_id = ?", eventID)
}

// ListByEventTx is ListByEvent inside tx, locking the booking rows.
func (r *BookingRepo) ListByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) ([]model.Booking, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, user_id, event_id, course_path, origin, created_at FROM bookings WHERE event_id=? ORDER BY id FOR UPDATE", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.EventID, &b.CoursePath, &b.Origin, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
