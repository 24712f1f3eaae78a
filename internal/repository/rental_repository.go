package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/model"
)

// RentalRepo manages rental_slots and rent_requests.
type RentalRepo struct{ db *sql.DB }

func NewRentalRepo(db *sql.DB) *RentalRepo { return &RentalRepo{db: db} }

// CreateSlot inserts an available slot.
func (r *RentalRepo) CreateSlot(ctx context.Context, s *model.RentalSlot) error {
	s.Status = model.RentalAvailable
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO rental_slots (slot_date, time_label, note, status) VALUES (?, ?, ?, ?)",
		s.Date.Format(dateLayout), s.TimeLabel, s.Note, s.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// ListSlots returns slots dated on or after from.  An empty status lists all.
func (r *RentalRepo) ListSlots(ctx context.Context, from time.Time, status string) ([]model.RentalSlot, error) {
	q := "SELECT id, slot_date, time_label, note, status, created_at FROM rental_slots WHERE slot_date >= ?"
	args := []any{from.Format(dateLayout)}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status)
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY slot_date, time_label, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RentalSlot
	for rows.Next() {
		var s model.RentalSlot
		if err := rows.Scan(&s.ID, &s.Date, &s.TimeLabel, &s.Note, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteSlot removes a slot and its requests.
func (r *RentalRepo) DeleteSlot(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM rental_slots WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRentalNotFound
	}
	return nil
}

// ListRequests returns rent requests, newest first.  An empty status lists all.
func (r *RentalRepo) ListRequests(ctx context.Context, status string) ([]model.RentRequest, error) {
	q := "SELECT id, slot_id, name, email, message, status, created_at FROM rent_requests"
	var args []any
	if status != "" {
		q += " WHERE status = ?"
		args = append(args, status)
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY created_at DESC, id DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RentRequest
	for rows.Next() {
		var rq model.RentRequest
		if err := rows.Scan(&rq.ID, &rq.SlotID, &rq.Name, &rq.Email, &rq.Message, &rq.Status, &rq.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rq)
	}
	return out, rows.Err()
}

// RequestSlot moves an available slot to pending and records the request.
// A slot in any other state yields ErrConflict.
func (r *RentalRepo) RequestSlot(ctx context.Context, req *model.RentRequest) error {
	return database.RunInTx(ctx, r.db, 3, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, "SELECT status FROM rental_slots WHERE id=? FOR UPDATE", req.SlotID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRentalNotFound
		}
		if err != nil {
			return err
		}
		if status != model.RentalAvailable {
			return ErrConflict
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO rent_requests (slot_id, name, email, message, status) VALUES (?, ?, ?, ?, ?)",
			req.SlotID, req.Name, req.Email, req.Message, model.RentalPending)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		req.ID = uint64(id)
		req.Status = model.RentalPending
		_, err = tx.ExecContext(ctx, "UPDATE rental_slots SET status=? WHERE id=?", model.RentalPending, req.SlotID)
		return err
	})
}

// Decide approves or rejects a pending request.  Approval marks the slot
// approved; rejection frees it again.
func (r *RentalRepo) Decide(ctx context.Context, requestID uint64, approve bool) (*model.RentRequest, error) {
	var out model.RentRequest
	err := database.RunInTx(ctx, r.db, 3, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			"SELECT id, slot_id, name, email, message, status, created_at FROM rent_requests WHERE id=? FOR UPDATE", requestID).
			Scan(&out.ID, &out.SlotID, &out.Name, &out.Email, &out.Message, &out.Status, &out.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRentalNotFound
		}
		if err != nil {
			return err
		}
		if out.Status != model.RentalPending {
			return ErrConflict
		}
		reqStatus, slotStatus := model.RentalApproved, model.RentalApproved
		if !approve {
			reqStatus, slotStatus = model.RentalRejected, model.RentalAvailable
		}
		if _, err := tx.ExecContext(ctx, "UPDATE rent_requests SET status=? WHERE id=?", reqStatus, requestID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE rental_slots SET status=? WHERE id=?", slotStatus, out.SlotID); err != nil {
			return err
		}
		out.Status = reqStatus
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
