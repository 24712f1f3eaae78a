package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/model"
)

// ProfileRepo reads and writes the profiles table.
type ProfileRepo struct{ db *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileCols = "id, email, first_name, last_name, phone, role, is_guest, created_at, updated_at"

func scanProfile(row interface{ Scan(...any) error }) (*model.Profile, error) {
	var (
		p     model.Profile
		phone sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &phone, &p.Role, &p.IsGuest, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	p.Phone = stringPtr(phone)
	return &p, nil
}

// GetByID returns the profile for an identity.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return scanProfile(r.db.QueryRowContext(ctx, "SELECT "+profileCols+" FROM profiles WHERE id=?", id))
}

// GetByIDTx is GetByID inside tx.
func (r *ProfileRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.Profile, error) {
	return scanProfile(tx.QueryRowContext(ctx, "SELECT "+profileCols+" FROM profiles WHERE id=?", id))
}

// GetByEmail returns the profile registered under email.
func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanProfile(r.db.QueryRowContext(ctx, "SELECT "+profileCols+" FROM profiles WHERE email=?", email))
}

// UpsertGuestTx returns the guest profile for g.Email, creating one when none
// exists.  Existing guest profiles take the newest contact details.  An email
// owned by a registered profile yields ErrEmailRegistered.
func (r *ProfileRepo) UpsertGuestTx(ctx context.Context, tx *sql.Tx, g model.GuestInfo) (*model.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(g.Email))
	p, err := scanProfile(tx.QueryRowContext(ctx, "SELECT "+profileCols+" FROM profiles WHERE email=? FOR UPDATE", email))
	phone := sql.NullString{String: g.Phone, Valid: g.Phone != ""}
	switch {
	case errors.Is(err, ErrProfileNotFound):
		id := uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO profiles (id, email, first_name, last_name, phone, role, is_guest) VALUES (?,?,?,?,?,?,1)",
			id, email, g.FirstName, g.LastName, phone, model.RoleUser); err != nil {
			return nil, err
		}
		return r.GetByIDTx(ctx, tx, id)
	case err != nil:
		return nil, err
	case !p.IsGuest:
		return nil, ErrEmailRegistered
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE profiles SET first_name=?, last_name=?, phone=COALESCE(?, phone) WHERE id=?",
		g.FirstName, g.LastName, phone, p.ID); err != nil {
		return nil, err
	}
	return r.GetByIDTx(ctx, tx, p.ID)
}

// Update edits the contact fields of a profile.
func (r *ProfileRepo) Update(ctx context.Context, id, firstName, lastName string, phone *string) (*model.Profile, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE profiles SET first_name=?, last_name=?, phone=? WHERE id=?",
		firstName, lastName, nullString(phone), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for unchanged rows too; confirm the profile exists.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// UpdateEmail changes the email on both the profile and, when present, the
// credentials row.
func (r *ProfileRepo) UpdateEmail(ctx context.Context, id, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	return database.RunInTx(ctx, r.db, 3, func(tx *sql.Tx) error {
		if _, err := r.GetByIDTx(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE profiles SET email=? WHERE id=?", email, id); err != nil {
			if database.IsDuplicate(err) {
				return ErrEmailExists
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE users SET email=? WHERE id=?", email, id); err != nil {
			if database.IsDuplicate(err) {
				return ErrEmailExists
			}
			return err
		}
		return nil
	})
}
