package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/utils"
)

// UserRepo manages login credentials of the built-in identity issuer.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Signup carries everything needed to open an account.
type Signup struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	Role      string
}

// Create inserts the credentials and the profile in one transaction and
// returns the new user id.  A guest profile with the same email is promoted
// to a full profile so earlier guest bookings carry over.
func (r *UserRepo) Create(ctx context.Context, s Signup, cost int) (string, error) {
	email := strings.ToLower(strings.TrimSpace(s.Email))
	hash, err := utils.HashPassword(s.Password, cost)
	if err != nil {
		return "", err
	}
	role := s.Role
	if role == "" {
		role = model.RoleUser
	}

	var id string
	err = database.RunInTx(ctx, r.DB, 3, func(tx *sql.Tx) error {
		var (
			existingID string
			isGuest    bool
		)
		err := tx.QueryRowContext(ctx,
			"SELECT id, is_guest FROM profiles WHERE email=? FOR UPDATE", email).
			Scan(&existingID, &isGuest)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id = uuid.NewString()
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO profiles (id, email, first_name, last_name, phone, role, is_guest) VALUES (?,?,?,?,?,?,0)",
				id, email, s.FirstName, s.LastName, nullString(s.Phone), role); err != nil {
				return err
			}
		case err != nil:
			return err
		case !isGuest:
			return ErrEmailExists
		default:
			id = existingID
			if _, err := tx.ExecContext(ctx,
				"UPDATE profiles SET first_name=?, last_name=?, phone=?, role=?, is_guest=0 WHERE id=?",
				s.FirstName, s.LastName, nullString(s.Phone), role, id); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO users (id, email, password_hash, role) VALUES (?,?,?,?)",
			id, email, hash, role); err != nil {
			if database.IsDuplicate(err) {
				return ErrEmailExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
