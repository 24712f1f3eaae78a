package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/studio-booking/internal/model"
)

// CourseRepo manages course_settings rows keyed by normalized course path.
type CourseRepo struct{ db *sql.DB }

func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{db: db} }

const courseCols = `course_path, price_single_cents, pack_price_cents, pack_size, pack_enabled,
	capacity_limit, visible, pricing_mode, duration_minutes`

func scanCourse(row interface{ Scan(...any) error }) (*model.CourseSettings, error) {
	var (
		s   model.CourseSettings
		capLimit sql.NullInt64
	)
	err := row.Scan(&s.CoursePath, &s.PriceSingleCents, &s.PackPriceCents, &s.PackSize, &s.PackEnabled,
		&capLimit, &s.Visible, &s.PricingMode, &s.DurationMinutes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	if capLimit.Valid {
		n := int(capLimit.Int64)
		s.CapacityLimit = &n
	}
	return &s, nil
}

func (r *CourseRepo) get(ctx context.Context, q querier, path string) (*model.CourseSettings, error) {
	return scanCourse(q.QueryRowContext(ctx, "SELECT "+courseCols+" FROM course_settings WHERE course_path=?", path))
}

// Get returns the settings of one course.
func (r *CourseRepo) Get(ctx context.Context, path string) (*model.CourseSettings, error) {
	return r.get(ctx, r.db, path)
}

// GetTx reads settings inside tx.  Settings are admin-edited only, so no lock
// is taken.
func (r *CourseRepo) GetTx(ctx context.Context, tx *sql.Tx, path string) (*model.CourseSettings, error) {
	return r.get(ctx, tx, path)
}

// List returns all stored settings ordered by path.
func (r *CourseRepo) List(ctx context.Context) ([]model.CourseSettings, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+courseCols+" FROM course_settings ORDER BY course_path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CourseSettings
	for rows.Next() {
		s, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Upsert creates or replaces the settings of s.CoursePath.
func (r *CourseRepo) Upsert(ctx context.Context, s model.CourseSettings) error {
	var capLimit sql.NullInt64
	if s.CapacityLimit != nil {
		capLimit = sql.NullInt64{Int64: int64(*s.CapacityLimit), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO course_settings (`+courseCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			price_single_cents = VALUES(price_single_cents),
			pack_price_cents   = VALUES(pack_price_cents),
			pack_size          = VALUES(pack_size),
			pack_enabled       = VALUES(pack_enabled),
			capacity_limit     = VALUES(capacity_limit),
			visible            = VALUES(visible),
			pricing_mode       = VALUES(pricing_mode),
			duration_minutes   = VALUES(duration_minutes)`,
		s.CoursePath, s.PriceSingleCents, s.PackPriceCents, s.PackSize, s.PackEnabled,
		capLimit, s.Visible, s.PricingMode, s.DurationMinutes)
	return err
}
