package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// SQLStore implements Store and Reader on MySQL.  Transactions are replayed
// on deadlock or lock wait timeout up to attempts times.
type SQLStore struct {
	db       *sql.DB
	attempts int

	profiles  *repository.ProfileRepo
	courses   *repository.CourseRepo
	events    *repository.EventRepo
	bookings  *repository.BookingRepo
	credits   *repository.CreditRepo
	promos    *repository.PromoRepo
	checkouts *repository.CheckoutRepo
	mail      *repository.MailRepo
}

// NewSQLStore wires the repositories the ledger needs around db.
func NewSQLStore(db *sql.DB, attempts int) *SQLStore {
	return &SQLStore{
		db:        db,
		attempts:  attempts,
		profiles:  repository.NewProfileRepo(db),
		courses:   repository.NewCourseRepo(db),
		events:    repository.NewEventRepo(db),
		bookings:  repository.NewBookingRepo(db),
		credits:   repository.NewCreditRepo(db),
		promos:    repository.NewPromoRepo(db),
		checkouts: repository.NewCheckoutRepo(db),
		mail:      repository.NewMailRepo(db),
	}
}

// InTx implements Store.
func (s *SQLStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return database.RunInTx(ctx, s.db, s.attempts, func(tx *sql.Tx) error {
		return fn(ctx, &sqlTx{s: s, tx: tx})
	})
}

func (s *SQLStore) Balances(ctx context.Context, userID string) (map[string]int, error) {
	return s.credits.ListByUser(ctx, userID)
}

func (s *SQLStore) UserBookings(ctx context.Context, userID string) ([]model.BookingDetail, error) {
	return s.bookings.ListByUser(ctx, userID)
}

func (s *SQLStore) EventBookings(ctx context.Context, eventID uint64) ([]model.BookingDetail, error) {
	return s.bookings.ListByEvent(ctx, eventID)
}

type sqlTx struct {
	s  *SQLStore
	tx *sql.Tx
}

func (t *sqlTx) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	return t.s.profiles.GetByIDTx(ctx, t.tx, userID)
}

func (t *sqlTx) UpsertGuest(ctx context.Context, g model.GuestInfo) (*model.Profile, error) {
	return t.s.profiles.UpsertGuestTx(ctx, t.tx, g)
}

func (t *sqlTx) CourseSettings(ctx context.Context, coursePath string) (*model.CourseSettings, error) {
	return t.s.courses.GetTx(ctx, t.tx, coursePath)
}

func (t *sqlTx) LockEvent(ctx context.Context, eventID uint64) (*model.Event, error) {
	return t.s.events.LockTx(ctx, t.tx, eventID)
}

func (t *sqlTx) DeleteEvent(ctx context.Context, eventID uint64) error {
	return t.s.events.DeleteTx(ctx, t.tx, eventID)
}

func (t *sqlTx) CountBookings(ctx context.Context, eventID uint64) (int, error) {
	return t.s.bookings.CountByEventTx(ctx, t.tx, eventID)
}

func (t *sqlTx) HasBooking(ctx context.Context, userID string, eventID uint64) (bool, error) {
	return t.s.bookings.ExistsTx(ctx, t.tx, userID, eventID)
}

func (t *sqlTx) EventBookings(ctx context.Context, eventID uint64) ([]model.Booking, error) {
	return t.s.bookings.ListByEventTx(ctx, t.tx, eventID)
}

func (t *sqlTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.InsertTx(ctx, t.tx, b)
}

func (t *sqlTx) LockBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	return t.s.bookings.LockTx(ctx, t.tx, bookingID)
}

func (t *sqlTx) DeleteBooking(ctx context.Context, bookingID uint64) error {
	return t.s.bookings.DeleteTx(ctx, t.tx, bookingID)
}

func (t *sqlTx) LockCredits(ctx context.Context, userID, courseKey string) (int, error) {
	return t.s.credits.BalanceForUpdateTx(ctx, t.tx, userID, courseKey)
}

func (t *sqlTx) AddCredits(ctx context.Context, userID, courseKey string, delta int) (int, error) {
	return t.s.credits.AddTx(ctx, t.tx, userID, courseKey, delta)
}

func (t *sqlTx) LockPromo(ctx context.Context, code string) (*model.PromoCode, error) {
	return t.s.promos.LockTx(ctx, t.tx, code)
}

func (t *sqlTx) IncrementPromo(ctx context.Context, code string) error {
	return t.s.promos.IncrementUseTx(ctx, t.tx, code)
}

func (t *sqlTx) LockCheckout(ctx context.Context, reference string) (*model.CheckoutSession, error) {
	return t.s.checkouts.LockTx(ctx, t.tx, reference)
}

func (t *sqlTx) FinishCheckout(ctx context.Context, reference, status, userID string, balance *int, at time.Time) error {
	return t.s.checkouts.FinishTx(ctx, t.tx, reference, status, userID, balance, at)
}

func (t *sqlTx) EnqueueMail(ctx context.Context, m *model.MailMessage) error {
	return t.s.mail.InsertTx(ctx, t.tx, m)
}
