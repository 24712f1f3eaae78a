package ledger

import (
	"context"
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

// Store runs ledger work atomically.  InTx either commits everything fn did
// or nothing; implementations may replay fn after a write conflict, so fn
// must not have side effects outside tx.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of reads and writes available inside a ledger transaction.
// Lock* reads hold the row until the transaction ends.  Missing rows are
// reported with the repository package's sentinel errors.
type Tx interface {
	Profile(ctx context.Context, userID string) (*model.Profile, error)
	UpsertGuest(ctx context.Context, g model.GuestInfo) (*model.Profile, error)
	CourseSettings(ctx context.Context, coursePath string) (*model.CourseSettings, error)

	LockEvent(ctx context.Context, eventID uint64) (*model.Event, error)
	DeleteEvent(ctx context.Context, eventID uint64) error
	CountBookings(ctx context.Context, eventID uint64) (int, error)
	HasBooking(ctx context.Context, userID string, eventID uint64) (bool, error)
	EventBookings(ctx context.Context, eventID uint64) ([]model.Booking, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	LockBooking(ctx context.Context, bookingID uint64) (*model.Booking, error)
	DeleteBooking(ctx context.Context, bookingID uint64) error

	LockCredits(ctx context.Context, userID, courseKey string) (int, error)
	AddCredits(ctx context.Context, userID, courseKey string, delta int) (int, error)

	LockPromo(ctx context.Context, code string) (*model.PromoCode, error)
	IncrementPromo(ctx context.Context, code string) error

	LockCheckout(ctx context.Context, reference string) (*model.CheckoutSession, error)
	FinishCheckout(ctx context.Context, reference, status, userID string, balance *int, at time.Time) error

	EnqueueMail(ctx context.Context, m *model.MailMessage) error
}

// Reader serves the ledger's read-only listings outside transactions.
type Reader interface {
	Balances(ctx context.Context, userID string) (map[string]int, error)
	UserBookings(ctx context.Context, userID string) ([]model.BookingDetail, error)
	EventBookings(ctx context.Context, eventID uint64) ([]model.BookingDetail, error)
}
