package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func beginTx(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock) *sql.Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)
	return tx
}

func TestBookingInsertDuplicateMapsToErrDuplicate(t *testing.T) {
	db, mock := newMock(t)
	tx := beginTx(t, db, mock)

	mock.ExpectExec("INSERT INTO bookings").
		WithArgs("u1", uint64(7), "/pottery", model.OriginCreditRedeemed).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := NewBookingRepo(db).InsertTx(context.Background(), tx, &model.Booking{
		UserID: "u1", EventID: 7, CoursePath: "/pottery", Origin: model.OriginCreditRedeemed,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingLockMissing(t *testing.T) {
	db, mock := newMock(t)
	tx := beginTx(t, db, mock)

	mock.ExpectQuery("SELECT id, user_id, event_id, course_path, origin, created_at FROM bookings WHERE id=\\? FOR UPDATE").
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "event_id", "course_path", "origin", "created_at"}))

	_, err := NewBookingRepo(db).LockTx(context.Background(), tx, 99)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCreditBalanceMissingRowIsZero(t *testing.T) {
	db, mock := newMock(t)
	tx := beginTx(t, db, mock)

	mock.ExpectQuery("SELECT balance FROM user_credits").
		WithArgs("u1", "pottery tuesdays").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}))

	n, err := NewCreditRepo(db).BalanceForUpdateTx(context.Background(), tx, "u1", "pottery tuesdays")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCreditAddReturnsNewBalance(t *testing.T) {
	db, mock := newMock(t)
	tx := beginTx(t, db, mock)

	mock.ExpectExec("INSERT INTO user_credits").
		WithArgs("u1", "pottery tuesdays", 7, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT balance FROM user_credits").
		WithArgs("u1", "pottery tuesdays").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(7))

	n, err := NewCreditRepo(db).AddTx(context.Background(), tx, "u1", "pottery tuesdays", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoLockScansNullableColumns(t *testing.T) {
	db, mock := newMock(t)
	tx := beginTx(t, db, mock)

	cols := []string{"code", "course_path", "discount_type", "discount_value", "limit_type", "max_uses", "expires_on", "times_used", "created_at"}
	mock.ExpectQuery("SELECT .* FROM promo_codes WHERE code=\\? FOR UPDATE").
		WithArgs("WELCOME").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("WELCOME", nil, "free", 0, "uses", 1, nil, 0, time.Now()))

	p, err := NewPromoRepo(db).LockTx(context.Background(), tx, "WELCOME")
	require.NoError(t, err)
	assert.Equal(t, "", p.CoursePath)
	require.NotNil(t, p.MaxUses)
	assert.Equal(t, 1, *p.MaxUses)
	assert.Nil(t, p.ExpiresOn)
}

func TestPromoCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO promo_codes").
		WillReturnError(&mysql.MySQLError{Number: 1062})

	maxUses := 3
	err := NewPromoRepo(db).Create(context.Background(), &model.PromoCode{
		Code: "SPRING", DiscountType: model.DiscountPercent, DiscountValue: 10, LimitType: model.LimitUses, MaxUses: &maxUses,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCheckoutLockDecodesPayload(t *testing.T) {
	db, mock := newMock(t)
	tx := beginTx(t, db, mock)

	cols := []string{"reference", "stripe_session_id", "user_id", "guest", "mode", "course_path", "pack_size", "event_ids",
		"promo_code", "amount_cents", "lang", "status", "result_balance", "created_at", "fulfilled_at"}
	mock.ExpectQuery("SELECT .* FROM checkout_sessions WHERE reference=\\? FOR UPDATE").
		WithArgs("ref-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("ref-1", "cs_test", nil, []byte(`{"firstName":"Ada","lastName":"L","email":"ada@example.com"}`),
			"pack", "/pottery", 10, []byte(`[3,4]`), nil, 30000, "de", "pending", nil, time.Now(), nil))

	s, err := NewCheckoutRepo(db).LockTx(context.Background(), tx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 4}, s.EventIDs)
	require.NotNil(t, s.Guest)
	assert.Equal(t, "ada@example.com", s.Guest.Email)
	assert.Equal(t, "", s.UserID)
	assert.Nil(t, s.ResultBalance)
}

func TestRentalRequestSlotNotAvailable(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM rental_slots WHERE id=\\? FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.RentalPending))
	mock.ExpectRollback()

	err := NewRentalRepo(db).RequestSlot(context.Background(), &model.RentRequest{SlotID: 5, Name: "A", Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRejectFreesSlot(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, slot_id, name, email, message, status, created_at FROM rent_requests").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slot_id", "name", "email", "message", "status", "created_at"}).
			AddRow(2, 5, "A", "a@example.com", "", model.RentalPending, time.Now()))
	mock.ExpectExec("UPDATE rent_requests SET status=\\?").WithArgs(model.RentalRejected, uint64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE rental_slots SET status=\\?").WithArgs(model.RentalAvailable, uint64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := NewRentalRepo(db).Decide(context.Background(), 2, false)
	require.NoError(t, err)
	assert.Equal(t, model.RentalRejected, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var profileRow = []string{"id", "email", "first_name", "last_name", "phone", "role", "is_guest", "created_at", "updated_at"}

func TestUpsertGuestRefusesRegisteredEmail(t *testing.T) {
	db, mock := newMock(t)
	tx := beginTx(t, db, mock)
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM profiles WHERE email=\\? FOR UPDATE").
		WithArgs("anna@example.com").
		WillReturnRows(sqlmock.NewRows(profileRow).
			AddRow("u1", "anna@example.com", "Anna", "Berg", nil, model.RoleUser, false, now, now))

	p, err := NewProfileRepo(db).UpsertGuestTx(context.Background(), tx, model.GuestInfo{FirstName: "Mallory", Email: " Anna@Example.com"})
	assert.ErrorIs(t, err, ErrEmailRegistered)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertGuestRefreshesGuestProfile(t *testing.T) {
	db, mock := newMock(t)
	tx := beginTx(t, db, mock)
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM profiles WHERE email=\\? FOR UPDATE").
		WithArgs("gina@example.com").
		WillReturnRows(sqlmock.NewRows(profileRow).
			AddRow("g1", "gina@example.com", "G", "", nil, model.RoleUser, true, now, now))
	mock.ExpectExec("UPDATE profiles SET first_name").
		WithArgs("Gina", "Gast", sqlmock.AnyArg(), "g1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .* FROM profiles WHERE id=\\?").
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows(profileRow).
			AddRow("g1", "gina@example.com", "Gina", "Gast", nil, model.RoleUser, true, now, now))

	p, err := NewProfileRepo(db).UpsertGuestTx(context.Background(), tx, model.GuestInfo{FirstName: "Gina", LastName: "Gast", Email: "gina@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "g1", p.ID)
	assert.Equal(t, "Gina", p.FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
