package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/checkout"
	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/ledger"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/utils"
)

type apiError struct {
	status int
	code   string
}

// errorTable maps known errors to the status and machine code the client
// switches on.  Order matters only for errors that wrap each other.
var errorTable = []struct {
	err error
	apiError
}{
	// ledger preconditions
	{ledger.ErrUserNotFound, apiError{http.StatusNotFound, "user_not_found"}},
	{ledger.ErrCourseNotFound, apiError{http.StatusNotFound, "course_not_found"}},
	{ledger.ErrEventNotFound, apiError{http.StatusNotFound, "event_not_found"}},
	{ledger.ErrEventUnavailable, apiError{http.StatusConflict, "event_unavailable"}},
	{ledger.ErrAlreadyBooked, apiError{http.StatusConflict, "already_booked"}},
	{ledger.ErrCapacityExceeded, apiError{http.StatusConflict, "capacity_exceeded"}},
	{ledger.ErrInsufficientCredits, apiError{http.StatusPaymentRequired, "insufficient_credits"}},
	{ledger.ErrEmptySelection, apiError{http.StatusBadRequest, "empty_selection"}},
	{ledger.ErrTooManySelections, apiError{http.StatusBadRequest, "too_many_selections"}},
	{ledger.ErrInvalidPackSize, apiError{http.StatusBadRequest, "invalid_pack_size"}},
	{ledger.ErrBookingNotFound, apiError{http.StatusNotFound, "booking_not_found"}},
	{ledger.ErrNotOwner, apiError{http.StatusForbidden, "not_owner"}},
	{ledger.ErrLeadTime, apiError{http.StatusConflict, "lead_time"}},
	{ledger.ErrEventHasBookings, apiError{http.StatusConflict, "event_has_bookings"}},
	{ledger.ErrCheckoutNotFound, apiError{http.StatusNotFound, "checkout_not_found"}},
	{ledger.ErrEmailRegistered, apiError{http.StatusConflict, "sign_in_required"}},
	{ledger.ErrPromoNotFound, apiError{http.StatusNotFound, "promo_not_found"}},
	{ledger.ErrPromoExhausted, apiError{http.StatusGone, "promo_exhausted"}},
	{ledger.ErrPromoExpired, apiError{http.StatusGone, "promo_expired"}},
	{ledger.ErrPromoWrongCourse, apiError{http.StatusConflict, "promo_wrong_course"}},
	{ledger.ErrPromoNotRedeemable, apiError{http.StatusConflict, "promo_not_redeemable"}},

	// checkout
	{checkout.ErrInvalidMode, apiError{http.StatusBadRequest, "invalid_request"}},
	{checkout.ErrGuestRequired, apiError{http.StatusBadRequest, "guest_required"}},
	{checkout.ErrPackDisabled, apiError{http.StatusConflict, "pack_disabled"}},
	{checkout.ErrPriceChanged, apiError{http.StatusConflict, "price_changed"}},
	{checkout.ErrUseRedeem, apiError{http.StatusConflict, "use_redeem"}},
	{checkout.ErrZeroAmount, apiError{http.StatusConflict, "zero_amount"}},
	{checkout.ErrPaymentPending, apiError{http.StatusPaymentRequired, "payment_pending"}},
	{checkout.ErrInvalidSignature, apiError{http.StatusBadRequest, "invalid_signature"}},

	// repositories
	{repository.ErrEmailExists, apiError{http.StatusConflict, "email_taken"}},
	{repository.ErrDuplicate, apiError{http.StatusConflict, "duplicate"}},
	{repository.ErrConflict, apiError{http.StatusConflict, "conflict"}},
	{repository.ErrProfileNotFound, apiError{http.StatusNotFound, "user_not_found"}},
	{repository.ErrCourseNotFound, apiError{http.StatusNotFound, "course_not_found"}},
	{repository.ErrEventNotFound, apiError{http.StatusNotFound, "event_not_found"}},
	{repository.ErrBookingNotFound, apiError{http.StatusNotFound, "booking_not_found"}},
	{repository.ErrPromoNotFound, apiError{http.StatusNotFound, "promo_not_found"}},
	{repository.ErrRentalNotFound, apiError{http.StatusNotFound, "not_found"}},

	// input rules enforced below the handlers
	{model.ErrInvalidPack, apiError{http.StatusBadRequest, "invalid_request"}},
	{model.ErrInvalidPricingMode, apiError{http.StatusBadRequest, "invalid_request"}},
	{model.ErrInvalidDuration, apiError{http.StatusBadRequest, "invalid_request"}},
	{model.ErrInvalidPrice, apiError{http.StatusBadRequest, "invalid_request"}},
	{model.ErrInvalidCapacity, apiError{http.StatusBadRequest, "invalid_request"}},
	{utils.ErrPasswordTooShort, apiError{http.StatusBadRequest, "invalid_request"}},
	{utils.ErrPasswordTooLong, apiError{http.StatusBadRequest, "invalid_request"}},

	// transient
	{database.ErrTxConflict, apiError{http.StatusServiceUnavailable, "retry"}},
	{context.DeadlineExceeded, apiError{http.StatusServiceUnavailable, "retry"}},
}

func classify(err error) (apiError, bool) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.apiError, true
		}
	}
	return apiError{}, false
}

// fail writes err as {"error","code"}.  Unknown errors are logged and hidden
// behind a generic 500.
func fail(c echo.Context, log *zap.Logger, err error) error {
	ae, ok := classify(err)
	if !ok {
		if log != nil {
			log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": "internal"})
	}
	msg := err.Error()
	if ae.code == "retry" {
		msg = "temporarily unavailable, please retry"
		if log != nil {
			log.Warn("transient failure", zap.String("path", c.Path()), zap.Error(err))
		}
	}
	return c.JSON(ae.status, echo.Map{"error": msg, "code": ae.code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "invalid_request"})
}

// normalizer is implemented by requests that clean up their fields before
// validation.
type normalizer interface{ normalize() }

// bindValid binds the body into dst, normalizes it and runs the registered
// validator.  It returns the message to report, or "" when dst is usable.
func bindValid(c echo.Context, dst interface{}) string {
	if err := c.Bind(dst); err != nil {
		return "invalid body"
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := c.Validate(dst); err != nil {
		return err.Error()
	}
	return ""
}
