package ledger

import "errors"

// Rejections.  Each one is a precondition failure the caller can show to the
// user; none of them is worth retrying unchanged.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCourseNotFound      = errors.New("course not found")
	ErrEventNotFound       = errors.New("event not found")
	ErrEventUnavailable    = errors.New("event is not bookable for this course")
	ErrAlreadyBooked       = errors.New("event already booked by this user")
	ErrCapacityExceeded    = errors.New("selection no longer available")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrEmptySelection      = errors.New("no events selected")
	ErrTooManySelections   = errors.New("more events selected than the pack holds")
	ErrInvalidPackSize     = errors.New("pack size must be positive")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrNotOwner            = errors.New("booking belongs to another user")
	ErrLeadTime            = errors.New("cancellation window has closed")
	ErrEventHasBookings    = errors.New("event still has bookings")
	ErrCheckoutNotFound    = errors.New("checkout not found")
	ErrEmailRegistered     = errors.New("email belongs to a registered account, sign in first")

	ErrPromoNotFound      = errors.New("promo code not found")
	ErrPromoExhausted     = errors.New("promo code exhausted")
	ErrPromoExpired       = errors.New("promo code expired")
	ErrPromoWrongCourse   = errors.New("promo code not valid for this course")
	ErrPromoNotRedeemable = errors.New("promo code is a discount, not a pack code")
)

var rejections = []error{
	ErrUserNotFound, ErrCourseNotFound, ErrEventNotFound, ErrEventUnavailable, ErrAlreadyBooked,
	ErrCapacityExceeded, ErrInsufficientCredits, ErrEmptySelection, ErrTooManySelections,
	ErrInvalidPackSize, ErrBookingNotFound, ErrNotOwner, ErrLeadTime, ErrEventHasBookings,
	ErrCheckoutNotFound, ErrEmailRegistered, ErrPromoNotFound, ErrPromoExhausted, ErrPromoExpired,
	ErrPromoWrongCourse, ErrPromoNotRedeemable,
}

// IsRejection reports whether err is one of the ledger's precondition failures.
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

// selectionLost reports whether a paid checkout can no longer be booked as
// chosen and should be turned into credits instead.
func selectionLost(err error) bool {
	return errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrAlreadyBooked) ||
		errors.Is(err, ErrEventUnavailable) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrCourseNotFound) ||
		errors.Is(err, ErrTooManySelections)
}
