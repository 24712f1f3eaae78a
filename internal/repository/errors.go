// Package repository holds the MySQL data access layer.  Sentinel errors
// defined here let the ledger and handlers tell missing rows and conflicts
// apart from infrastructure failures.
package repository

import "errors"

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrCourseNotFound   = errors.New("course settings not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrPromoNotFound    = errors.New("promo code not found")
	ErrCheckoutNotFound = errors.New("checkout session not found")
	ErrRentalNotFound   = errors.New("rental not found")
)

// ErrDuplicate is returned when an insert hits a unique key, e.g. a second
// booking for the same (user, event) pair or an existing promo code.
var ErrDuplicate = errors.New("duplicate entry")

// ErrEmailExists is returned when registering or changing to a taken email.
var ErrEmailExists = errors.New("email already exists")

// ErrEmailRegistered is returned when guest contact details name the email of
// a registered account.  Guests never act on a registered profile.
var ErrEmailRegistered = errors.New("email belongs to a registered account")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as deleting an event that still has
// bookings or requesting a rental slot that is no longer available.
var ErrConflict = errors.New("conflict")
