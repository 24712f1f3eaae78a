package model

import "time"

// Checkout modes and statuses.
const (
	CheckoutPack       = "pack"
	CheckoutIndividual = "individual"

	CheckoutPending   = "pending"
	CheckoutFulfilled = "fulfilled"
	CheckoutCredited  = "credited"
)

// CheckoutSession records what a hosted payment will buy.  It is written
// before redirecting to the processor and fulfilled once payment is verified.
type CheckoutSession struct {
	Reference       string
	StripeSessionID string
	UserID          string // empty for guests until fulfillment
	Guest           *GuestInfo
	Mode            string
	CoursePath      string
	PackSize        int
	EventIDs        []uint64
	PromoCode       string
	AmountCents     int64
	Lang            string
	Status          string
	ResultBalance   *int
	CreatedAt       time.Time
	FulfilledAt     *time.Time
}
