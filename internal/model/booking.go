package model

import "time"

// Booking origins.
const (
	OriginPackBooking    = "pack_booking"
	OriginSinglePay      = "single_pay"
	OriginCreditRedeemed = "credit_redeemed"
)

// Booking binds a user to an event occurrence.  At most one per (UserID, EventID).
type Booking struct {
	ID         uint64
	UserID     string
	EventID    uint64
	CoursePath string
	Origin     string
	CreatedAt  time.Time
}

// BookingDetail is a booking joined with its occurrence and owner for listings.
type BookingDetail struct {
	Booking
	EventDate time.Time
	TimeLabel string
	TitleEN   string
	TitleDE   string
	UserEmail string
	UserName  string
}
