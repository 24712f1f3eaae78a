package model

import "time"

// Rental slot and request statuses.
const (
	RentalAvailable = "available"
	RentalPending   = "pending"
	RentalApproved  = "approved"
	RentalRejected  = "rejected"
)

// RentalSlot is a bookable room window offered by the studio.
type RentalSlot struct {
	ID        uint64
	Date      time.Time
	TimeLabel string
	Note      string
	Status    string
	CreatedAt time.Time
}

// RentRequest is a visitor's request for a slot.
type RentRequest struct {
	ID        uint64
	SlotID    uint64
	Name      string
	Email     string
	Message   string
	Status    string
	CreatedAt time.Time
}
