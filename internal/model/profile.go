package model

import "time"

// Profile is the per-identity document the ledger reads and mutates.  Credit
// balances live in user_credits and are attached on read.
type Profile struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Phone     *string
	Role      string
	IsGuest   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName joins first and last name for greetings.
func (p Profile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// GuestInfo is the contact data collected from an anonymous buyer.  It is
// only used to address mail; guests cannot log in.
type GuestInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}
