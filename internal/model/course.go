package model

import (
	"errors"
	"math"
)

// Pricing modes of a course.
const (
	PricingSession  = "session"
	PricingDuration = "duration"
)

// CourseSettings is the admin-managed record keyed by normalized course path.
type CourseSettings struct {
	CoursePath       string
	PriceSingleCents int64
	PackPriceCents   int64
	PackSize         int
	PackEnabled      bool
	CapacityLimit    *int
	Visible          bool
	PricingMode      string
	DurationMinutes  int
}

var (
	ErrInvalidPack        = errors.New("pack enabled requires pack size >= 1 and pack price > 0")
	ErrInvalidPricingMode = errors.New("pricing mode must be session or duration")
	ErrInvalidDuration    = errors.New("duration pricing requires a positive duration")
	ErrInvalidPrice       = errors.New("prices must not be negative")
	ErrInvalidCapacity    = errors.New("capacity limit must be positive")
)

// Validate checks the settings invariants.
func (s CourseSettings) Validate() error {
	if s.PriceSingleCents < 0 || s.PackPriceCents < 0 {
		return ErrInvalidPrice
	}
	if s.PackEnabled && (s.PackSize < 1 || s.PackPriceCents <= 0) {
		return ErrInvalidPack
	}
	switch s.PricingMode {
	case PricingSession:
	case PricingDuration:
		if s.DurationMinutes <= 0 {
			return ErrInvalidDuration
		}
	default:
		return ErrInvalidPricingMode
	}
	if s.CapacityLimit != nil && *s.CapacityLimit < 1 {
		return ErrInvalidCapacity
	}
	return nil
}

// SingleTotal is the price of n individually paid sessions.  In duration mode
// the single price is per hour.
func (s CourseSettings) SingleTotal(n int) int64 {
	if n <= 0 {
		return 0
	}
	per := s.PriceSingleCents
	if s.PricingMode == PricingDuration {
		per = int64(math.Round(float64(s.PriceSingleCents) * float64(s.DurationMinutes) / 60))
	}
	return per * int64(n)
}

// HasRoom reports whether one more booking fits next to booked existing ones.
func (s CourseSettings) HasRoom(booked int) bool {
	return s.CapacityLimit == nil || booked < *s.CapacityLimit
}
