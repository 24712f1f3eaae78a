package model

import (
	"strings"
	"time"
)

// Promo discount and limit types.
const (
	DiscountFree    = "free"
	DiscountPercent = "percent"
	LimitUses       = "uses"
	LimitDate       = "date"
)

// PromoCode is a discount code.  Code is stored uppercase.  An empty
// CoursePath makes the code valid for every course.
type PromoCode struct {
	Code          string
	CoursePath    string
	DiscountType  string
	DiscountValue int
	LimitType     string
	MaxUses       *int
	ExpiresOn     *time.Time
	TimesUsed     int
	CreatedAt     time.Time
}

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Exhausted reports whether a use-limited code has no uses left.
func (p PromoCode) Exhausted() bool {
	return p.LimitType == LimitUses && p.MaxUses != nil && p.TimesUsed >= *p.MaxUses
}

// Expired reports whether a date-limited code is past its expiry day in loc.
// The code stays valid through the whole expiry day.
func (p PromoCode) Expired(now time.Time, loc *time.Location) bool {
	if p.LimitType != LimitDate || p.ExpiresOn == nil {
		return false
	}
	y, m, d := p.ExpiresOn.Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return !now.Before(end)
}

// Discount applies a percent code to amount, rounding the result down to
// whole cents.  Free codes return 0.
func (p PromoCode) Discount(amount int64) int64 {
	switch p.DiscountType {
	case DiscountFree:
		return 0
	case DiscountPercent:
		return amount * int64(100-p.DiscountValue) / 100
	}
	return amount
}
