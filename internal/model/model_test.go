package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(n int) *int { return &n }

func TestCourseSettingsValidate(t *testing.T) {
	ok := CourseSettings{PriceSingleCents: 3500, PackPriceCents: 30000, PackSize: 10, PackEnabled: true, PricingMode: PricingSession, Visible: true}
	assert.NoError(t, ok.Validate())

	noPackPrice := ok
	noPackPrice.PackPriceCents = 0
	assert.ErrorIs(t, noPackPrice.Validate(), ErrInvalidPack)

	packDisabled := noPackPrice
	packDisabled.PackEnabled = false
	assert.NoError(t, packDisabled.Validate())

	duration := ok
	duration.PricingMode = PricingDuration
	assert.ErrorIs(t, duration.Validate(), ErrInvalidDuration)

	badCap := ok
	badCap.CapacityLimit = intPtr(0)
	assert.ErrorIs(t, badCap.Validate(), ErrInvalidCapacity)
}

func TestSingleTotal(t *testing.T) {
	s := CourseSettings{PriceSingleCents: 2000, PricingMode: PricingSession}
	assert.Equal(t, int64(6000), s.SingleTotal(3))

	s.PricingMode = PricingDuration
	s.DurationMinutes = 90
	assert.Equal(t, int64(6000), s.SingleTotal(2))
	assert.Equal(t, int64(0), s.SingleTotal(0))
}

func TestPromoDiscountRoundsDown(t *testing.T) {
	p := PromoCode{DiscountType: DiscountPercent, DiscountValue: 15}
	assert.Equal(t, int64(849), p.Discount(999))
	assert.Equal(t, int64(0), PromoCode{DiscountType: DiscountFree}.Discount(999))
}

func TestPromoExpiredThroughEndOfDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	exp := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	p := PromoCode{LimitType: LimitDate, ExpiresOn: &exp}

	assert.False(t, p.Expired(time.Date(2026, 3, 10, 23, 59, 0, 0, loc), loc))
	assert.True(t, p.Expired(time.Date(2026, 3, 11, 0, 0, 0, 0, loc), loc))
}

func TestPromoExhausted(t *testing.T) {
	p := PromoCode{LimitType: LimitUses, MaxUses: intPtr(1)}
	assert.False(t, p.Exhausted())
	p.TimesUsed = 1
	assert.True(t, p.Exhausted())
}

func TestEventStartsAtUsesCalendarDay(t *testing.T) {
	loc := time.FixedZone("studio", 2*3600)
	e := Event{Date: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, loc), e.StartsAt(loc))
	assert.Equal(t, "2026-06-01", e.Day())
}
