package ledger

import (
	"context"

	"github.com/iliyamo/studio-booking/internal/model"
)

// Balances returns the user's credits keyed by course display key.
func (s *Service) Balances(ctx context.Context, userID string) (map[string]int, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	return s.reader.Balances(ctx, userID)
}

// UserBookings lists a user's bookings, earliest occurrence first.
func (s *Service) UserBookings(ctx context.Context, userID string) ([]model.BookingDetail, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	return s.reader.UserBookings(ctx, userID)
}

// EventBookings lists the participants of one occurrence.
func (s *Service) EventBookings(ctx context.Context, eventID uint64) ([]model.BookingDetail, error) {
	return s.reader.EventBookings(ctx, eventID)
}
