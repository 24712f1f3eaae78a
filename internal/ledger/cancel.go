package ledger

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/mail"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// Cancellation asks to delete a booking.  Admins may cancel any booking and
// are not bound by the lead time.
type Cancellation struct {
	BookingID uint64
	UserID    string
	IsAdmin   bool
	Lang      string
}

// EventRemoval deletes an occurrence.  With Force set, existing bookings are
// cancelled and refunded first.
type EventRemoval struct {
	EventID uint64
	Force   bool
	Lang    string
}

// CanCancel reports whether an occurrence starting on ev's date may still be
// cancelled by its owner at now.
func (s *Service) CanCancel(ev *model.Event, now time.Time) bool {
	cutoff := ev.StartsAt(s.loc).AddDate(0, 0, -s.leadDays)
	return !now.After(cutoff)
}

// CancelBooking deletes a booking and returns one credit to its owner's
// balance for the booking's course, whatever the booking's origin.
func (s *Service) CancelBooking(ctx context.Context, in Cancellation) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.CancelBooking",
		trace.WithAttributes(attribute.Int64("booking.id", int64(in.BookingID)), attribute.Bool("admin", in.IsAdmin)))

	var res Result
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		b, err := tx.LockBooking(ctx, in.BookingID)
		if errors.Is(err, repository.ErrBookingNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		if !in.IsAdmin && b.UserID != in.UserID {
			return ErrNotOwner
		}
		ev, err := tx.LockEvent(ctx, b.EventID)
		if errors.Is(err, repository.ErrEventNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		if !in.IsAdmin && !s.CanCancel(ev, s.now()) {
			return ErrLeadTime
		}
		balance, err := s.refundTx(ctx, tx, b, ev, in.Lang)
		if err != nil {
			return err
		}
		res = Result{Balance: balance}
		return nil
	})
	s.observe(span, "cancel booking", err,
		zap.Uint64("booking_id", in.BookingID), zap.String("user_id", in.UserID), zap.Bool("admin", in.IsAdmin))
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// refundTx removes b, credits its owner and mails the owner.
func (s *Service) refundTx(ctx context.Context, tx Tx, b *model.Booking, ev *model.Event, lang string) (int, error) {
	if err := tx.DeleteBooking(ctx, b.ID); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return 0, ErrBookingNotFound
		}
		return 0, err
	}
	key := s.catalog.DisplayKey(b.CoursePath)
	if _, err := tx.LockCredits(ctx, b.UserID, key); err != nil {
		return 0, err
	}
	balance, err := tx.AddCredits(ctx, b.UserID, key, 1)
	if err != nil {
		return 0, err
	}
	p, err := tx.Profile(ctx, b.UserID)
	switch {
	case errors.Is(err, repository.ErrProfileNotFound):
		return balance, nil
	case err != nil:
		return 0, err
	}
	d := mail.Data{
		Course:  s.catalog.CourseTitle(b.CoursePath, mail.Lang(lang)),
		Balance: balance,
		Dates:   []time.Time{ev.Date},
	}
	if err := s.notify(ctx, tx, mail.KindCancellation, lang, p, d); err != nil {
		return 0, err
	}
	return balance, nil
}

// DeleteEvent removes an occurrence and returns how many bookings were
// refunded.  Without Force an occurrence that still has bookings is left alone.
func (s *Service) DeleteEvent(ctx context.Context, in EventRemoval) (int, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.DeleteEvent",
		trace.WithAttributes(attribute.Int64("event.id", int64(in.EventID)), attribute.Bool("force", in.Force)))

	var refunded int
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		refunded = 0
		ev, err := tx.LockEvent(ctx, in.EventID)
		if errors.Is(err, repository.ErrEventNotFound) {
			return ErrEventNotFound
		}
		if err != nil {
			return err
		}
		bookings, err := tx.EventBookings(ctx, in.EventID)
		if err != nil {
			return err
		}
		if len(bookings) > 0 && !in.Force {
			return ErrEventHasBookings
		}
		for i := range bookings {
			if _, err := s.refundTx(ctx, tx, &bookings[i], ev, in.Lang); err != nil {
				return err
			}
			refunded++
		}
		if err := tx.DeleteEvent(ctx, in.EventID); err != nil {
			if errors.Is(err, repository.ErrEventNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		return nil
	})
	s.observe(span, "delete event", err,
		zap.Uint64("event_id", in.EventID), zap.Bool("force", in.Force), zap.Int("refunded", refunded))
	if err != nil {
		return 0, err
	}
	return refunded, nil
}
