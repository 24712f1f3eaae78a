package ledger

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/catalog"
	"github.com/iliyamo/studio-booking/internal/mail"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// PackPurchase buys a pack of PackSize credits and spends some of them at once.
type PackPurchase struct {
	UserID     string
	CoursePath string
	PackSize   int
	EventIDs   []uint64
	Lang       string
}

// CreditBooking spends existing credits on EventIDs.
type CreditBooking struct {
	UserID     string
	CoursePath string
	EventIDs   []uint64
	Lang       string
}

// SinglePurchase books individually paid sessions.
type SinglePurchase struct {
	UserID     string
	CoursePath string
	EventIDs   []uint64
	Lang       string
}

// CodeRedemption exchanges a free pack code for a pack.  Either UserID or
// Guest identifies the recipient.
type CodeRedemption struct {
	UserID     string
	Guest      *model.GuestInfo
	Code       string
	CoursePath string
	EventIDs   []uint64
	Lang       string
}

func selectionAttrs(path string, ids []uint64) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("course.path", catalog.Normalize(path)),
		attribute.Int("selection.size", len(ids)),
	)
}

// PurchasePackAndBook credits PackSize-len(EventIDs) to the buyer and books
// every selected event with origin pack_booking.  If any selection is full
// the whole purchase fails and nothing is booked.
func (s *Service) PurchasePackAndBook(ctx context.Context, in PackPurchase) (Result, error) {
	ids := NormalizeSelection(in.EventIDs)
	ctx, span := s.tracer.Start(ctx, "ledger.PurchasePackAndBook", selectionAttrs(in.CoursePath, ids))

	var res Result
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		p, err := s.profileTx(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		cs, err := s.courseTx(ctx, tx, in.CoursePath)
		if err != nil {
			return err
		}
		res, err = s.purchasePackTx(ctx, tx, p, cs, in.PackSize, ids, in.Lang)
		return err
	})
	s.observe(span, "pack purchase", err,
		zap.String("user_id", in.UserID), zap.String("course", in.CoursePath), zap.Int("pack_size", in.PackSize), zap.Int("selected", len(ids)))
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *Service) purchasePackTx(ctx context.Context, tx Tx, p *model.Profile, cs *model.CourseSettings, packSize int, ids []uint64, lang string) (Result, error) {
	if packSize < 1 {
		return Result{}, ErrInvalidPackSize
	}
	if len(ids) > packSize {
		return Result{}, ErrTooManySelections
	}
	key := s.catalog.DisplayKey(cs.CoursePath)
	if _, err := tx.LockCredits(ctx, p.ID, key); err != nil {
		return Result{}, err
	}
	bookings, dates, err := s.bookTx(ctx, tx, p.ID, cs, ids, model.OriginPackBooking)
	if err != nil {
		return Result{}, err
	}
	balance, err := tx.AddCredits(ctx, p.ID, key, packSize-len(ids))
	if err != nil {
		return Result{}, err
	}

	course := s.catalog.CourseTitle(cs.CoursePath, mail.Lang(lang))
	if err := s.notify(ctx, tx, mail.KindPurchase, lang, p, mail.Data{Course: course, PackSize: packSize, Balance: balance}); err != nil {
		return Result{}, err
	}
	if len(bookings) > 0 {
		if err := s.notify(ctx, tx, mail.KindBooking, lang, p, mail.Data{Course: course, Dates: dates}); err != nil {
			return Result{}, err
		}
	}
	return Result{Balance: balance, Bookings: bookings}, nil
}

// BookWithCredits spends one credit per selected event.  A balance below the
// selection size is rejected before anything is written.
func (s *Service) BookWithCredits(ctx context.Context, in CreditBooking) (Result, error) {
	ids := NormalizeSelection(in.EventIDs)
	ctx, span := s.tracer.Start(ctx, "ledger.BookWithCredits", selectionAttrs(in.CoursePath, ids))

	var res Result
	err := ErrEmptySelection
	if len(ids) > 0 {
		err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
			p, err := s.profileTx(ctx, tx, in.UserID)
			if err != nil {
				return err
			}
			cs, err := s.courseTx(ctx, tx, in.CoursePath)
			if err != nil {
				return err
			}
			key := s.catalog.DisplayKey(cs.CoursePath)
			balance, err := tx.LockCredits(ctx, p.ID, key)
			if err != nil {
				return err
			}
			if balance < len(ids) {
				return ErrInsufficientCredits
			}
			bookings, dates, err := s.bookTx(ctx, tx, p.ID, cs, ids, model.OriginCreditRedeemed)
			if err != nil {
				return err
			}
			balance, err = tx.AddCredits(ctx, p.ID, key, -len(ids))
			if err != nil {
				return err
			}
			course := s.catalog.CourseTitle(cs.CoursePath, mail.Lang(in.Lang))
			if err := s.notify(ctx, tx, mail.KindBooking, in.Lang, p, mail.Data{Course: course, Dates: dates}); err != nil {
				return err
			}
			res = Result{Balance: balance, Bookings: bookings}
			return nil
		})
	}
	s.observe(span, "credit booking", err,
		zap.String("user_id", in.UserID), zap.String("course", in.CoursePath), zap.Int("selected", len(ids)))
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// BookSinglePaid books individually paid sessions; balances are untouched.
func (s *Service) BookSinglePaid(ctx context.Context, in SinglePurchase) (Result, error) {
	ids := NormalizeSelection(in.EventIDs)
	ctx, span := s.tracer.Start(ctx, "ledger.BookSinglePaid", selectionAttrs(in.CoursePath, ids))

	var res Result
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		p, err := s.profileTx(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		cs, err := s.courseTx(ctx, tx, in.CoursePath)
		if err != nil {
			return err
		}
		res, err = s.singleTx(ctx, tx, p, cs, ids, in.Lang)
		return err
	})
	s.observe(span, "single booking", err,
		zap.String("user_id", in.UserID), zap.String("course", in.CoursePath), zap.Int("selected", len(ids)))
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *Service) singleTx(ctx context.Context, tx Tx, p *model.Profile, cs *model.CourseSettings, ids []uint64, lang string) (Result, error) {
	if len(ids) == 0 {
		return Result{}, ErrEmptySelection
	}
	bookings, dates, err := s.bookTx(ctx, tx, p.ID, cs, ids, model.OriginSinglePay)
	if err != nil {
		return Result{}, err
	}
	balance, err := tx.LockCredits(ctx, p.ID, s.catalog.DisplayKey(cs.CoursePath))
	if err != nil {
		return Result{}, err
	}
	course := s.catalog.CourseTitle(cs.CoursePath, mail.Lang(lang))
	if err := s.notify(ctx, tx, mail.KindBooking, lang, p, mail.Data{Course: course, Dates: dates}); err != nil {
		return Result{}, err
	}
	return Result{Balance: balance, Bookings: bookings}, nil
}

// CheckPromo validates p for coursePath at the current time.  Unscoped codes
// are valid for every course.
func (s *Service) CheckPromo(p *model.PromoCode, coursePath string) error {
	if p.CoursePath != "" && catalog.Normalize(p.CoursePath) != catalog.Normalize(coursePath) {
		return ErrPromoWrongCourse
	}
	if p.Exhausted() {
		return ErrPromoExhausted
	}
	if p.Expired(s.now(), s.loc) {
		return ErrPromoExpired
	}
	return nil
}

// RedeemPackCode exchanges a free pack code for a pack of the course's size
// and books the selection from it.  The code's use counter is incremented in
// the same transaction, with the code row locked, so the last use of a code
// can only be won once.
func (s *Service) RedeemPackCode(ctx context.Context, in CodeRedemption) (Result, error) {
	ids := NormalizeSelection(in.EventIDs)
	code := model.NormalizeCode(in.Code)
	ctx, span := s.tracer.Start(ctx, "ledger.RedeemPackCode", selectionAttrs(in.CoursePath, ids))

	var res Result
	var err error
	switch {
	case code == "":
		err = ErrPromoNotFound
	case in.UserID == "" && (in.Guest == nil || in.Guest.Email == ""):
		err = ErrUserNotFound
	default:
		err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
			promo, err := tx.LockPromo(ctx, code)
			if errors.Is(err, repository.ErrPromoNotFound) {
				return ErrPromoNotFound
			}
			if err != nil {
				return err
			}
			if err := s.CheckPromo(promo, in.CoursePath); err != nil {
				return err
			}
			if promo.DiscountType != model.DiscountFree {
				return ErrPromoNotRedeemable
			}

			var p *model.Profile
			if in.UserID != "" {
				p, err = s.profileTx(ctx, tx, in.UserID)
			} else {
				p, err = s.guestTx(ctx, tx, *in.Guest)
			}
			if err != nil {
				return err
			}
			cs, err := s.courseTx(ctx, tx, in.CoursePath)
			if err != nil {
				return err
			}
			packSize := cs.PackSize
			if packSize < 1 {
				packSize = s.defaultPack
			}
			res, err = s.purchasePackTx(ctx, tx, p, cs, packSize, ids, in.Lang)
			if err != nil {
				return err
			}
			return tx.IncrementPromo(ctx, code)
		})
	}
	s.observe(span, "code redemption", err,
		zap.String("user_id", in.UserID), zap.Bool("guest", in.UserID == ""), zap.String("code", code), zap.String("course", in.CoursePath))
	if err != nil {
		return Result{}, err
	}
	return res, nil
}
