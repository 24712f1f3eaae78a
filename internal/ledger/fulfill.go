package ledger

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/mail"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// Fulfillment is the outcome of applying a paid checkout.
type Fulfillment struct {
	Reference string
	Status    string
	UserID    string
	Balance   int
	Bookings  []model.Booking
	// Replayed is set when the checkout had already been applied earlier.
	Replayed bool
	// Credited is the number of credits granted instead of the selection.
	Credited int
}

// FulfillCheckout applies a verified payment exactly once.  The checkout row
// stays locked while its bookings are written, so concurrent webhook and
// confirmation calls serialize and the later one only replays the result.
//
// When the chosen dates were lost between payment and fulfillment the buyer
// is not left empty handed: the purchase is turned into credits for the
// course and a mail asks them to pick new dates.
func (s *Service) FulfillCheckout(ctx context.Context, reference string) (Fulfillment, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.FulfillCheckout",
		trace.WithAttributes(attribute.String("checkout.reference", reference)))

	var out Fulfillment
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		co, err := s.lockCheckoutTx(ctx, tx, reference)
		if err != nil {
			return err
		}
		if co.Status != model.CheckoutPending {
			out = replayed(co)
			return nil
		}
		p, err := s.buyerTx(ctx, tx, co)
		if err != nil {
			return err
		}
		cs, err := s.courseTx(ctx, tx, co.CoursePath)
		if err != nil {
			return err
		}
		ids := NormalizeSelection(co.EventIDs)
		var res Result
		if co.Mode == model.CheckoutPack {
			res, err = s.purchasePackTx(ctx, tx, p, cs, co.PackSize, ids, co.Lang)
		} else {
			res, err = s.singleTx(ctx, tx, p, cs, ids, co.Lang)
		}
		if err != nil {
			return err
		}
		if err := s.usePromoTx(ctx, tx, co.PromoCode); err != nil {
			return err
		}
		if err := tx.FinishCheckout(ctx, reference, model.CheckoutFulfilled, p.ID, &res.Balance, s.now()); err != nil {
			return err
		}
		out = Fulfillment{Reference: reference, Status: model.CheckoutFulfilled, UserID: p.ID, Balance: res.Balance, Bookings: res.Bookings}
		return nil
	})
	if err != nil && selectionLost(err) {
		s.log.Warn("checkout selection lost, crediting instead",
			zap.String("reference", reference), zap.Error(err))
		span.SetAttributes(attribute.String("checkout.fallback", err.Error()))
		err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
			var ierr error
			out, ierr = s.creditInLieuTx(ctx, tx, reference)
			return ierr
		})
	}
	s.observe(span, "fulfill checkout", err,
		zap.String("reference", reference), zap.String("status", out.Status), zap.Bool("replayed", out.Replayed))
	if err != nil {
		return Fulfillment{}, err
	}
	return out, nil
}

func (s *Service) creditInLieuTx(ctx context.Context, tx Tx, reference string) (Fulfillment, error) {
	co, err := s.lockCheckoutTx(ctx, tx, reference)
	if err != nil {
		return Fulfillment{}, err
	}
	if co.Status != model.CheckoutPending {
		return replayed(co), nil
	}
	p, err := s.buyerTx(ctx, tx, co)
	if err != nil {
		return Fulfillment{}, err
	}
	credited := len(NormalizeSelection(co.EventIDs))
	if co.Mode == model.CheckoutPack {
		credited = co.PackSize
	}
	key := s.catalog.DisplayKey(co.CoursePath)
	if _, err := tx.LockCredits(ctx, p.ID, key); err != nil {
		return Fulfillment{}, err
	}
	balance, err := tx.AddCredits(ctx, p.ID, key, credited)
	if err != nil {
		return Fulfillment{}, err
	}
	d := mail.Data{
		Course:   s.catalog.CourseTitle(co.CoursePath, mail.Lang(co.Lang)),
		Credited: credited,
		Balance:  balance,
	}
	if err := s.notify(ctx, tx, mail.KindReselect, co.Lang, p, d); err != nil {
		return Fulfillment{}, err
	}
	if err := s.usePromoTx(ctx, tx, co.PromoCode); err != nil {
		return Fulfillment{}, err
	}
	if err := tx.FinishCheckout(ctx, reference, model.CheckoutCredited, p.ID, &balance, s.now()); err != nil {
		return Fulfillment{}, err
	}
	return Fulfillment{Reference: reference, Status: model.CheckoutCredited, UserID: p.ID, Balance: balance, Credited: credited}, nil
}

func (s *Service) lockCheckoutTx(ctx context.Context, tx Tx, reference string) (*model.CheckoutSession, error) {
	co, err := tx.LockCheckout(ctx, reference)
	if errors.Is(err, repository.ErrCheckoutNotFound) {
		return nil, ErrCheckoutNotFound
	}
	return co, err
}

// buyerTx resolves the profile a checkout pays for; guest buyers get a guest
// profile keyed by their email.
func (s *Service) buyerTx(ctx context.Context, tx Tx, co *model.CheckoutSession) (*model.Profile, error) {
	if co.UserID != "" {
		return s.profileTx(ctx, tx, co.UserID)
	}
	if co.Guest == nil || co.Guest.Email == "" {
		return nil, ErrUserNotFound
	}
	return s.guestTx(ctx, tx, *co.Guest)
}

// guestTx resolves the guest profile for g.  Guest details never resolve to a
// registered account.
func (s *Service) guestTx(ctx context.Context, tx Tx, g model.GuestInfo) (*model.Profile, error) {
	p, err := tx.UpsertGuest(ctx, g)
	if errors.Is(err, repository.ErrEmailRegistered) {
		return nil, ErrEmailRegistered
	}
	return p, err
}

// usePromoTx counts one use of code.  Codes deleted after checkout creation
// are ignored; the payment already happened.
func (s *Service) usePromoTx(ctx context.Context, tx Tx, code string) error {
	if code == "" {
		return nil
	}
	if _, err := tx.LockPromo(ctx, code); err != nil {
		if errors.Is(err, repository.ErrPromoNotFound) {
			return nil
		}
		return err
	}
	return tx.IncrementPromo(ctx, code)
}

func replayed(co *model.CheckoutSession) Fulfillment {
	f := Fulfillment{Reference: co.Reference, Status: co.Status, UserID: co.UserID, Replayed: true}
	if co.ResultBalance != nil {
		f.Balance = *co.ResultBalance
	}
	return f
}
