package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/catalog"
	"github.com/iliyamo/studio-booking/internal/ledger"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

var (
	ErrInvalidMode      = errors.New("mode must be pack or individual")
	ErrPackDisabled     = errors.New("packs are not sold for this course")
	ErrPriceChanged     = errors.New("price changed, reload and try again")
	ErrUseRedeem        = errors.New("free codes are redeemed without payment")
	ErrZeroAmount       = errors.New("nothing to pay")
	ErrGuestRequired    = errors.New("guest contact details required")
	ErrPaymentPending   = errors.New("payment not completed")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// The ledger and repositories checkout reads through.
type (
	Fulfiller interface {
		FulfillCheckout(ctx context.Context, reference string) (ledger.Fulfillment, error)
		CheckPromo(p *model.PromoCode, coursePath string) error
		Today() time.Time
		Location() *time.Location
	}
	Profiles interface {
		GetByID(ctx context.Context, id string) (*model.Profile, error)
		GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	}
	Courses interface {
		Get(ctx context.Context, path string) (*model.CourseSettings, error)
	}
	Events interface {
		GetByID(ctx context.Context, id uint64) (*model.Event, error)
	}
	Bookings interface {
		Exists(ctx context.Context, userID string, eventID uint64) (bool, error)
		CountByEvent(ctx context.Context, eventID uint64) (int, error)
	}
	Promos interface {
		Get(ctx context.Context, code string) (*model.PromoCode, error)
	}
	Checkouts interface {
		Create(ctx context.Context, s *model.CheckoutSession) error
		AttachStripeSession(ctx context.Context, reference, sessionID string) error
	}
)

// Deps wires a Service.
type Deps struct {
	Gateway         Gateway
	Ledger          Fulfiller
	Catalog         *catalog.Catalog
	Profiles        Profiles
	Courses         Courses
	Events          Events
	Bookings        Bookings
	Promos          Promos
	Checkouts       Checkouts
	Currency        string
	DefaultPackSize int
	Logger          *zap.Logger
}

// Service creates hosted checkouts and fulfills them once paid.
type Service struct{ d Deps }

func New(d Deps) *Service {
	if d.Catalog == nil {
		d.Catalog = catalog.Default()
	}
	if d.Currency == "" {
		d.Currency = "eur"
	}
	if d.DefaultPackSize < 1 {
		d.DefaultPackSize = 10
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{d: d}
}

// Request is a checkout as submitted by the booking page.  PackPrice and
// TotalPrice are the amounts the page displayed, in cents; when present they
// must match the server's price.
type Request struct {
	UserID     string
	Guest      *model.GuestInfo
	Mode       string
	PackPrice  *int64
	TotalPrice *int64
	PackSize   int
	CoursePath string
	EventIDs   []uint64
	PromoCode  string
	Lang       string
	SuccessURL string
	CancelURL  string
}

// Created is the hosted page the buyer is sent to.
type Created struct {
	Reference string
	URL       string
	Amount    int64
}

// Quote is the server-side price of a request.
type Quote struct {
	Course   *model.CourseSettings
	PackSize int
	EventIDs []uint64
	Base     int64
	Amount   int64
	Promo    *model.PromoCode
}

// Price recomputes what req costs.  It performs no writes.
func (s *Service) Price(ctx context.Context, req Request) (*Quote, error) {
	path := catalog.Normalize(req.CoursePath)
	cs, err := s.d.Courses.Get(ctx, path)
	if errors.Is(err, repository.ErrCourseNotFound) || (err == nil && !cs.Visible) {
		return nil, ledger.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	q := &Quote{Course: cs, EventIDs: ledger.NormalizeSelection(req.EventIDs)}

	switch req.Mode {
	case model.CheckoutPack:
		if !cs.PackEnabled {
			return nil, ErrPackDisabled
		}
		q.PackSize = cs.PackSize
		if q.PackSize < 1 {
			q.PackSize = s.d.DefaultPackSize
		}
		if req.PackSize > 0 && req.PackSize != q.PackSize {
			return nil, ErrPriceChanged
		}
		if len(q.EventIDs) > q.PackSize {
			return nil, ledger.ErrTooManySelections
		}
		q.Base = cs.PackPriceCents
		if req.PackPrice != nil && *req.PackPrice != q.Base {
			return nil, ErrPriceChanged
		}
	case model.CheckoutIndividual:
		if len(q.EventIDs) == 0 {
			return nil, ledger.ErrEmptySelection
		}
		q.Base = cs.SingleTotal(len(q.EventIDs))
		if req.TotalPrice != nil && *req.TotalPrice != q.Base {
			return nil, ErrPriceChanged
		}
	default:
		return nil, ErrInvalidMode
	}

	q.Amount = q.Base
	if code := model.NormalizeCode(req.PromoCode); code != "" {
		p, err := s.CheckCode(ctx, code, path)
		if err != nil {
			return nil, err
		}
		if p.DiscountType == model.DiscountFree {
			return nil, ErrUseRedeem
		}
		q.Promo = p
		q.Amount = p.Discount(q.Base)
	}
	if q.Amount <= 0 {
		return nil, ErrZeroAmount
	}
	return q, nil
}

// CheckCode looks up code and checks it against coursePath.
func (s *Service) CheckCode(ctx context.Context, code, coursePath string) (*model.PromoCode, error) {
	p, err := s.d.Promos.Get(ctx, model.NormalizeCode(code))
	if errors.Is(err, repository.ErrPromoNotFound) {
		return nil, ledger.ErrPromoNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.d.Ledger.CheckPromo(p, coursePath); err != nil {
		return nil, err
	}
	return p, nil
}

// Create prices req, checks the selection is still bookable and opens a
// hosted payment session.  Nothing is booked until the payment is verified.
func (s *Service) Create(ctx context.Context, req Request) (*Created, error) {
	email, err := s.buyerEmail(ctx, req)
	if err != nil {
		return nil, err
	}
	q, err := s.Price(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.precheck(ctx, req.UserID, q); err != nil {
		return nil, err
	}

	ref := uuid.NewString()
	co := &model.CheckoutSession{
		Reference:   ref,
		UserID:      req.UserID,
		Mode:        req.Mode,
		CoursePath:  q.Course.CoursePath,
		PackSize:    q.PackSize,
		EventIDs:    q.EventIDs,
		AmountCents: q.Amount,
		Lang:        locale(req.Lang),
		Status:      model.CheckoutPending,
	}
	if req.UserID == "" {
		co.Guest = req.Guest
	}
	if q.Promo != nil {
		co.PromoCode = q.Promo.Code
	}
	if err := s.d.Checkouts.Create(ctx, co); err != nil {
		return nil, err
	}

	sess, err := s.d.Gateway.CreateSession(ctx, SessionParams{
		Reference:     ref,
		ProductName:   s.productName(q, co.Lang),
		AmountCents:   q.Amount,
		Currency:      s.d.Currency,
		CustomerEmail: email,
		Locale:        co.Lang,
		SuccessURL:    withSessionID(req.SuccessURL),
		CancelURL:     req.CancelURL,
		Metadata: map[string]string{
			"reference":  ref,
			"mode":       req.Mode,
			"coursePath": q.Course.CoursePath,
			"events":     joinIDs(q.EventIDs),
		},
	})
	if err != nil {
		return nil, err
	}
	if err := s.d.Checkouts.AttachStripeSession(ctx, ref, sess.ID); err != nil {
		return nil, err
	}
	s.d.Logger.Info("checkout created",
		zap.String("reference", ref), zap.String("mode", req.Mode), zap.String("course", q.Course.CoursePath),
		zap.Int64("amount", q.Amount), zap.Bool("guest", req.UserID == ""))
	return &Created{Reference: ref, URL: sess.URL, Amount: q.Amount}, nil
}

// Confirm asks the processor whether sessionID was paid and fulfills it.
func (s *Service) Confirm(ctx context.Context, sessionID string) (ledger.Fulfillment, error) {
	sess, err := s.d.Gateway.GetSession(ctx, sessionID)
	if err != nil {
		return ledger.Fulfillment{}, err
	}
	if !sess.Paid {
		return ledger.Fulfillment{}, ErrPaymentPending
	}
	if sess.Reference == "" {
		return ledger.Fulfillment{}, ledger.ErrCheckoutNotFound
	}
	return s.d.Ledger.FulfillCheckout(ctx, sess.Reference)
}

// HandleWebhook verifies a processor notification and fulfills completed,
// paid sessions.  Other notifications are acknowledged and ignored, as are
// ledger rejections: redelivery cannot change their outcome, so they are
// logged for manual follow-up.  Only infrastructure errors are returned.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	sess, err := s.d.Gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	if !sess.Paid || sess.Reference == "" {
		s.d.Logger.Info("webhook session not paid", zap.String("session", sess.ID))
		return nil
	}
	out, err := s.d.Ledger.FulfillCheckout(ctx, sess.Reference)
	if errors.Is(err, ledger.ErrCheckoutNotFound) {
		s.d.Logger.Warn("webhook for unknown checkout", zap.String("session", sess.ID), zap.String("reference", sess.Reference))
		return nil
	}
	if ledger.IsRejection(err) {
		s.d.Logger.Error("webhook checkout rejected by ledger",
			zap.String("session", sess.ID), zap.String("reference", sess.Reference), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	s.d.Logger.Info("webhook fulfilled", zap.String("reference", out.Reference), zap.String("status", out.Status), zap.Bool("replayed", out.Replayed))
	return nil
}

func (s *Service) buyerEmail(ctx context.Context, req Request) (string, error) {
	if req.UserID == "" {
		if req.Guest == nil || req.Guest.Email == "" || req.Guest.FirstName == "" {
			return "", ErrGuestRequired
		}
		email := strings.ToLower(strings.TrimSpace(req.Guest.Email))
		p, err := s.d.Profiles.GetByEmail(ctx, email)
		switch {
		case err == nil && !p.IsGuest:
			return "", ledger.ErrEmailRegistered
		case err != nil && !errors.Is(err, repository.ErrProfileNotFound):
			return "", err
		}
		return email, nil
	}
	p, err := s.d.Profiles.GetByID(ctx, req.UserID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return "", ledger.ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	return p.Email, nil
}

// precheck rejects selections that already cannot be booked.  The ledger
// repeats every check under lock at fulfillment.
func (s *Service) precheck(ctx context.Context, userID string, q *Quote) error {
	today := s.d.Ledger.Today()
	loc := s.d.Ledger.Location()
	for _, id := range q.EventIDs {
		ev, err := s.d.Events.GetByID(ctx, id)
		if errors.Is(err, repository.ErrEventNotFound) {
			return fmt.Errorf("event %d: %w", id, ledger.ErrEventNotFound)
		}
		if err != nil {
			return err
		}
		if !ev.IsCourse(q.Course.CoursePath) || ev.StartsAt(loc).Before(today) {
			return fmt.Errorf("event %d: %w", id, ledger.ErrEventUnavailable)
		}
		if userID != "" {
			booked, err := s.d.Bookings.Exists(ctx, userID, id)
			if err != nil {
				return err
			}
			if booked {
				return fmt.Errorf("event %d: %w", id, ledger.ErrAlreadyBooked)
			}
		}
		n, err := s.d.Bookings.CountByEvent(ctx, id)
		if err != nil {
			return err
		}
		if !q.Course.HasRoom(n) {
			return fmt.Errorf("event %d: %w", id, ledger.ErrCapacityExceeded)
		}
	}
	return nil
}

func (s *Service) productName(q *Quote, lang string) string {
	title := s.d.Catalog.CourseTitle(q.Course.CoursePath, lang)
	if q.PackSize > 0 {
		if lang == "de" {
			return fmt.Sprintf("%s, %der-Karte", title, q.PackSize)
		}
		return fmt.Sprintf("%s, %d-session pack", title, q.PackSize)
	}
	if lang == "de" {
		return fmt.Sprintf("%s, %d Termin(e)", title, len(q.EventIDs))
	}
	return fmt.Sprintf("%s, %d session(s)", title, len(q.EventIDs))
}

func locale(lang string) string {
	if lang == "de" {
		return "de"
	}
	return "en"
}

// withSessionID appends the processor's session placeholder to a success URL.
// The placeholder must stay unescaped, so it is appended as text.
func withSessionID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	sep := "?"
	if u.RawQuery != "" {
		sep = "&"
	}
	return raw + sep + "session_id={CHECKOUT_SESSION_ID}"
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}
