package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/ledger"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

type fakeGateway struct {
	created  []SessionParams
	sessions map[string]*Session
	webhook  *Session
	hookErr  error
}

func (g *fakeGateway) CreateSession(_ context.Context, p SessionParams) (*Session, error) {
	g.created = append(g.created, p)
	return &Session{ID: "cs_test_1", URL: "https://pay.example/cs_test_1", Reference: p.Reference}, nil
}

func (g *fakeGateway) GetSession(_ context.Context, id string) (*Session, error) {
	s, ok := g.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	return s, nil
}

func (g *fakeGateway) ParseWebhook([]byte, string) (*Session, error) { return g.webhook, g.hookErr }

type fakeLedger struct {
	today     time.Time
	fulfilled []string
	fulfillFn func(ref string) (ledger.Fulfillment, error)
}

func (l *fakeLedger) FulfillCheckout(_ context.Context, ref string) (ledger.Fulfillment, error) {
	l.fulfilled = append(l.fulfilled, ref)
	if l.fulfillFn != nil {
		return l.fulfillFn(ref)
	}
	return ledger.Fulfillment{Reference: ref, Status: model.CheckoutFulfilled}, nil
}

func (l *fakeLedger) CheckPromo(p *model.PromoCode, coursePath string) error {
	if p.CoursePath != "" && p.CoursePath != coursePath {
		return ledger.ErrPromoWrongCourse
	}
	if p.Exhausted() {
		return ledger.ErrPromoExhausted
	}
	return nil
}

func (l *fakeLedger) Today() time.Time          { return l.today }
func (l *fakeLedger) Location() *time.Location { return time.UTC }

type fakeRepos struct {
	profiles  map[string]*model.Profile
	courses   map[string]*model.CourseSettings
	events    map[uint64]*model.Event
	counts    map[uint64]int
	booked    map[uint64]bool
	promos    map[string]*model.PromoCode
	checkouts []*model.CheckoutSession
	attached  map[string]string
}

func (r *fakeRepos) GetByID(_ context.Context, id string) (*model.Profile, error) {
	if p, ok := r.profiles[id]; ok {
		return p, nil
	}
	return nil, repository.ErrProfileNotFound
}

func (r *fakeRepos) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	for _, p := range r.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, repository.ErrProfileNotFound
}

func (r *fakeRepos) Get(_ context.Context, path string) (*model.CourseSettings, error) {
	if cs, ok := r.courses[path]; ok {
		return cs, nil
	}
	return nil, repository.ErrCourseNotFound
}

func (r *fakeRepos) Exists(_ context.Context, _ string, eventID uint64) (bool, error) {
	return r.booked[eventID], nil
}

func (r *fakeRepos) CountByEvent(_ context.Context, eventID uint64) (int, error) {
	return r.counts[eventID], nil
}

func (r *fakeRepos) Create(_ context.Context, s *model.CheckoutSession) error {
	r.checkouts = append(r.checkouts, s)
	return nil
}

func (r *fakeRepos) AttachStripeSession(_ context.Context, ref, sid string) error {
	r.attached[ref] = sid
	return nil
}

type eventRepo struct{ r *fakeRepos }

func (e eventRepo) GetByID(_ context.Context, id uint64) (*model.Event, error) {
	if ev, ok := e.r.events[id]; ok {
		return ev, nil
	}
	return nil, repository.ErrEventNotFound
}

type promoRepo struct{ r *fakeRepos }

func (p promoRepo) Get(_ context.Context, code string) (*model.PromoCode, error) {
	if pc, ok := p.r.promos[code]; ok {
		return pc, nil
	}
	return nil, repository.ErrPromoNotFound
}

type harness struct {
	svc    *Service
	gw     *fakeGateway
	ledger *fakeLedger
	repos  *fakeRepos
}

func newHarness() harness {
	path := "/pottery"
	capLimit := 2
	maxUses := 10
	repos := &fakeRepos{
		profiles: map[string]*model.Profile{"u1": {ID: "u1", Email: "anna@example.com"}},
		courses: map[string]*model.CourseSettings{
			"/pottery": {CoursePath: "/pottery", PriceSingleCents: 1500, PackPriceCents: 12000, PackSize: 10, PackEnabled: true, CapacityLimit: &capLimit, Visible: true, PricingMode: model.PricingSession},
			"/sound-bath": {CoursePath: "/sound-bath", PriceSingleCents: 3000, Visible: true, PricingMode: model.PricingDuration, DurationMinutes: 90},
		},
		events: map[uint64]*model.Event{
			1: {ID: 1, Date: time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC), CoursePath: &path, Kind: model.KindCourse},
			2: {ID: 2, Date: time.Date(2026, 5, 19, 0, 0, 0, 0, time.UTC), CoursePath: &path, Kind: model.KindCourse},
			3: {ID: 3, Date: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), CoursePath: &path, Kind: model.KindCourse},
		},
		counts: map[uint64]int{},
		booked: map[uint64]bool{},
		promos: map[string]*model.PromoCode{
			"SPRING20": {Code: "SPRING20", DiscountType: model.DiscountPercent, DiscountValue: 20, LimitType: model.LimitUses, MaxUses: &maxUses},
			"FREEPACK": {Code: "FREEPACK", DiscountType: model.DiscountFree, LimitType: model.LimitUses, MaxUses: &maxUses},
		},
		attached: map[string]string{},
	}
	gw := &fakeGateway{sessions: map[string]*Session{}}
	led := &fakeLedger{today: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	svc := New(Deps{
		Gateway: gw, Ledger: led, Profiles: repos, Courses: repos, Events: eventRepo{repos},
		Bookings: repos, Promos: promoRepo{repos}, Checkouts: repos,
	})
	return harness{svc: svc, gw: gw, ledger: led, repos: repos}
}

func i64(n int64) *int64 { return &n }

func TestCreate_PackWithPercentCode(t *testing.T) {
	h := newHarness()

	out, err := h.svc.Create(context.Background(), Request{
		UserID: "u1", Mode: model.CheckoutPack, PackPrice: i64(12000), PackSize: 10,
		CoursePath: "pottery", EventIDs: []uint64{2, 1}, PromoCode: "spring20", Lang: "de",
		SuccessURL: "https://studio.example/thanks?course=pottery", CancelURL: "https://studio.example/pottery",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_test_1", out.URL)
	assert.Equal(t, int64(9600), out.Amount)

	require.Len(t, h.repos.checkouts, 1)
	co := h.repos.checkouts[0]
	assert.Equal(t, out.Reference, co.Reference)
	assert.Equal(t, []uint64{1, 2}, co.EventIDs)
	assert.Equal(t, "SPRING20", co.PromoCode)
	assert.Equal(t, 10, co.PackSize)
	assert.Equal(t, model.CheckoutPending, co.Status)
	assert.Equal(t, "cs_test_1", h.repos.attached[out.Reference])

	require.Len(t, h.gw.created, 1)
	p := h.gw.created[0]
	assert.Equal(t, "anna@example.com", p.CustomerEmail)
	assert.Equal(t, "de", p.Locale)
	assert.Equal(t, "eur", p.Currency)
	assert.Equal(t, "https://studio.example/thanks?course=pottery&session_id={CHECKOUT_SESSION_ID}", p.SuccessURL)
	assert.Equal(t, "1,2", p.Metadata["events"])
	assert.Equal(t, "Töpfern am Dienstag, 10er-Karte", p.ProductName)
}

func TestCreate_IndividualDurationPricingForGuest(t *testing.T) {
	h := newHarness()
	h.repos.events[4] = &model.Event{ID: 4, Date: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), CoursePath: strPtr("/sound-bath"), Kind: model.KindCourse}

	out, err := h.svc.Create(context.Background(), Request{
		Guest: &model.GuestInfo{FirstName: "Gina", Email: " Gina@Example.com "}, Mode: model.CheckoutIndividual,
		TotalPrice: i64(4500), CoursePath: "/sound-bath", EventIDs: []uint64{4}, SuccessURL: "https://studio.example/ok",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4500), out.Amount)
	assert.Equal(t, "gina@example.com", h.gw.created[0].CustomerEmail)
	assert.Equal(t, "https://studio.example/ok?session_id={CHECKOUT_SESSION_ID}", h.gw.created[0].SuccessURL)
	require.NotNil(t, h.repos.checkouts[0].Guest)
	assert.Empty(t, h.repos.checkouts[0].UserID)
}

func TestCreate_GuestWithRegisteredEmail(t *testing.T) {
	h := newHarness()
	h.repos.profiles["g1"] = &model.Profile{ID: "g1", Email: "gina@example.com", IsGuest: true}
	ctx := context.Background()

	_, err := h.svc.Create(ctx, Request{
		Guest: &model.GuestInfo{FirstName: "Mallory", Email: " ANNA@example.com"}, Mode: model.CheckoutPack,
		CoursePath: "/pottery", EventIDs: []uint64{1},
	})
	assert.ErrorIs(t, err, ledger.ErrEmailRegistered)
	assert.Empty(t, h.gw.created)
	assert.Empty(t, h.repos.checkouts)

	_, err = h.svc.Create(ctx, Request{
		Guest: &model.GuestInfo{FirstName: "Gina", Email: "gina@example.com"}, Mode: model.CheckoutPack,
		CoursePath: "/pottery", EventIDs: []uint64{1},
	})
	require.NoError(t, err)
	assert.Equal(t, "gina@example.com", h.gw.created[0].CustomerEmail)
}

func TestCreate_Rejections(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	base := Request{UserID: "u1", Mode: model.CheckoutPack, CoursePath: "/pottery"}

	cases := []struct {
		name string
		edit func(r *Request)
		want error
	}{
		{"stale pack price", func(r *Request) { r.PackPrice = i64(11000) }, ErrPriceChanged},
		{"stale pack size", func(r *Request) { r.PackSize = 5 }, ErrPriceChanged},
		{"stale total", func(r *Request) { r.Mode = model.CheckoutIndividual; r.EventIDs = []uint64{1}; r.TotalPrice = i64(1000) }, ErrPriceChanged},
		{"free code", func(r *Request) { r.PromoCode = "FREEPACK" }, ErrUseRedeem},
		{"unknown code", func(r *Request) { r.PromoCode = "NOPE" }, ledger.ErrPromoNotFound},
		{"bad mode", func(r *Request) { r.Mode = "subscription" }, ErrInvalidMode},
		{"empty individual", func(r *Request) { r.Mode = model.CheckoutIndividual }, ledger.ErrEmptySelection},
		{"unknown course", func(r *Request) { r.CoursePath = "/juggling" }, ledger.ErrCourseNotFound},
		{"pack disabled", func(r *Request) { r.CoursePath = "/sound-bath" }, ErrPackDisabled},
		{"past date", func(r *Request) { r.EventIDs = []uint64{3} }, ledger.ErrEventUnavailable},
		{"missing event", func(r *Request) { r.EventIDs = []uint64{42} }, ledger.ErrEventNotFound},
		{"guest without contact", func(r *Request) { r.UserID = "" }, ErrGuestRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.edit(&req)
			_, err := h.svc.Create(ctx, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, h.gw.created)
	assert.Empty(t, h.repos.checkouts)
}

func TestCreate_AdvisoryCapacityAndDuplicate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.repos.booked[1] = true
	_, err := h.svc.Create(ctx, Request{UserID: "u1", Mode: model.CheckoutPack, CoursePath: "/pottery", EventIDs: []uint64{1}})
	assert.ErrorIs(t, err, ledger.ErrAlreadyBooked)

	h.repos.counts[2] = 2
	_, err = h.svc.Create(ctx, Request{UserID: "u1", Mode: model.CheckoutPack, CoursePath: "/pottery", EventIDs: []uint64{2}})
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)
	assert.Empty(t, h.gw.created)
}

func TestConfirm(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.gw.sessions["cs_paid"] = &Session{ID: "cs_paid", Reference: "ref-1", Paid: true}
	h.gw.sessions["cs_open"] = &Session{ID: "cs_open", Reference: "ref-2"}

	out, err := h.svc.Confirm(ctx, "cs_paid")
	require.NoError(t, err)
	assert.Equal(t, "ref-1", out.Reference)

	_, err = h.svc.Confirm(ctx, "cs_open")
	assert.ErrorIs(t, err, ErrPaymentPending)
	assert.Equal(t, []string{"ref-1"}, h.ledger.fulfilled)
}

func TestHandleWebhook(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.gw.hookErr = ErrInvalidSignature
	assert.ErrorIs(t, h.svc.HandleWebhook(ctx, []byte("{}"), "bad"), ErrInvalidSignature)

	h.gw.hookErr = nil
	h.gw.webhook = nil
	require.NoError(t, h.svc.HandleWebhook(ctx, []byte("{}"), "sig"))

	h.gw.webhook = &Session{ID: "cs_1", Reference: "ref-9"}
	require.NoError(t, h.svc.HandleWebhook(ctx, []byte("{}"), "sig"))
	assert.Empty(t, h.ledger.fulfilled)

	h.gw.webhook = &Session{ID: "cs_1", Reference: "ref-9", Paid: true}
	require.NoError(t, h.svc.HandleWebhook(ctx, []byte("{}"), "sig"))
	assert.Equal(t, []string{"ref-9"}, h.ledger.fulfilled)

	h.ledger.fulfillFn = func(string) (ledger.Fulfillment, error) { return ledger.Fulfillment{}, ledger.ErrCheckoutNotFound }
	require.NoError(t, h.svc.HandleWebhook(ctx, []byte("{}"), "sig"))

	for _, rejection := range []error{ledger.ErrUserNotFound, ledger.ErrEmailRegistered, ledger.ErrCourseNotFound} {
		h.ledger.fulfillFn = func(string) (ledger.Fulfillment, error) { return ledger.Fulfillment{}, rejection }
		assert.NoError(t, h.svc.HandleWebhook(ctx, []byte("{}"), "sig"), rejection.Error())
	}

	h.ledger.fulfillFn = func(string) (ledger.Fulfillment, error) { return ledger.Fulfillment{}, errors.New("db down") }
	assert.Error(t, h.svc.HandleWebhook(ctx, []byte("{}"), "sig"))

	h.ledger.fulfillFn = func(string) (ledger.Fulfillment, error) {
		return ledger.Fulfillment{}, fmt.Errorf("fulfill: %w", context.DeadlineExceeded)
	}
	assert.Error(t, h.svc.HandleWebhook(ctx, []byte("{}"), "sig"))
}

func TestCheckCode(t *testing.T) {
	h := newHarness()
	p, err := h.svc.CheckCode(context.Background(), " spring20", "/pottery")
	require.NoError(t, err)
	assert.Equal(t, 20, p.DiscountValue)
}

func strPtr(s string) *string { return &s }
