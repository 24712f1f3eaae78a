package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// memStore is an in-memory Store that runs one transaction at a time and
// restores a snapshot when fn fails.
type memStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	profiles  map[string]model.Profile
	courses   map[string]model.CourseSettings
	events    map[uint64]model.Event
	bookings  map[uint64]model.Booking
	nextID    uint64
	credits   map[string]map[string]int
	promos    map[string]model.PromoCode
	checkouts map[string]model.CheckoutSession
	mail      []model.MailMessage
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		profiles:  map[string]model.Profile{},
		courses:   map[string]model.CourseSettings{},
		events:    map[uint64]model.Event{},
		bookings:  map[uint64]model.Booking{},
		credits:   map[string]map[string]int{},
		promos:    map[string]model.PromoCode{},
		checkouts: map[string]model.CheckoutSession{},
	}}
}

func (s memState) clone() memState {
	c := memState{
		profiles:  make(map[string]model.Profile, len(s.profiles)),
		courses:   make(map[string]model.CourseSettings, len(s.courses)),
		events:    make(map[uint64]model.Event, len(s.events)),
		bookings:  make(map[uint64]model.Booking, len(s.bookings)),
		nextID:    s.nextID,
		credits:   make(map[string]map[string]int, len(s.credits)),
		promos:    make(map[string]model.PromoCode, len(s.promos)),
		checkouts: make(map[string]model.CheckoutSession, len(s.checkouts)),
		mail:      append([]model.MailMessage(nil), s.mail...),
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.courses {
		c.courses[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for user, m := range s.credits {
		cm := make(map[string]int, len(m))
		for k, v := range m {
			cm[k] = v
		}
		c.credits[user] = cm
	}
	for k, v := range s.promos {
		c.promos[k] = v
	}
	for k, v := range s.checkouts {
		v.EventIDs = append([]uint64(nil), v.EventIDs...)
		c.checkouts[k] = v
	}
	return c
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := m.state.clone()
	if err := fn(ctx, &memTx{s: &m.state}); err != nil {
		m.state = saved
		return err
	}
	return nil
}

// seeding helpers, used outside transactions

func (m *memStore) addProfile(p model.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.profiles[p.ID] = p
}

func (m *memStore) addCourse(cs model.CourseSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.courses[cs.CoursePath] = cs
}

func (m *memStore) addEvent(ev model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.events[ev.ID] = ev
}

func (m *memStore) addPromo(p model.PromoCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.promos[p.Code] = p
}

func (m *memStore) addCheckout(co model.CheckoutSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.checkouts[co.Reference] = co
}

func (m *memStore) setCredits(userID, key string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.credits[userID] == nil {
		m.state.credits[userID] = map[string]int{}
	}
	m.state.credits[userID][key] = n
}

func (m *memStore) balance(userID, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.credits[userID][key]
}

func (m *memStore) bookingCount(eventID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.state.bookings {
		if b.EventID == eventID {
			n++
		}
	}
	return n
}

func (m *memStore) userBookings(userID string) []model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.state.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) mails() []model.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.MailMessage(nil), m.state.mail...)
}

func (m *memStore) promo(code string) model.PromoCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.promos[code]
}

func (m *memStore) checkout(ref string) model.CheckoutSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.checkouts[ref]
}

func (m *memStore) hasEvent(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.state.events[id]
	return ok
}

// Reader

func (m *memStore) Balances(_ context.Context, userID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for k, v := range m.state.credits[userID] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) UserBookings(_ context.Context, userID string) ([]model.BookingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.details(func(b model.Booking) bool { return b.UserID == userID }), nil
}

func (m *memStore) EventBookings(_ context.Context, eventID uint64) ([]model.BookingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.details(func(b model.Booking) bool { return b.EventID == eventID }), nil
}

func (m *memStore) details(keep func(model.Booking) bool) []model.BookingDetail {
	var out []model.BookingDetail
	for _, b := range m.state.bookings {
		if !keep(b) {
			continue
		}
		ev := m.state.events[b.EventID]
		p := m.state.profiles[b.UserID]
		out = append(out, model.BookingDetail{
			Booking: b, EventDate: ev.Date, TimeLabel: ev.TimeLabel,
			TitleEN: ev.TitleEN, TitleDE: ev.TitleDE, UserEmail: p.Email, UserName: p.FullName(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventDate.Equal(out[j].EventDate) {
			return out[i].EventDate.Before(out[j].EventDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type memTx struct{ s *memState }

func (t *memTx) Profile(_ context.Context, userID string) (*model.Profile, error) {
	p, ok := t.s.profiles[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return &p, nil
}

func (t *memTx) UpsertGuest(_ context.Context, g model.GuestInfo) (*model.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(g.Email))
	for id, p := range t.s.profiles {
		if strings.EqualFold(p.Email, email) {
			if !p.IsGuest {
				return nil, repository.ErrEmailRegistered
			}
			p.FirstName, p.LastName = g.FirstName, g.LastName
			t.s.profiles[id] = p
			return &p, nil
		}
	}
	p := model.Profile{ID: uuid.NewString(), Email: email, FirstName: g.FirstName, LastName: g.LastName, Role: model.RoleUser, IsGuest: true}
	t.s.profiles[p.ID] = p
	return &p, nil
}

func (t *memTx) CourseSettings(_ context.Context, coursePath string) (*model.CourseSettings, error) {
	cs, ok := t.s.courses[coursePath]
	if !ok {
		return nil, repository.ErrCourseNotFound
	}
	return &cs, nil
}

func (t *memTx) LockEvent(_ context.Context, eventID uint64) (*model.Event, error) {
	ev, ok := t.s.events[eventID]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return &ev, nil
}

func (t *memTx) DeleteEvent(_ context.Context, eventID uint64) error {
	if _, ok := t.s.events[eventID]; !ok {
		return repository.ErrEventNotFound
	}
	delete(t.s.events, eventID)
	for id, b := range t.s.bookings {
		if b.EventID == eventID {
			delete(t.s.bookings, id)
		}
	}
	return nil
}

func (t *memTx) CountBookings(_ context.Context, eventID uint64) (int, error) {
	n := 0
	for _, b := range t.s.bookings {
		if b.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) HasBooking(_ context.Context, userID string, eventID uint64) (bool, error) {
	for _, b := range t.s.bookings {
		if b.EventID == eventID && b.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) EventBookings(_ context.Context, eventID uint64) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range t.s.bookings {
		if b.EventID == eventID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	for _, x := range t.s.bookings {
		if x.EventID == b.EventID && x.UserID == b.UserID {
			return repository.ErrDuplicate
		}
	}
	t.s.nextID++
	b.ID = t.s.nextID
	t.s.bookings[b.ID] = *b
	return nil
}

func (t *memTx) LockBooking(_ context.Context, bookingID uint64) (*model.Booking, error) {
	b, ok := t.s.bookings[bookingID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &b, nil
}

func (t *memTx) DeleteBooking(_ context.Context, bookingID uint64) error {
	if _, ok := t.s.bookings[bookingID]; !ok {
		return repository.ErrBookingNotFound
	}
	delete(t.s.bookings, bookingID)
	return nil
}

func (t *memTx) LockCredits(_ context.Context, userID, courseKey string) (int, error) {
	return t.s.credits[userID][courseKey], nil
}

func (t *memTx) AddCredits(_ context.Context, userID, courseKey string, delta int) (int, error) {
	if t.s.credits[userID] == nil {
		t.s.credits[userID] = map[string]int{}
	}
	n := t.s.credits[userID][courseKey] + delta
	if n < 0 {
		return 0, errors.New("memstore: balance would go negative")
	}
	t.s.credits[userID][courseKey] = n
	return n, nil
}

func (t *memTx) LockPromo(_ context.Context, code string) (*model.PromoCode, error) {
	p, ok := t.s.promos[code]
	if !ok {
		return nil, repository.ErrPromoNotFound
	}
	return &p, nil
}

func (t *memTx) IncrementPromo(_ context.Context, code string) error {
	p, ok := t.s.promos[code]
	if !ok {
		return repository.ErrPromoNotFound
	}
	p.TimesUsed++
	t.s.promos[code] = p
	return nil
}

func (t *memTx) LockCheckout(_ context.Context, reference string) (*model.CheckoutSession, error) {
	co, ok := t.s.checkouts[reference]
	if !ok {
		return nil, repository.ErrCheckoutNotFound
	}
	return &co, nil
}

func (t *memTx) FinishCheckout(_ context.Context, reference, status, userID string, balance *int, at time.Time) error {
	co, ok := t.s.checkouts[reference]
	if !ok {
		return repository.ErrCheckoutNotFound
	}
	co.Status, co.UserID = status, userID
	if balance != nil {
		n := *balance
		co.ResultBalance = &n
	}
	co.FulfilledAt = &at
	t.s.checkouts[reference] = co
	return nil
}

func (t *memTx) EnqueueMail(_ context.Context, m *model.MailMessage) error {
	m.ID = uint64(len(t.s.mail) + 1)
	t.s.mail = append(t.s.mail, *m)
	return nil
}
