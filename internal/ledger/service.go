// Package ledger keeps credit balances, bookings and occurrence capacity
// consistent.  Every operation runs as one Store transaction: it either
// applies completely or leaves no trace.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/catalog"
	"github.com/iliyamo/studio-booking/internal/mail"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

const tracerName = "github.com/iliyamo/studio-booking/internal/ledger"

// Options configures a Service.  Store and Reader are required; the rest
// have usable defaults.
type Options struct {
	Store           Store
	Reader          Reader
	Catalog         *catalog.Catalog
	Composer        *mail.Composer
	Location        *time.Location
	LeadDays        int
	DefaultPackSize int
	Logger          *zap.Logger
	Now             func() time.Time
}

// Service implements the booking and credit operations.
type Service struct {
	store       Store
	reader      Reader
	catalog     *catalog.Catalog
	composer    *mail.Composer
	loc         *time.Location
	leadDays    int
	defaultPack int
	log         *zap.Logger
	now         func() time.Time
	tracer      trace.Tracer
}

// Result is what a ledger operation leaves behind for the caller.
type Result struct {
	Balance  int
	Bookings []model.Booking
}

// New builds a Service from o.
func New(o Options) *Service {
	s := &Service{
		store:       o.Store,
		reader:      o.Reader,
		catalog:     o.Catalog,
		composer:    o.Composer,
		loc:         o.Location,
		leadDays:    o.LeadDays,
		defaultPack: o.DefaultPackSize,
		log:         o.Logger,
		now:         o.Now,
		tracer:      otel.Tracer(tracerName),
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	if s.composer == nil {
		s.composer = mail.NewComposer("", s.leadDays)
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.defaultPack < 1 {
		s.defaultPack = 10
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Today is the current calendar day in studio time.
func (s *Service) Today() time.Time {
	n := s.now().In(s.loc)
	y, m, d := n.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// Location is the studio time zone.
func (s *Service) Location() *time.Location { return s.loc }

// NormalizeSelection drops zero and repeated ids and sorts the rest.  Events
// are locked in ascending id order so concurrent multi-date bookings always
// acquire row locks in the same sequence.
func NormalizeSelection(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Service) profileTx(ctx context.Context, tx Tx, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	p, err := tx.Profile(ctx, userID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, ErrUserNotFound
	}
	return p, err
}

func (s *Service) courseTx(ctx context.Context, tx Tx, path string) (*model.CourseSettings, error) {
	cs, err := tx.CourseSettings(ctx, catalog.Normalize(path))
	if errors.Is(err, repository.ErrCourseNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	if !cs.Visible {
		return nil, ErrCourseNotFound
	}
	return cs, nil
}

// bookTx books every id for userID.  Each event row is locked before its
// bookings are counted, so the capacity check and the insert cannot race
// another booker of the same occurrence.
func (s *Service) bookTx(ctx context.Context, tx Tx, userID string, cs *model.CourseSettings, ids []uint64, origin string) ([]model.Booking, []time.Time, error) {
	today := s.Today()
	bookings := make([]model.Booking, 0, len(ids))
	dates := make([]time.Time, 0, len(ids))
	for _, id := range ids {
		ev, err := tx.LockEvent(ctx, id)
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, nil, fmt.Errorf("event %d: %w", id, ErrEventNotFound)
		}
		if err != nil {
			return nil, nil, err
		}
		if !ev.IsCourse(cs.CoursePath) || ev.StartsAt(s.loc).Before(today) {
			return nil, nil, fmt.Errorf("event %d: %w", id, ErrEventUnavailable)
		}
		dup, err := tx.HasBooking(ctx, userID, id)
		if err != nil {
			return nil, nil, err
		}
		if dup {
			return nil, nil, fmt.Errorf("event %d: %w", id, ErrAlreadyBooked)
		}
		n, err := tx.CountBookings(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if !cs.HasRoom(n) {
			return nil, nil, fmt.Errorf("event %d: %w", id, ErrCapacityExceeded)
		}
		b := model.Booking{
			UserID:     userID,
			EventID:    id,
			CoursePath: cs.CoursePath,
			Origin:     origin,
			CreatedAt:  s.now().UTC(),
		}
		if err := tx.InsertBooking(ctx, &b); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, nil, fmt.Errorf("event %d: %w", id, ErrAlreadyBooked)
			}
			return nil, nil, err
		}
		bookings = append(bookings, b)
		dates = append(dates, ev.Date)
	}
	return bookings, dates, nil
}

// notify renders a message for p and queues it inside tx.  Profiles without
// an email address receive nothing.
func (s *Service) notify(ctx context.Context, tx Tx, kind, lang string, p *model.Profile, d mail.Data) error {
	if p == nil || p.Email == "" {
		return nil
	}
	d.Name = p.FullName()
	if d.Name == "" {
		d.Name = p.Email
	}
	m, err := s.composer.Compose(kind, lang, p.Email, d)
	if err != nil {
		return err
	}
	return tx.EnqueueMail(ctx, m)
}

// observe ends span and logs the outcome of op.  Rejections are ordinary
// business outcomes and log at Info.
func (s *Service) observe(span trace.Span, op string, err error, fields ...zap.Field) {
	defer span.End()
	switch {
	case err == nil:
		s.log.Info(op, fields...)
	case IsRejection(err):
		span.SetAttributes(attribute.String("ledger.rejection", err.Error()))
		s.log.Info(op+" rejected", append(fields, zap.Error(err))...)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error(op+" failed", append(fields, zap.Error(err))...)
	}
}
