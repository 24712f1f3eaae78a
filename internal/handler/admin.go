// Package handler holds the echo handlers.  Admin routes live in the admin_*
// files and share AdminHandler; every admin route is mounted behind JWTAuth
// and RequireRole(admin).
package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/catalog"
	"github.com/iliyamo/studio-booking/internal/ledger"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

type (
	EventStore interface {
		Create(ctx context.Context, e *model.Event) error
		Update(ctx context.Context, e *model.Event) error
		GetByID(ctx context.Context, id uint64) (*model.Event, error)
		PurgeBefore(ctx context.Context, day time.Time) (int64, error)
		ListRange(ctx context.Context, from, to time.Time, coursePath string) ([]repository.EventSummary, error)
	}
	EventRemover interface {
		DeleteEvent(ctx context.Context, in ledger.EventRemoval) (int, error)
	}
	PromoStore interface {
		Create(ctx context.Context, p *model.PromoCode) error
		List(ctx context.Context) ([]model.PromoCode, error)
		Delete(ctx context.Context, code string) error
	}
)

// AdminHandler bundles the stores behind the admin console.
type AdminHandler struct {
	Table   *catalog.Catalog
	Courses CourseStore
	Events  EventStore
	Remover EventRemover
	Promos  PromoStore
	Rentals RentalStore
	Clock   Clock
	Log     *zap.Logger
}

// NewAdminHandler panics on a missing dependency; a half-wired admin console
// is a startup bug.
func NewAdminHandler(cat *catalog.Catalog, cs CourseStore, es EventStore, rm EventRemover, ps PromoStore, rs RentalStore, clk Clock, log *zap.Logger) *AdminHandler {
	if cat == nil || cs == nil || es == nil || rm == nil || ps == nil || rs == nil || clk == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Table: cat, Courses: cs, Events: es, Remover: rm, Promos: ps, Rentals: rs, Clock: clk, Log: log}
}
