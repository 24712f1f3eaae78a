package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/catalog"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

type (
	CourseStore interface {
		Get(ctx context.Context, path string) (*model.CourseSettings, error)
		List(ctx context.Context) ([]model.CourseSettings, error)
		Upsert(ctx context.Context, s model.CourseSettings) error
	}
	EventLister interface {
		ListRange(ctx context.Context, from, to time.Time, coursePath string) ([]repository.EventSummary, error)
	}
	RentalStore interface {
		CreateSlot(ctx context.Context, s *model.RentalSlot) error
		ListSlots(ctx context.Context, from time.Time, status string) ([]model.RentalSlot, error)
		DeleteSlot(ctx context.Context, id uint64) error
		ListRequests(ctx context.Context, status string) ([]model.RentRequest, error)
		RequestSlot(ctx context.Context, req *model.RentRequest) error
		Decide(ctx context.Context, requestID uint64, approve bool) (*model.RentRequest, error)
	}
	// Clock tells the studio's current day.
	Clock interface {
		Today() time.Time
	}
)

// eventHorizonMonths bounds the public event list.
const eventHorizonMonths = 6

// PublicHandler serves the unauthenticated browse pages.
type PublicHandler struct {
	Table    *catalog.Catalog
	Courses  CourseStore
	Schedule EventLister
	Slots    RentalStore
	Clock    Clock
	Log      *zap.Logger
}

func NewPublicHandler(cat *catalog.Catalog, cs CourseStore, ev EventLister, rs RentalStore, clk Clock, log *zap.Logger) *PublicHandler {
	return &PublicHandler{Table: cat, Courses: cs, Schedule: ev, Slots: rs, Clock: clk, Log: log}
}

type settingsResp struct {
	CoursePath      string `json:"coursePath"`
	PriceSingle     int64  `json:"priceSingle"`
	PackPrice       int64  `json:"packPrice"`
	PackSize        int    `json:"packSize"`
	PackEnabled     bool   `json:"packEnabled"`
	CapacityLimit   *int   `json:"capacityLimit"`
	Visible         bool   `json:"visible"`
	PricingMode     string `json:"pricingMode"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

func toSettingsResp(s model.CourseSettings) settingsResp {
	return settingsResp{
		CoursePath: s.CoursePath, PriceSingle: s.PriceSingleCents, PackPrice: s.PackPriceCents,
		PackSize: s.PackSize, PackEnabled: s.PackEnabled, CapacityLimit: s.CapacityLimit,
		Visible: s.Visible, PricingMode: s.PricingMode, DurationMinutes: s.DurationMinutes,
	}
}

type courseResp struct {
	catalog.Course
	Settings *settingsResp `json:"settings,omitempty"`
}

type planetResp struct {
	Sense   string        `json:"sense"`
	Title   catalog.Title `json:"title"`
	Courses []courseResp  `json:"courses"`
}

type eventResp struct {
	ID           uint64    `json:"id"`
	Date         string    `json:"date"`
	TimeLabel    string    `json:"timeLabel"`
	Title        titlePair `json:"title"`
	CoursePath   *string   `json:"coursePath,omitempty"`
	ExternalLink *string   `json:"externalLink,omitempty"`
	Kind         string    `json:"kind"`
	Booked       int       `json:"booked"`
	Capacity     *int      `json:"capacity,omitempty"`
}

func toEventResp(e repository.EventSummary, capacity *int) eventResp {
	return eventResp{
		ID: e.ID, Date: e.Day(), TimeLabel: e.TimeLabel, Title: titlePair{EN: e.TitleEN, DE: e.TitleDE},
		CoursePath: e.CoursePath, ExternalLink: e.ExternalLink, Kind: e.Kind, Booked: e.Booked, Capacity: capacity,
	}
}

type rentalSlotResp struct {
	ID        uint64 `json:"id"`
	Date      string `json:"date"`
	TimeLabel string `json:"timeLabel"`
	Note      string `json:"note"`
	Status    string `json:"status"`
}

func toSlotResp(s model.RentalSlot) rentalSlotResp {
	return rentalSlotResp{ID: s.ID, Date: s.Date.Format("2006-01-02"), TimeLabel: s.TimeLabel, Note: s.Note, Status: s.Status}
}

type rentRequestReq struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"max=2000"`
}

// Catalog lists planets with their courses.  Settings are attached only for
// visible courses.
func (h *PublicHandler) Catalog(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	all, err := h.Courses.List(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	visible := make(map[string]model.CourseSettings, len(all))
	for _, s := range all {
		if s.Visible {
			visible[s.CoursePath] = s
		}
	}

	planets := h.Table.Planets()
	out := make([]planetResp, 0, len(planets))
	for _, p := range planets {
		pr := planetResp{Sense: p.Sense, Title: p.Title, Courses: make([]courseResp, 0, len(p.Courses))}
		for _, course := range p.Courses {
			cr := courseResp{Course: course}
			if s, ok := visible[course.Path]; ok {
				sr := toSettingsResp(s)
				cr.Settings = &sr
			}
			pr.Courses = append(pr.Courses, cr)
		}
		out = append(out, pr)
	}
	return c.JSON(http.StatusOK, out)
}

// CourseSessions lists the bookable dates of one course in a month
// (?month=YYYY-MM, default the current one).  Past dates are left out.
func (h *PublicHandler) CourseSessions(c echo.Context) error {
	path := catalog.Normalize(c.Param("key"))
	today := h.Clock.Today()

	from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	if m := strings.TrimSpace(c.QueryParam("month")); m != "" {
		t, err := time.ParseInLocation("2006-01", m, today.Location())
		if err != nil {
			return badRequest(c, "month must be YYYY-MM")
		}
		from = t
	}
	to := from.AddDate(0, 1, -1)
	if from.Before(today) {
		from = today
	}
	if to.Before(from) {
		return c.JSON(http.StatusOK, []eventResp{})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cs, err := h.Courses.Get(ctx, path)
	if err == nil && !cs.Visible {
		err = repository.ErrCourseNotFound
	}
	if err != nil {
		return fail(c, h.Log, err)
	}
	rows, err := h.Schedule.ListRange(ctx, from, to, path)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]eventResp, 0, len(rows))
	for _, e := range rows {
		if e.Kind != model.KindCourse {
			continue
		}
		out = append(out, toEventResp(e, cs.CapacityLimit))
	}
	return c.JSON(http.StatusOK, out)
}

// Events lists every occurrence from today through the next six months.
func (h *PublicHandler) Events(c echo.Context) error {
	today := h.Clock.Today()

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Schedule.ListRange(ctx, today, today.AddDate(0, eventHorizonMonths, 0), "")
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]eventResp, 0, len(rows))
	for _, e := range rows {
		out = append(out, toEventResp(e, nil))
	}
	return c.JSON(http.StatusOK, out)
}

// Rentals lists available room slots from today on.
func (h *PublicHandler) Rentals(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	slots, err := h.Slots.ListSlots(ctx, h.Clock.Today(), model.RentalAvailable)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]rentalSlotResp, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResp(s))
	}
	return c.JSON(http.StatusOK, out)
}

// RequestRental asks for an available slot.  The slot turns pending until
// an admin decides.
func (h *PublicHandler) RequestRental(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid slot id")
	}
	var req rentRequestReq
	if msg := bindValid(c, &req); msg != "" {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rr := &model.RentRequest{
		SlotID:  id,
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Message: strings.TrimSpace(req.Message),
	}
	if err := h.Slots.RequestSlot(ctx, rr); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": rr.ID, "slotId": rr.SlotID, "status": rr.Status})
}
