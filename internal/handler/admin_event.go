package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/catalog"
	"github.com/iliyamo/studio-booking/internal/ledger"
	"github.com/iliyamo/studio-booking/internal/model"
)

type eventReq struct {
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	TimeLabel    string  `json:"timeLabel" validate:"max=64"`
	TitleEN      string  `json:"titleEn" validate:"required,max=200"`
	TitleDE      string  `json:"titleDe" validate:"max=200"`
	CoursePath   *string `json:"coursePath"`
	ExternalLink *string `json:"externalLink" validate:"omitempty,url"`
	Kind         string  `json:"kind" validate:"required,oneof=course event"`
}

// toEvent checks the course reference and builds the row.
func (h *AdminHandler) toEvent(req eventReq) (*model.Event, string) {
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, "date must be YYYY-MM-DD"
	}
	e := &model.Event{
		Date:         day,
		TimeLabel:    strings.TrimSpace(req.TimeLabel),
		TitleEN:      strings.TrimSpace(req.TitleEN),
		TitleDE:      strings.TrimSpace(req.TitleDE),
		ExternalLink: req.ExternalLink,
		Kind:         req.Kind,
	}
	if req.CoursePath != nil && strings.TrimSpace(*req.CoursePath) != "" {
		course, ok := h.Table.Lookup(*req.CoursePath)
		if !ok {
			return nil, "unknown coursePath"
		}
		e.CoursePath = &course.Path
	}
	if e.Kind == model.KindCourse && e.CoursePath == nil {
		return nil, "course occurrences need a coursePath"
	}
	return e, ""
}

// ListEvents handles GET /v1/admin/events.  Occurrences dated before today
// are purged first, then everything ahead is listed with booking counts.
func (h *AdminHandler) ListEvents(c echo.Context) error {
	today := h.Clock.Today()

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	purged, err := h.Events.PurgeBefore(ctx, today)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if purged > 0 && h.Log != nil {
		h.Log.Info("purged past events", zap.Int64("count", purged))
	}
	rows, err := h.Events.ListRange(ctx, today, today.AddDate(2, 0, 0), catalog.Normalize(c.QueryParam("course")))
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]eventResp, 0, len(rows))
	for _, e := range rows {
		out = append(out, toEventResp(e, nil))
	}
	return c.JSON(http.StatusOK, out)
}

// CreateEvent handles POST /v1/admin/events.
func (h *AdminHandler) CreateEvent(c echo.Context) error {
	var req eventReq
	if msg := bindValid(c, &req); msg != "" {
		return badRequest(c, msg)
	}
	e, msg := h.toEvent(req)
	if msg != "" {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.Create(ctx, e); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, eventResp{
		ID: e.ID, Date: e.Day(), TimeLabel: e.TimeLabel, Title: titlePair{EN: e.TitleEN, DE: e.TitleDE},
		CoursePath: e.CoursePath, ExternalLink: e.ExternalLink, Kind: e.Kind,
	})
}

// UpdateEvent handles PUT /v1/admin/events/:id.
func (h *AdminHandler) UpdateEvent(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req eventReq
	if msg := bindValid(c, &req); msg != "" {
		return badRequest(c, msg)
	}
	e, msg := h.toEvent(req)
	if msg != "" {
		return badRequest(c, msg)
	}
	e.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.Update(ctx, e); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, eventResp{
		ID: e.ID, Date: e.Day(), TimeLabel: e.TimeLabel, Title: titlePair{EN: e.TitleEN, DE: e.TitleDE},
		CoursePath: e.CoursePath, ExternalLink: e.ExternalLink, Kind: e.Kind,
	})
}

// DeleteEvent handles DELETE /v1/admin/events/:id.  An occurrence with
// bookings is only removed with ?force=true, which refunds every booking.
func (h *AdminHandler) DeleteEvent(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	force, _ := strconv.ParseBool(c.QueryParam("force"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	refunded, err := h.Remover.DeleteEvent(ctx, ledger.EventRemoval{EventID: id, Force: force, Lang: lang(c.QueryParam("lang"))})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": id, "refunded": refunded})
}
