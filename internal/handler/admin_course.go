package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/catalog"
	"github.com/iliyamo/studio-booking/internal/ledger"
	"github.com/iliyamo/studio-booking/internal/model"
)

type courseSettingsReq struct {
	PriceSingle     int64  `json:"priceSingle" validate:"gte=0"`
	PackPrice       int64  `json:"packPrice" validate:"gte=0"`
	PackSize        int    `json:"packSize" validate:"gte=0"`
	PackEnabled     bool   `json:"packEnabled"`
	CapacityLimit   *int   `json:"capacityLimit" validate:"omitempty,gte=1"`
	Visible         bool   `json:"visible"`
	PricingMode     string `json:"pricingMode" validate:"required,oneof=session duration"`
	DurationMinutes int    `json:"durationMinutes" validate:"gte=0"`
}

// ListCourses handles GET /v1/admin/courses.
func (h *AdminHandler) ListCourses(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	all, err := h.Courses.List(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]settingsResp, 0, len(all))
	for _, s := range all {
		out = append(out, toSettingsResp(s))
	}
	return c.JSON(http.StatusOK, out)
}

// GetCourse handles GET /v1/admin/courses/:key.
func (h *AdminHandler) GetCourse(c echo.Context) error {
	path, ok := h.coursePath(c)
	if !ok {
		return fail(c, h.Log, ledger.ErrCourseNotFound)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Courses.Get(ctx, path)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toSettingsResp(*s))
}

// PutCourse handles PUT /v1/admin/courses/:key and creates or replaces the
// settings of a catalog course.
func (h *AdminHandler) PutCourse(c echo.Context) error {
	path, ok := h.coursePath(c)
	if !ok {
		return fail(c, h.Log, ledger.ErrCourseNotFound)
	}
	var req courseSettingsReq
	if msg := bindValid(c, &req); msg != "" {
		return badRequest(c, msg)
	}
	s := model.CourseSettings{
		CoursePath:       path,
		PriceSingleCents: req.PriceSingle,
		PackPriceCents:   req.PackPrice,
		PackSize:         req.PackSize,
		PackEnabled:      req.PackEnabled,
		CapacityLimit:    req.CapacityLimit,
		Visible:          req.Visible,
		PricingMode:      req.PricingMode,
		DurationMinutes:  req.DurationMinutes,
	}
	if err := s.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Courses.Upsert(ctx, s); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toSettingsResp(s))
}

// coursePath resolves :key against the course table.
func (h *AdminHandler) coursePath(c echo.Context) (string, bool) {
	course, ok := h.Table.Lookup(catalog.Normalize(c.Param("key")))
	return course.Path, ok
}
