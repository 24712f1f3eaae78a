package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/catalog"
	"github.com/iliyamo/studio-booking/internal/model"
)

type promoReq struct {
	Code         string `json:"code" validate:"required,alphanum,max=64"`
	CoursePath   string `json:"coursePath"`
	DiscountType string `json:"discountType" validate:"required,oneof=free percent"`
	Value        int    `json:"value" validate:"gte=0,lte=100"`
	LimitType    string `json:"limitType" validate:"required,oneof=uses date"`
	MaxUses      *int   `json:"maxUses"`
	ExpiresOn    string `json:"expiresOn" validate:"omitempty,datetime=2006-01-02"`
}

type promoResp struct {
	Code         string    `json:"code"`
	CoursePath   string    `json:"coursePath,omitempty"`
	DiscountType string    `json:"discountType"`
	Value        int       `json:"value"`
	LimitType    string    `json:"limitType"`
	MaxUses      *int      `json:"maxUses,omitempty"`
	ExpiresOn    string    `json:"expiresOn,omitempty"`
	TimesUsed    int       `json:"timesUsed"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toPromoResp(p model.PromoCode) promoResp {
	r := promoResp{
		Code: p.Code, CoursePath: p.CoursePath, DiscountType: p.DiscountType, Value: p.DiscountValue,
		LimitType: p.LimitType, MaxUses: p.MaxUses, TimesUsed: p.TimesUsed, CreatedAt: p.CreatedAt,
	}
	if p.ExpiresOn != nil {
		r.ExpiresOn = p.ExpiresOn.Format("2006-01-02")
	}
	return r
}

// toPromo applies the rules the tags cannot express.
func (h *AdminHandler) toPromo(req promoReq) (*model.PromoCode, string) {
	p := &model.PromoCode{
		Code:          model.NormalizeCode(req.Code),
		DiscountType:  req.DiscountType,
		DiscountValue: req.Value,
		LimitType:     req.LimitType,
	}
	if req.CoursePath != "" {
		course, ok := h.Table.Lookup(catalog.Normalize(req.CoursePath))
		if !ok {
			return nil, "unknown coursePath"
		}
		p.CoursePath = course.Path
	}
	switch req.DiscountType {
	case model.DiscountPercent:
		if req.Value < 1 || req.Value > 100 {
			return nil, "percent value must be between 1 and 100"
		}
	case model.DiscountFree:
		p.DiscountValue = 0
	}
	switch req.LimitType {
	case model.LimitUses:
		if req.MaxUses == nil || *req.MaxUses < 1 {
			return nil, "uses limit requires maxUses >= 1"
		}
		p.MaxUses = req.MaxUses
	case model.LimitDate:
		if req.ExpiresOn == "" {
			return nil, "date limit requires expiresOn"
		}
		t, err := time.Parse("2006-01-02", req.ExpiresOn)
		if err != nil {
			return nil, "expiresOn must be YYYY-MM-DD"
		}
		p.ExpiresOn = &t
	}
	return p, ""
}

// ListPromos handles GET /v1/admin/promos.
func (h *AdminHandler) ListPromos(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	all, err := h.Promos.List(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]promoResp, 0, len(all))
	for _, p := range all {
		out = append(out, toPromoResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

// CreatePromo handles POST /v1/admin/promos.  Codes are stored uppercase; an
// existing code is a 409.
func (h *AdminHandler) CreatePromo(c echo.Context) error {
	var req promoReq
	if msg := bindValid(c, &req); msg != "" {
		return badRequest(c, msg)
	}
	p, msg := h.toPromo(req)
	if msg != "" {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Promos.Create(ctx, p); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toPromoResp(*p))
}

// DeletePromo handles DELETE /v1/admin/promos/:code.
func (h *AdminHandler) DeletePromo(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Promos.Delete(ctx, model.NormalizeCode(c.Param("code"))); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
