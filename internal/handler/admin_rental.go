package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/model"
)

type rentalSlotReq struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	TimeLabel string `json:"timeLabel" validate:"required,max=64"`
	Note      string `json:"note" validate:"max=500"`
}

type rentRequestResp struct {
	ID        uint64    `json:"id"`
	SlotID    uint64    `json:"slotId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func toRequestResp(r model.RentRequest) rentRequestResp {
	return rentRequestResp{ID: r.ID, SlotID: r.SlotID, Name: r.Name, Email: r.Email, Message: r.Message, Status: r.Status, CreatedAt: r.CreatedAt}
}

// CreateRentalSlot handles POST /v1/admin/rentals.
func (h *AdminHandler) CreateRentalSlot(c echo.Context) error {
	var req rentalSlotReq
	if msg := bindValid(c, &req); msg != "" {
		return badRequest(c, msg)
	}
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	s := &model.RentalSlot{Date: day, TimeLabel: strings.TrimSpace(req.TimeLabel), Note: strings.TrimSpace(req.Note), Status: model.RentalAvailable}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Rentals.CreateSlot(ctx, s); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toSlotResp(*s))
}

// ListRentalSlots handles GET /v1/admin/rentals (?status= filters).
func (h *AdminHandler) ListRentalSlots(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	slots, err := h.Rentals.ListSlots(ctx, h.Clock.Today(), c.QueryParam("status"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]rentalSlotResp, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResp(s))
	}
	return c.JSON(http.StatusOK, out)
}

// DeleteRentalSlot handles DELETE /v1/admin/rentals/:id.
func (h *AdminHandler) DeleteRentalSlot(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid slot id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Rentals.DeleteSlot(ctx, id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListRentRequests handles GET /v1/admin/rent-requests (?status= filters).
func (h *AdminHandler) ListRentRequests(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reqs, err := h.Rentals.ListRequests(ctx, c.QueryParam("status"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]rentRequestResp, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toRequestResp(r))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) decide(c echo.Context, approve bool) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	r, err := h.Rentals.Decide(ctx, id, approve)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toRequestResp(*r))
}

// ApproveRentRequest handles POST /v1/admin/rent-requests/:id/approve.
func (h *AdminHandler) ApproveRentRequest(c echo.Context) error { return h.decide(c, true) }

// RejectRentRequest handles POST /v1/admin/rent-requests/:id/reject and frees the slot.
func (h *AdminHandler) RejectRentRequest(c echo.Context) error { return h.decide(c, false) }
