package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/checkout"
	"github.com/iliyamo/studio-booking/internal/ledger"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
)

// Ledger is the part of ledger.Service the booking routes drive.
type Ledger interface {
	BookWithCredits(ctx context.Context, in ledger.CreditBooking) (ledger.Result, error)
	RedeemPackCode(ctx context.Context, in ledger.CodeRedemption) (ledger.Result, error)
	CancelBooking(ctx context.Context, in ledger.Cancellation) (ledger.Result, error)
	UserBookings(ctx context.Context, userID string) ([]model.BookingDetail, error)
	EventBookings(ctx context.Context, eventID uint64) ([]model.BookingDetail, error)
}

// BookingHandler exposes credit bookings, pack code redemption and
// cancellation.
type BookingHandler struct {
	Ledger Ledger
	Log    *zap.Logger
}

func NewBookingHandler(l Ledger, log *zap.Logger) *BookingHandler {
	return &BookingHandler{Ledger: l, Log: log}
}

// guestReq is the contact form shown to anonymous buyers.
type guestReq struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,max=40"`
}

func (g *guestReq) normalize() {
	if g == nil {
		return
	}
	g.FirstName = strings.TrimSpace(g.FirstName)
	g.LastName = strings.TrimSpace(g.LastName)
	g.Email = strings.ToLower(strings.TrimSpace(g.Email))
	g.Phone = strings.TrimSpace(g.Phone)
}

func (g *guestReq) info() *model.GuestInfo {
	if g == nil {
		return nil
	}
	return &model.GuestInfo{FirstName: g.FirstName, LastName: g.LastName, Email: g.Email, Phone: g.Phone}
}

type creditsReq struct {
	CoursePath    string   `json:"coursePath" validate:"required"`
	SelectedDates []uint64 `json:"selectedDates" validate:"dive,gt=0"`
	CurrentLang   string   `json:"currentLang" validate:"omitempty,oneof=en de"`
}

type redeemReq struct {
	CoursePath    string    `json:"coursePath" validate:"required"`
	SelectedDates []uint64  `json:"selectedDates" validate:"dive,gt=0"`
	PackCode      string    `json:"packCode" validate:"required,max=64"`
	GuestInfo     *guestReq `json:"guestInfo"`
	CurrentLang   string    `json:"currentLang" validate:"omitempty,oneof=en de"`
}

func (r *redeemReq) normalize() { r.GuestInfo.normalize() }

type bookingResp struct {
	ID         uint64    `json:"id"`
	EventID    uint64    `json:"eventId"`
	CoursePath string    `json:"coursePath"`
	Origin     string    `json:"origin"`
	Date       string    `json:"date"`
	TimeLabel  string    `json:"timeLabel"`
	Title      titlePair `json:"title"`
	UserID     string    `json:"userId,omitempty"`
	UserEmail  string    `json:"userEmail,omitempty"`
	UserName   string    `json:"userName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type titlePair struct {
	EN string `json:"en"`
	DE string `json:"de"`
}

func toBookingResp(d model.BookingDetail, withOwner bool) bookingResp {
	r := bookingResp{
		ID: d.ID, EventID: d.EventID, CoursePath: d.CoursePath, Origin: d.Origin,
		Date: d.EventDate.Format("2006-01-02"), TimeLabel: d.TimeLabel,
		Title: titlePair{EN: d.TitleEN, DE: d.TitleDE}, CreatedAt: d.CreatedAt,
	}
	if withOwner {
		r.UserID, r.UserEmail, r.UserName = d.UserID, d.UserEmail, d.UserName
	}
	return r
}

func lang(s string) string {
	if s == "de" {
		return "de"
	}
	return "en"
}

func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// BookWithCredits spends the caller's credits on the selected dates.
func (h *BookingHandler) BookWithCredits(c echo.Context) error {
	var req creditsReq
	if msg := bindValid(c, &req); msg != "" {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, err := h.Ledger.BookWithCredits(ctx, ledger.CreditBooking{
		UserID:     middleware.UserID(c),
		CoursePath: req.CoursePath,
		EventIDs:   req.SelectedDates,
		Lang:       lang(req.CurrentLang),
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Redeem exchanges a free pack code.  Signed-in users redeem for themselves;
// anonymous callers must supply guest contact details.
func (h *BookingHandler) Redeem(c echo.Context) error {
	var req redeemReq
	if msg := bindValid(c, &req); msg != "" {
		return badRequest(c, msg)
	}
	uid := middleware.UserID(c)
	if uid == "" && req.GuestInfo == nil {
		return fail(c, h.Log, checkout.ErrGuestRequired)
	}
	in := ledger.CodeRedemption{
		UserID:     uid,
		Code:       req.PackCode,
		CoursePath: req.CoursePath,
		EventIDs:   req.SelectedDates,
		Lang:       lang(req.CurrentLang),
	}
	if uid == "" {
		in.Guest = req.GuestInfo.info()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Ledger.RedeemPackCode(ctx, in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"remainingCredits": res.Balance})
}

// Cancel deletes a booking and refunds one credit.  Owners are bound by the
// lead time; admins may cancel any booking at any time.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, err := h.Ledger.CancelBooking(ctx, ledger.Cancellation{
		BookingID: id,
		UserID:    middleware.UserID(c),
		IsAdmin:   middleware.IsAdmin(c),
		Lang:      lang(c.QueryParam("lang")),
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List returns the caller's bookings.
func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Ledger.UserBookings(ctx, middleware.UserID(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]bookingResp, 0, len(rows))
	for _, d := range rows {
		out = append(out, toBookingResp(d, false))
	}
	return c.JSON(http.StatusOK, out)
}

// EventBookings lists who booked an occurrence (admin).
func (h *BookingHandler) EventBookings(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Ledger.EventBookings(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]bookingResp, 0, len(rows))
	for _, d := range rows {
		out = append(out, toBookingResp(d, true))
	}
	return c.JSON(http.StatusOK, out)
}
