package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/checkout"
	"github.com/iliyamo/studio-booking/internal/ledger"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
)

const maxWebhookBytes = 64 << 10

// Checkout is the payment flow behind the checkout routes.
type Checkout interface {
	Create(ctx context.Context, req checkout.Request) (*checkout.Created, error)
	Confirm(ctx context.Context, sessionID string) (ledger.Fulfillment, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	CheckCode(ctx context.Context, code, coursePath string) (*model.PromoCode, error)
}

// CheckoutHandler opens hosted payments and applies them once verified.
type CheckoutHandler struct {
	Checkout Checkout
	Log      *zap.Logger
}

func NewCheckoutHandler(co Checkout, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{Checkout: co, Log: log}
}

type checkoutReq struct {
	Mode          string    `json:"mode" validate:"required,oneof=pack individual"`
	PackPrice     *int64    `json:"packPrice" validate:"omitempty,gte=0"`
	TotalPrice    *int64    `json:"totalPrice" validate:"omitempty,gte=0"`
	PackSize      int       `json:"packSize" validate:"gte=0"`
	CoursePath    string    `json:"coursePath" validate:"required"`
	SelectedDates []uint64  `json:"selectedDates" validate:"dive,gt=0"`
	PromoCode     string    `json:"promoCode" validate:"max=64"`
	GuestInfo     *guestReq `json:"guestInfo"`
	CurrentLang   string    `json:"currentLang" validate:"omitempty,oneof=en de"`
	SuccessURL    string    `json:"successUrl" validate:"required,url"`
	CancelURL     string    `json:"cancelUrl" validate:"required,url"`
}

func (r *checkoutReq) normalize() { r.GuestInfo.normalize() }

type confirmReq struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type promoCheckReq struct {
	Code       string `json:"code" validate:"required,max=64"`
	CoursePath string `json:"coursePath" validate:"required"`
}

type fulfillmentResp struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Balance   int    `json:"balance"`
	Booked    int    `json:"booked"`
	Credited  int    `json:"credited"`
	Replayed  bool   `json:"replayed"`
}

// Create prices the request on the server and returns the hosted page URL.
func (h *CheckoutHandler) Create(c echo.Context) error {
	var req checkoutReq
	if msg := bindValid(c, &req); msg != "" {
		return badRequest(c, msg)
	}
	in := checkout.Request{
		UserID:     middleware.UserID(c),
		Mode:       req.Mode,
		PackPrice:  req.PackPrice,
		TotalPrice: req.TotalPrice,
		PackSize:   req.PackSize,
		CoursePath: req.CoursePath,
		EventIDs:   req.SelectedDates,
		PromoCode:  req.PromoCode,
		Lang:       lang(req.CurrentLang),
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	}
	if in.UserID == "" {
		in.Guest = req.GuestInfo.info()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.Checkout.Create(ctx, in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"url": out.URL, "reference": out.Reference, "amount": out.Amount})
}

// Confirm is called by the success page with the processor's session id.
// Nothing is granted unless the processor reports the session as paid.
func (h *CheckoutHandler) Confirm(c echo.Context) error {
	var req confirmReq
	if msg := bindValid(c, &req); msg != "" {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	f, err := h.Checkout.Confirm(ctx, req.SessionID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, fulfillmentResp{
		Reference: f.Reference, Status: f.Status, Balance: f.Balance,
		Booked: len(f.Bookings), Credited: f.Credited, Replayed: f.Replayed,
	})
}

// Webhook receives processor notifications.  Any non-2xx makes the
// processor retry, so only a bad signature is answered with 400.
func (h *CheckoutHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBytes))
	if err != nil {
		return badRequest(c, "unreadable body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Checkout.HandleWebhook(ctx, payload, c.Request().Header.Get("Stripe-Signature")); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

// CheckPromo tells the booking page whether a code applies to a course.
func (h *CheckoutHandler) CheckPromo(c echo.Context) error {
	var req promoCheckReq
	if msg := bindValid(c, &req); msg != "" {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Checkout.CheckCode(ctx, req.Code, req.CoursePath)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"code": p.Code, "discountType": p.DiscountType, "value": p.DiscountValue})
}
