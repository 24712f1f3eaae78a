package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
)

type (
	ProfileStore interface {
		GetByID(ctx context.Context, id string) (*model.Profile, error)
		Update(ctx context.Context, id, firstName, lastName string, phone *string) (*model.Profile, error)
		UpdateEmail(ctx context.Context, id, email string) error
	}
	BalanceReader interface {
		Balances(ctx context.Context, userID string) (map[string]int, error)
	}
)

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	Profiles ProfileStore
	Credits  BalanceReader
	Log      *zap.Logger
}

func NewProfileHandler(p ProfileStore, b BalanceReader, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{Profiles: p, Credits: b, Log: log}
}

type profileResp struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Phone     *string        `json:"phone,omitempty"`
	Role      string         `json:"role"`
	Credits   map[string]int `json:"credits"`
}

type updateProfileReq struct {
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=40"`
}

type updateEmailReq struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *ProfileHandler) respond(ctx context.Context, c echo.Context, p *model.Profile) error {
	credits, err := h.Credits.Balances(ctx, p.ID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if credits == nil {
		credits = map[string]int{}
	}
	return c.JSON(http.StatusOK, profileResp{
		ID: p.ID, Email: p.Email, FirstName: p.FirstName, LastName: p.LastName,
		Phone: p.Phone, Role: p.Role, Credits: credits,
	})
}

// Me returns the profile with one credit balance per course.
func (h *ProfileHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Profiles.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return h.respond(ctx, c, p)
}

// Update edits name and phone.
func (h *ProfileHandler) Update(c echo.Context) error {
	var req updateProfileReq
	if msg := bindValid(c, &req); msg != "" {
		return badRequest(c, msg)
	}
	if req.Phone != nil && strings.TrimSpace(*req.Phone) == "" {
		req.Phone = nil
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Profiles.Update(ctx, middleware.UserID(c),
		strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), req.Phone)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return h.respond(ctx, c, p)
}

// UpdateEmail changes the login email.  The route sits behind
// RequireRecentLogin.
func (h *ProfileHandler) UpdateEmail(c echo.Context) error {
	var req updateEmailReq
	if msg := bindValid(c, &req); msg != "" {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid := middleware.UserID(c)
	if err := h.Profiles.UpdateEmail(ctx, uid, req.Email); err != nil {
		return fail(c, h.Log, err)
	}
	p, err := h.Profiles.GetByID(ctx, uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return h.respond(ctx, c, p)
}
