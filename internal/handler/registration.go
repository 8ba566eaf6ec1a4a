package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/antiapp/cafe-focus-rewards/internal/ledger"
	"github.com/antiapp/cafe-focus-rewards/internal/model"
	"github.com/antiapp/cafe-focus-rewards/internal/repository"
)

// RegistrationHandler serves event registrations paid in coins and
// the customer's balance view.
type RegistrationHandler struct {
	Ledger      *ledger.Service
	EventRepo   *repository.EventRepo
	RegRepo     *repository.RegistrationRepo
	BalanceRepo *repository.BalanceRepo
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc *ledger.Service, eventRepo *repository.EventRepo, regRepo *repository.RegistrationRepo, balanceRepo *repository.BalanceRepo) *RegistrationHandler {
	if svc == nil || eventRepo == nil || regRepo == nil || balanceRepo == nil {
		panic("nil dependency passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{Ledger: svc, EventRepo: eventRepo, RegRepo: regRepo, BalanceRepo: balanceRepo}
}

type registrationView struct {
	ID          uint64  `json:"id"`
	EventID     uint64  `json:"event_id"`
	PriceCoins  float64 `json:"price_coins"`
	Reference   string  `json:"reference"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	CancelledAt *string `json:"cancelled_at,omitempty"`
}

func toRegistrationView(r *model.Registration) registrationView {
	v := registrationView{
		ID:         r.ID,
		EventID:    r.EventID,
		PriceCoins: r.PriceCoins,
		Reference:  r.Reference,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.CancelledAt != nil {
		iso := r.CancelledAt.UTC().Format(time.RFC3339)
		v.CancelledAt = &iso
	}
	return v
}

// Register handles POST /v1/events/:id/register.  The event's current
// price is captured on the registration row, so a later price change
// refunds what was actually paid, not the new price.
func (h *RegistrationHandler) Register(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx := c.Request().Context()
	ev, err := h.EventRepo.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	reg, err := h.Ledger.Register(ctx, userID, ev.ID, ev.PriceCoins)
	if err != nil {
		switch err {
		case ledger.ErrAlreadyRegistered:
			return c.JSON(http.StatusConflict, echo.Map{"error": "already registered"})
		case ledger.ErrInsufficientBalance:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient balance"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"registration": toRegistrationView(reg),
		"event_title":  ev.Title,
	})
}

// Cancel handles POST /v1/registrations/:id/cancel.  Only the owner
// may cancel; cancelling twice returns the stored row without a
// second refund.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}

	ctx := c.Request().Context()
	reg, err := h.Ledger.Registration(ctx, regID)
	if err != nil {
		if err == ledger.ErrRegistrationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if reg.UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your registration"})
	}

	cancelled, err := h.Ledger.Cancel(ctx, regID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"registration": toRegistrationView(cancelled)})
}

// List handles GET /v1/registrations.  ?active=true narrows the view
// to registrations that still hold a spot.
func (h *RegistrationHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	activeOnly := c.QueryParam("active") == "true"
	regs, err := h.RegRepo.ListByUser(c.Request().Context(), userID, activeOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"registrations": regs})
}

// Balance handles GET /v1/balance.
func (h *RegistrationHandler) Balance(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bal, err := h.BalanceRepo.GetByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"balance":    bal.Amount,
		"updated_at": bal.UpdatedAt.UTC().Format(time.RFC3339),
	})
}
