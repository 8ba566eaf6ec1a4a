package router

import (
	"github.com/labstack/echo/v4"

	"github.com/antiapp/cafe-focus-rewards/internal/handler"
	"github.com/antiapp/cafe-focus-rewards/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.
// All routes require a valid JWT and the CUSTOMER role.  Customers
// check in and out of cafés by scanning QR codes, view their balance
// and history, and spend coins on event registrations.  The optional
// limiter (Redis token bucket) guards the settlement endpoints.
func RegisterCustomer(e *echo.Echo, s *handler.SessionHandler, r *handler.RegistrationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
	)
	if limiter != nil {
		g.Use(limiter)
	}

	// ---- Focus sessions ----
	g.POST("/sessions/check-in", s.CheckIn)
	g.POST("/sessions/check-out", s.CheckOut)
	g.GET("/sessions/current", s.Current)
	g.GET("/sessions", s.History)

	// ---- Balance and event registrations ----
	g.GET("/balance", r.Balance)
	g.POST("/events/:id/register", r.Register)
	g.GET("/registrations", r.List)
	g.POST("/registrations/:id/cancel", r.Cancel)
}
