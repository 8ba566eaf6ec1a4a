package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/antiapp/cafe-focus-rewards/internal/handler"    // merchant handlers
	"github.com/antiapp/cafe-focus-rewards/internal/middleware" // JWT + role middlewares
)

// RegisterMerchant registers MERCHANT-scoped endpoints under
// /v1/merchant.  All routes require a valid JWT and the MERCHANT
// role.
func RegisterMerchant(e *echo.Echo, m *handler.MerchantHandler, jwtSecret string) {
	g := e.Group(
		"/v1/merchant",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("MERCHANT"),
	)

	// ---- Café listings ----
	g.POST("/cafes", m.CreateCafe)
	g.GET("/cafes", m.ListMyCafes)
	g.PUT("/cafes/:id", m.UpdateCafe)  // full replacement
	g.PATCH("/cafes/:id", m.PatchCafe) // partial update

	// ---- Printable QR codes ----
	g.GET("/cafes/:id/qr", m.GetCafeQR)

	// ---- Settlement history ----
	g.GET("/sessions", m.ListSessions)
}
