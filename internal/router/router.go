package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework for routing

	"github.com/antiapp/cafe-focus-rewards/internal/handler"    // handlers implementing the endpoints
	"github.com/antiapp/cafe-focus-rewards/internal/middleware" // JWT auth and role enforcement
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance.  Currently it exposes only a health
// check, used by load balancers to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints.  Unauthenticated
// operations (register, login, refresh, logout) live under /v1/auth;
// the profile endpoints require a valid access token and accept both
// roles.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token: the presented token is
	// revoked and a new pair is issued.
	g.POST("/refresh", a.Refresh)
	// Logout takes a refresh token in the body and revokes it; no JWT
	// is required, so a client with an expired access token can still
	// terminate its session.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("CUSTOMER", "MERCHANT"))
	auth.GET("/me", a.Me)
	// Wallet linking enables the on-chain reward mirror for the
	// account; an empty address unlinks.
	auth.PUT("/me/wallet", a.UpdateWallet)
	// Revoke every refresh token the user holds (all devices).
	auth.POST("/logout-all", a.LogoutAll)
}

// RegisterPublic registers the unauthenticated browse endpoints: the
// café directory and the event catalog.  The optional cache
// middleware (Redis response cache) is applied to these routes only;
// authenticated and settlement endpoints are never cached.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	if cache != nil {
		g.Use(cache)
	}
	// Café directory with optional ?q= search and ?amenities= filter.
	g.GET("/cafes", p.GetPublicCafes)
	g.GET("/cafes/:id", p.GetPublicCafe)
	// Event catalog; registration itself is customer-scoped.
	g.GET("/events", p.GetPublicEvents)
	g.GET("/events/:id", p.GetPublicEvent)
}
