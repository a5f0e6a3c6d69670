// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/novabanka/branch-appointments/internal/handler"
	"github.com/novabanka/branch-appointments/internal/middleware"
	"github.com/novabanka/branch-appointments/internal/model"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated branch directory and
// availability endpoints.  The cache middleware fronts only the
// directory: branch data changes rarely, availability must stay fresh.
func RegisterPublic(e *echo.Echo, b *handler.BranchHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/branches", b.ListBranches, cache)
	e.GET("/v1/branches/:id", b.GetBranch, cache)
	e.GET("/v1/branches/:id/slots", b.Availability)
}

// RegisterAuth registers the auth endpoints.  Register, login, refresh
// and logout live under /v1/auth without a session; /v1/me requires a
// valid access token of either role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleCustomer, model.RoleEmployee))
	auth.GET("/me", a.Me)

	// Logout also works top-level with just a refresh token in the
	// body, so sessions can be closed after the access token expired.
	e.POST("/v1/logout", a.Logout)
}
