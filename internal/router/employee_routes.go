package router

import (
	"github.com/labstack/echo/v4"

	"github.com/novabanka/branch-appointments/internal/handler"
	"github.com/novabanka/branch-appointments/internal/middleware"
	"github.com/novabanka/branch-appointments/internal/model"
)

// RegisterEmployee registers the branch-staff endpoints under
// /v1/employee.  All routes require the EMPLOYEE role; the branch
// scope comes from the token's branch_id claim, never from the URL.
func RegisterEmployee(e *echo.Echo, h *handler.EmployeeHandler, jwtSecret string) {
	g := e.Group(
		"/v1/employee",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleEmployee),
	)
	g.GET("/appointments", h.List)
	g.DELETE("/appointments/:id", h.Cancel)
	g.POST("/appointments/:id/complete", h.Complete)
}
