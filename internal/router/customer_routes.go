package router

import (
	"github.com/labstack/echo/v4"

	"github.com/novabanka/branch-appointments/internal/handler"
	"github.com/novabanka/branch-appointments/internal/middleware"
	"github.com/novabanka/branch-appointments/internal/model"
)

// RegisterCustomer registers the customer endpoints under /v1.  All
// routes require a valid JWT with the CUSTOMER role: booking a slot,
// listing own appointments, cancelling, and the chat channel.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, chat *handler.ChatHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer),
	)
	g.POST("/appointments", h.Book)
	g.GET("/my-appointments", h.ListMine)
	g.DELETE("/appointments/:id", h.Cancel)

	g.POST("/chat", chat.Chat)
	g.GET("/chat/history", chat.History)
}
