package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/novabanka/branch-appointments/internal/booking"
	"github.com/novabanka/branch-appointments/internal/model"
)

// EmployeeHandler serves the branch-staff endpoints.  Every operation
// is scoped to the employee's own branch through the branch_id claim;
// the engine rejects cross-branch access.
type EmployeeHandler struct {
	Engine *booking.Engine
}

func NewEmployeeHandler(e *booking.Engine) *EmployeeHandler {
	return &EmployeeHandler{Engine: e}
}

// List handles GET /v1/employee/appointments?date=YYYY-MM-DD&status=S.
// Both filters are optional; the branch always comes from the token,
// never from the request.
func (h *EmployeeHandler) List(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var f booking.Filter
	if s := c.QueryParam("date"); s != "" {
		d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		f.Date = &d
	}
	if s := c.QueryParam("status"); s != "" {
		switch s {
		case model.StatusBooked, model.StatusCancelled, model.StatusCompleted:
			f.Status = s
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
		}
	}

	items, err := h.Engine.ListForBranch(c.Request().Context(), actor, actor.BranchID, f)
	if err != nil {
		return bookingError(c, err)
	}
	if items == nil {
		items = []booking.BranchAppointment{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Cancel handles DELETE /v1/employee/appointments/:id for the
// employee's branch.
func (h *EmployeeHandler) Cancel(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid appointment id"})
	}

	if err := h.Engine.Cancel(c.Request().Context(), actor, id); err != nil {
		return bookingError(c, err)
	}

	go publishCancelled(actor, id)
	return c.NoContent(http.StatusNoContent)
}

// Complete handles POST /v1/employee/appointments/:id/complete.  Only
// appointments whose start time has passed can be completed.
func (h *EmployeeHandler) Complete(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid appointment id"})
	}

	if err := h.Engine.Complete(c.Request().Context(), actor, id); err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": model.StatusCompleted})
}
