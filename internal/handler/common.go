// Package handler exposes the HTTP surface: auth, the public branch
// directory, availability, customer and employee appointment endpoints
// and the chat channel.  Handlers translate transport concerns into
// calls on the booking engine and repositories; business rules live
// below this layer.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/novabanka/branch-appointments/internal/booking"
)

// getActor rebuilds the booking.Actor from the claims the JWT
// middleware stored in the context.  Numeric claims arrive as float64
// (JSON) or occasionally as strings, so both are coerced.
func getActor(c echo.Context) (booking.Actor, error) {
	uid, ok := claimUint64(c.Get("user_id"))
	if !ok || uid == 0 {
		return booking.Actor{}, errors.New("no user in context")
	}
	role, _ := c.Get("role").(string)
	branchID, _ := claimUint64(c.Get("branch_id"))
	return booking.Actor{UserID: uid, Role: role, BranchID: branchID}, nil
}

// getUserID extracts just the authenticated user's ID.
func getUserID(c echo.Context) (uint64, error) {
	uid, ok := claimUint64(c.Get("user_id"))
	if !ok || uid == 0 {
		return 0, errors.New("no user in context")
	}
	return uid, nil
}

func claimUint64(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case uint64:
		return t, true
	case int64:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// bookingError maps the engine's error taxonomy onto HTTP statuses:
// validation -> 400, missing resources -> 404, authorization -> 403,
// slot and state conflicts -> 409, everything else -> 500.
func bookingError(c echo.Context, err error) error {
	switch {
	case booking.IsValidation(err):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrBranchNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
	case errors.Is(err, booking.ErrAppointmentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "appointment not found"})
	case errors.Is(err, booking.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrSlotTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot already booked"})
	case errors.Is(err, booking.ErrStateConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "appointment not in expected state"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
