package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/novabanka/branch-appointments/internal/booking"
	"github.com/novabanka/branch-appointments/internal/queue"
	"github.com/novabanka/branch-appointments/internal/repository"
	queue_publisher "github.com/novabanka/branch-appointments/internal/service"
)

// CustomerHandler serves the customer-facing appointment endpoints:
// booking a slot, listing own appointments and cancelling.  Role
// enforcement happens twice: the CUSTOMER role middleware guards the
// routes and the engine re-checks the actor on every call.
type CustomerHandler struct {
	Engine   *booking.Engine
	Branches *repository.BranchRepo
}

func NewCustomerHandler(e *booking.Engine, b *repository.BranchRepo) *CustomerHandler {
	return &CustomerHandler{Engine: e, Branches: b}
}

type bookReq struct {
	BranchID  uint64 `json:"branch_id"`
	StartTime string `json:"start_time"` // RFC3339
}

// Book handles POST /v1/appointments.  The engine validates the slot
// and commits; a lost race for the slot surfaces as 409 so the client
// can refetch availability and let the user pick again.
func (h *CustomerHandler) Book(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.BranchID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "branch_id is required"})
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be RFC3339"})
	}

	appt, err := h.Engine.Book(c.Request().Context(), actor, req.BranchID, start)
	if err != nil {
		return bookingError(c, err)
	}

	// Event publishing is fire-and-forget; the booking already
	// committed and must not fail because the broker is down.
	go func() {
		branchName := ""
		if b, err := h.Branches.GetBranch(context.Background(), appt.BranchID); err == nil {
			branchName = b.Name
		}
		_ = queue_publisher.PublishAppointmentBooked(context.Background(), queue.AppointmentBookedEvent{
			AppointmentID: appt.ID,
			UserID:        appt.UserID,
			BranchID:      appt.BranchID,
			BranchName:    branchName,
			StartTime:     appt.StartTime.UTC().Format(time.RFC3339),
			BookedAt:      time.Now().UTC().Format(time.RFC3339),
		})
	}()

	return c.JSON(http.StatusCreated, appt)
}

// ListMine handles GET /v1/my-appointments.
func (h *CustomerHandler) ListMine(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Engine.ListForCustomer(c.Request().Context(), actor)
	if err != nil {
		return bookingError(c, err)
	}
	if items == nil {
		items = []booking.CustomerAppointment{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Cancel handles DELETE /v1/appointments/:id.  Cancelling an
// already-cancelled appointment succeeds so retries are safe;
// completed appointments cannot be cancelled and yield 409.
func (h *CustomerHandler) Cancel(c echo.Context) error {
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

// publishCancelled emits the cancellation event with whatever actor
// context is available.  Shared by the customer and employee handlers.
func publishCancelled(actor booking.Actor, appointmentID uint64) {
	_ = queue_publisher.PublishAppointmentCancelled(context.Background(), queue.AppointmentCancelledEvent{
		AppointmentID: appointmentID,
		UserID:        actor.UserID,
		BranchID:      actor.BranchID,
		CancelledBy:   actor.Role,
		CancelledAt:   time.Now().UTC().Format(time.RFC3339),
	})
}
