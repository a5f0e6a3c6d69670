package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/novabanka/branch-appointments/internal/booking"
	"github.com/novabanka/branch-appointments/internal/model"
	"github.com/novabanka/branch-appointments/internal/repository"
)

// BranchHandler serves the public branch directory and the
// availability view.  No authentication is required: customers browse
// branches and free slots before deciding to log in and book.
type BranchHandler struct {
	Branches *repository.BranchRepo
	Engine   *booking.Engine
}

func NewBranchHandler(b *repository.BranchRepo, e *booking.Engine) *BranchHandler {
	return &BranchHandler{Branches: b, Engine: e}
}

// publicBranch exposes only directory-safe branch fields.
type publicBranch struct {
	ID      uint64        `json:"id"`
	Name    string        `json:"name"`
	Address string        `json:"address"`
	Hours   []publicHours `json:"hours"`
}

type publicHours struct {
	Weekday     int    `json:"weekday"` // 0=Sunday .. 6=Saturday
	Open        string `json:"open"`
	Close       string `json:"close"`
	SlotMinutes int    `json:"slot_minutes"`
}

func toPublicBranch(b model.Branch) publicBranch {
	out := publicBranch{ID: b.ID, Name: b.Name, Address: b.Address, Hours: make([]publicHours, 0, len(b.Hours))}
	for _, h := range b.Hours {
		out.Hours = append(out.Hours, publicHours{
			Weekday:     int(h.Weekday),
			Open:        h.Open,
			Close:       h.Close,
			SlotMinutes: h.SlotMinutes,
		})
	}
	return out
}

// ListBranches handles GET /v1/branches.
func (h *BranchHandler) ListBranches(c echo.Context) error {
	branches, err := h.Branches.ListBranches(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items := make([]publicBranch, 0, len(branches))
	for _, b := range branches {
		items = append(items, toPublicBranch(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetBranch handles GET /v1/branches/:id.
func (h *BranchHandler) GetBranch(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid branch id"})
	}
	b, err := h.Branches.GetBranch(c.Request().Context(), id)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, toPublicBranch(b))
}

// Availability handles GET /v1/branches/:id/slots?date=YYYY-MM-DD.
// Missing date defaults to today (UTC).  The returned slots are
// advisory; booking re-validates at commit time.
func (h *BranchHandler) Availability(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid branch id"})
	}

	day := time.Now().UTC()
	if s := c.QueryParam("date"); s != "" {
		day, err = time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
	}

	slots, err := h.Engine.Availability(c.Request().Context(), id, day)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"branch_id": id,
		"date":      day.Format("2006-01-02"),
		"slots":     slots,
	})
}
