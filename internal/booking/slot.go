package booking

import (
	"time"

	"github.com/novabanka/branch-appointments/internal/model"
)

// Slot is a fixed-duration bookable interval at a branch.  Slots are
// derived values: they are generated from the branch schedule on every
// request and never stored.
type Slot struct {
	BranchID uint64    `json:"branch_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// GenerateSlots derives the ordered slot catalog of a branch for one
// calendar day.  It is a pure calendar function: past days still
// produce slots, filtering against "now" belongs to the availability
// view.  A weekday without opening hours yields no slots.  Slots are
// walked from open to close in granularity steps and a trailing
// partial slot that would overrun closing time is never emitted.
func GenerateSlots(branch model.Branch, day time.Time) []Slot {
	hours, open := branch.HoursFor(day.UTC().Weekday())
	if !open || hours.SlotMinutes <= 0 {
		return nil
	}

	start, err := clockOn(day, hours.Open)
	if err != nil {
		return nil
	}
	end, err := clockOn(day, hours.Close)
	if err != nil || !end.After(start) {
		return nil
	}

	step := time.Duration(hours.SlotMinutes) * time.Minute
	var slots []Slot
	for cur := start; !cur.Add(step).After(end); cur = cur.Add(step) {
		slots = append(slots, Slot{
			BranchID: branch.ID,
			Start:    cur,
			End:      cur.Add(step),
		})
	}
	return slots
}

// slotAt reports whether start is a valid slot start of the given
// day's catalog.
func slotAt(branch model.Branch, start time.Time) bool {
	for _, s := range GenerateSlots(branch, start) {
		if s.Start.Equal(start) {
			return true
		}
	}
	return false
}

// clockOn places a "HH:MM" (or "HH:MM:SS") wall-clock string onto the
// date of day, in UTC.
func clockOn(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		t, err = time.Parse("15:04:05", clock)
		if err != nil {
			return time.Time{}, err
		}
	}
	d := day.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// dayBounds returns the [midnight, next midnight) UTC window containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	d := t.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
