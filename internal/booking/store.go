package booking

import (
	"context"
	"time"

	"github.com/novabanka/branch-appointments/internal/model"
)

// BranchDirectory supplies branch identity and opening hours.  It is a
// read-only dependency of the engine; branch management happens in
// back-office tooling.
type BranchDirectory interface {
	// GetBranch returns the branch with its weekly hours or
	// ErrBranchNotFound.
	GetBranch(ctx context.Context, id uint64) (model.Branch, error)
}

// Filter narrows branch appointment listings.  A nil Date means any
// day; an empty Status means any status.
type Filter struct {
	Date   *time.Time
	Status string
}

// BranchAppointment is an appointment joined with the booking
// customer's email, as shown to branch employees.
type BranchAppointment struct {
	model.Appointment
	UserEmail string `json:"user_email"`
}

// CustomerAppointment is an appointment joined with its branch name,
// as shown to the booking customer.
type CustomerAppointment struct {
	model.Appointment
	BranchName string `json:"branch_name"`
}

// AppointmentStore is the engine's sole persistence dependency.  The
// implementation must enforce the core invariant itself: InsertBooked
// may create at most one BOOKED appointment per (branch, start) even
// under concurrent calls, reporting the loser with ErrSlotTaken.  The
// MySQL implementation does this with a unique index so no explicit
// lock is held anywhere.
type AppointmentStore interface {
	// InsertBooked atomically creates a BOOKED appointment or fails
	// with ErrSlotTaken when the slot is already consumed.
	InsertBooked(ctx context.Context, branchID, userID uint64, start time.Time) (model.Appointment, error)

	// FindBooked returns the BOOKED appointments of a branch whose
	// start lies in [from, to), ordered by start ascending.
	FindBooked(ctx context.Context, branchID uint64, from, to time.Time) ([]model.Appointment, error)

	// GetByID returns an appointment or ErrAppointmentNotFound.
	GetByID(ctx context.Context, id uint64) (model.Appointment, error)

	// UpdateStatus transitions an appointment from expectedCurrent to
	// newStatus as a single compare-and-set.  It returns
	// ErrAppointmentNotFound when the row does not exist and
	// ErrStateConflict when it exists in a different state.
	UpdateStatus(ctx context.Context, id uint64, newStatus, expectedCurrent string) error

	// ListForBranch returns a branch's appointments (any status unless
	// filtered), ordered by start ascending, with customer emails.
	ListForBranch(ctx context.Context, branchID uint64, f Filter) ([]BranchAppointment, error)

	// ListForUser returns a customer's own appointments ordered by
	// start ascending, with branch names.
	ListForUser(ctx context.Context, userID uint64) ([]CustomerAppointment, error)
}
