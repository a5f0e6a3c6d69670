package booking

import (
	"context"
	"time"

	"github.com/novabanka/branch-appointments/internal/model"
)

// Actor is the authenticated principal performing an operation, as
// resolved by the auth middleware from the access token.  BranchID is
// the branch scope of employees and zero for customers.  The engine
// trusts these values and only enforces business-level authorization.
type Actor struct {
	UserID   uint64
	Role     string
	BranchID uint64
}

// Engine converts (branch, date) queries into availability views and
// (branch, slot) selections into durable, conflict-free appointments.
// It holds no appointment state between requests; all truth lives in
// the store, and the store's uniqueness guarantee serializes racing
// commits for the same slot.
type Engine struct {
	branches BranchDirectory
	store    AppointmentStore
	now      func() time.Time
}

// NewEngine wires the engine to its collaborators.
func NewEngine(branches BranchDirectory, store AppointmentStore) *Engine {
	return &Engine{
		branches: branches,
		store:    store,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Availability returns the free future slots of a branch for one
// calendar day, chronologically ascending: the generated catalog minus
// BOOKED starts minus anything at or before now.  The result is
// advisory; Book re-validates at commit time.
func (e *Engine) Availability(ctx context.Context, branchID uint64, day time.Time) ([]Slot, error) {
	branch, err := e.branches.GetBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	catalog := GenerateSlots(branch, day)
	if len(catalog) == 0 {
		return []Slot{}, nil
	}

	from, to := dayBounds(day)
	booked, err := e.store.FindBooked(ctx, branchID, from, to)
	if err != nil {
		return nil, err
	}
	taken := make(map[int64]struct{}, len(booked))
	for _, a := range booked {
		taken[a.StartTime.UTC().Unix()] = struct{}{}
	}

	now := e.now()
	free := make([]Slot, 0, len(catalog))
	for _, s := range catalog {
		if !s.Start.After(now) {
			continue
		}
		if _, ok := taken[s.Start.Unix()]; ok {
			continue
		}
		free = append(free, s)
	}
	return free, nil
}

// Book validates a slot selection and commits it as a BOOKED
// appointment.  Validation is fail-fast and needs no store access; the
// commit is a single insert whose unique index resolves concurrent
// requests for the same slot, so exactly one of N racers succeeds and
// the rest get ErrSlotTaken.  Nothing is written on failure.
func (e *Engine) Book(ctx context.Context, actor Actor, branchID uint64, start time.Time) (model.Appointment, error) {
	if actor.Role != model.RoleCustomer || actor.UserID == 0 {
		return model.Appointment{}, ErrUnauthorized
	}

	branch, err := e.branches.GetBranch(ctx, branchID)
	if err != nil {
		return model.Appointment{}, err
	}

	start = start.UTC().Truncate(time.Minute)
	if !start.After(e.now()) {
		return model.Appointment{}, validationError("start_time must be in the future")
	}
	if !slotAt(branch, start) {
		return model.Appointment{}, validationError("start_time is not a bookable slot for this branch")
	}

	return e.store.InsertBooked(ctx, branchID, actor.UserID, start)
}

// Cancel transitions a BOOKED appointment to CANCELLED.  Customers may
// cancel their own appointments; employees may cancel any appointment
// of their branch.  Cancelling an already-CANCELLED appointment is a
// no-op success so clients can retry safely; cancelling a COMPLETED
// one fails with ErrStateConflict.
func (e *Engine) Cancel(ctx context.Context, actor Actor, appointmentID uint64) error {
	appt, err := e.authorizedAppointment(ctx, actor, appointmentID)
	if err != nil {
		return err
	}
	if appt.Status == model.StatusCancelled {
		return nil
	}
	return e.store.UpdateStatus(ctx, appointmentID, model.StatusCancelled, model.StatusBooked)
}

// Complete transitions a BOOKED appointment to COMPLETED once its
// start time has passed.  Only employees of the appointment's branch
// may complete it.
func (e *Engine) Complete(ctx context.Context, actor Actor, appointmentID uint64) error {
	if actor.Role != model.RoleEmployee {
		return ErrUnauthorized
	}
	appt, err := e.authorizedAppointment(ctx, actor, appointmentID)
	if err != nil {
		return err
	}
	if appt.StartTime.After(e.now()) {
		return validationError("appointment has not started yet")
	}
	return e.store.UpdateStatus(ctx, appointmentID, model.StatusCompleted, model.StatusBooked)
}

// ListForBranch returns the appointments of a branch for employees.
// The actor must be an employee scoped to that exact branch.
func (e *Engine) ListForBranch(ctx context.Context, actor Actor, branchID uint64, f Filter) ([]BranchAppointment, error) {
	if actor.Role != model.RoleEmployee || actor.BranchID == 0 || actor.BranchID != branchID {
		return nil, ErrUnauthorized
	}
	return e.store.ListForBranch(ctx, branchID, f)
}

// ListForCustomer returns the actor's own appointments.
func (e *Engine) ListForCustomer(ctx context.Context, actor Actor) ([]CustomerAppointment, error) {
	if actor.Role != model.RoleCustomer || actor.UserID == 0 {
		return nil, ErrUnauthorized
	}
	return e.store.ListForUser(ctx, actor.UserID)
}

// authorizedAppointment loads an appointment and checks that the actor
// may act on it: the owning customer, or an employee of its branch.
func (e *Engine) authorizedAppointment(ctx context.Context, actor Actor, id uint64) (model.Appointment, error) {
	appt, err := e.store.GetByID(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	switch actor.Role {
	case model.RoleCustomer:
		if appt.UserID != actor.UserID {
			return model.Appointment{}, ErrUnauthorized
		}
	case model.RoleEmployee:
		if actor.BranchID == 0 || appt.BranchID != actor.BranchID {
			return model.Appointment{}, ErrUnauthorized
		}
	default:
		return model.Appointment{}, ErrUnauthorized
	}
	return appt, nil
}
