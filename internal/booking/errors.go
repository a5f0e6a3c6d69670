// Package booking implements the slot reservation core: deriving
// bookable slots from branch opening hours, computing the availability
// view and committing conflict-free appointments.  The package defines
// the store contracts it depends on and the error taxonomy callers
// translate into HTTP responses.
package booking

import "errors"

// ErrSlotTaken is returned when a booking commit loses the race for a
// slot: another BOOKED appointment already occupies the same branch and
// start time.  Callers should refetch availability and let the user
// pick again.  Handlers translate this into HTTP 409.
var ErrSlotTaken = errors.New("slot already booked")

// ErrStateConflict is returned when a status transition finds the
// appointment in a different state than expected, e.g. completing an
// appointment that was cancelled in the meantime.  Distinct from
// ErrSlotTaken because the fix differs: there is nothing to re-pick.
var ErrStateConflict = errors.New("appointment not in expected state")

// ErrBranchNotFound is returned when the referenced branch does not
// exist in the directory.
var ErrBranchNotFound = errors.New("branch not found")

// ErrAppointmentNotFound is returned when an appointment id does not
// resolve to a stored row.
var ErrAppointmentNotFound = errors.New("appointment not found")

// ErrUnauthorized is returned when the actor's role or branch scope
// does not permit the operation, e.g. an employee booking on behalf of
// a customer or listing a foreign branch.  Handlers translate this
// into HTTP 403.
var ErrUnauthorized = errors.New("operation not permitted for this actor")

// ValidationError reports client-fixable input problems: a start time
// in the past, a start that is not a generated slot, a malformed date.
// It never indicates a race and retrying without changing the input
// will fail again.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
