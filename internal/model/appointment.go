package model

import "time"

// Appointment statuses.  An appointment is created as StatusBooked and
// only ever transitions to one of the two terminal states; rows are
// never deleted so cancelled history remains auditable.
const (
	StatusBooked    = "BOOKED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

// Appointment records a customer's reservation of one slot at a
// branch, mirroring the `appointments` table.
//
// The core consistency invariant lives in the schema: the unique index
// uq_branch_slot (branch_id, start_time, active) admits at most one row
// with active=1 — i.e. at most one BOOKED appointment — per branch and
// slot start.  `active` is 1 while status is BOOKED and NULL otherwise,
// which keeps terminal rows out of the index (MySQL unique indexes
// ignore NULLs).
//
// Fields:
//  ID        – primary key identifier, assigned on insert.
//  BranchID  – branch the slot belongs to.
//  UserID    – customer who booked the slot.
//  StartTime – slot start; always equals a generated slot start, UTC.
//  Status    – BOOKED, CANCELLED or COMPLETED.
//  CreatedAt – creation timestamp.
//  UpdatedAt – timestamp of last status change.
type Appointment struct {
	ID        uint64    // appointments.id
	BranchID  uint64    // appointments.branch_id
	UserID    uint64    // appointments.user_id
	StartTime time.Time // appointments.start_time (UTC)
	Status    string    // appointments.status
	CreatedAt time.Time // appointments.created_at
	UpdatedAt time.Time // appointments.updated_at
}
