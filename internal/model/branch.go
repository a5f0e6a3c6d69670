package model

import "time"

// Branch represents a bank branch as stored in the `branches` table.
// Branches are read-only for the booking engine; they are created by
// back-office tooling (seed SQL) and carry a weekly opening-hours
// schedule in the `branch_hours` table.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – unique branch name (e.g. "Novi Beograd").
//  Address   – street address shown to customers.
//  Hours     – weekly schedule; a weekday with no entry is closed.
//  CreatedAt – timestamp when the branch was created.
//  UpdatedAt – timestamp of last update.
type Branch struct {
	ID        uint64         // branches.id
	Name      string         // branches.name
	Address   string         // branches.address
	Hours     []BranchHours  // branch_hours rows for this branch
	CreatedAt time.Time      // branches.created_at
	UpdatedAt time.Time      // branches.updated_at
}

// BranchHours is one row of the `branch_hours` table: the opening
// window and slot granularity of a branch for a single weekday.
// Open and Close are wall-clock times in "HH:MM" form, interpreted in
// UTC like every other timestamp in the system.  SlotMinutes is the
// booking granularity (e.g. 30).
type BranchHours struct {
	BranchID    uint64       // branch_hours.branch_id
	Weekday     time.Weekday // branch_hours.weekday (0 = Sunday)
	Open        string       // branch_hours.open_time, "HH:MM"
	Close       string       // branch_hours.close_time, "HH:MM"
	SlotMinutes int          // branch_hours.slot_minutes
}

// HoursFor returns the opening hours for the given weekday and whether
// the branch is open that day at all.
func (b Branch) HoursFor(day time.Weekday) (BranchHours, bool) {
	for _, h := range b.Hours {
		if h.Weekday == day {
			return h, true
		}
	}
	return BranchHours{}, false
}
