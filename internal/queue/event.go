// Package queue defines the event payloads exchanged over the message
// broker and the background consumer that records them.
package queue

// AppointmentBookedEvent is published after a booking commits.  It
// carries enough context for downstream consumers (notifications,
// analytics, the audit log) without querying the primary database.
type AppointmentBookedEvent struct {
	AppointmentID uint64 `json:"appointment_id"`
	UserID        uint64 `json:"user_id"`
	BranchID      uint64 `json:"branch_id"`
	BranchName    string `json:"branch_name"`
	StartTime     string `json:"start_time"` // RFC3339, UTC
	BookedAt      string `json:"booked_at"`  // RFC3339, UTC
}

// AppointmentCancelledEvent is published after a cancellation commits.
// CancelledBy records the role that initiated it (customer self-serve
// or branch employee).
type AppointmentCancelledEvent struct {
	AppointmentID uint64 `json:"appointment_id"`
	UserID        uint64 `json:"user_id"`
	BranchID      uint64 `json:"branch_id"`
	StartTime     string `json:"start_time"`
	CancelledBy   string `json:"cancelled_by"`
	CancelledAt   string `json:"cancelled_at"`
}
