package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/novabanka/branch-appointments/internal/booking"
	"github.com/novabanka/branch-appointments/internal/model"
)

// mysqlDupEntry is the MySQL error number for a unique key violation.
const mysqlDupEntry = 1062

// AppointmentRepo is the MySQL implementation of
// booking.AppointmentStore.  The no-double-booking invariant is not
// enforced in Go at all: the uq_branch_slot unique index on
// (branch_id, start_time, active) is the serialization point, so two
// requests racing on the same slot resolve inside the database and the
// loser surfaces here as a duplicate-key error.  `active` is 1 for
// BOOKED rows and NULL for terminal ones, which keeps cancelled
// history out of the index.
type AppointmentRepo struct {
	db *sql.DB
}

// NewAppointmentRepo returns an AppointmentRepo bound to the given
// database.
func NewAppointmentRepo(db *sql.DB) *AppointmentRepo { return &AppointmentRepo{db: db} }

// InsertBooked creates a BOOKED appointment and returns the stored row.
// A duplicate-key violation on the slot index is translated into
// booking.ErrSlotTaken; any other error is infrastructure and passes
// through untouched so callers never mistake an outage for a conflict.
func (r *AppointmentRepo) InsertBooked(ctx context.Context, branchID, userID uint64, start time.Time) (model.Appointment, error) {
	const q = `INSERT INTO appointments (branch_id, user_id, start_time, status, active)
	           VALUES (?, ?, ?, 'BOOKED', 1)`
	res, err := r.db.ExecContext(ctx, q, branchID, userID, start.UTC())
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDupEntry {
			return model.Appointment{}, booking.ErrSlotTaken
		}
		return model.Appointment{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Appointment{}, err
	}
	// Query back the full row to populate timestamps and defaults.
	return r.GetByID(ctx, uint64(id))
}

// FindBooked returns the BOOKED appointments of a branch with start in
// [from, to), ordered chronologically.
func (r *AppointmentRepo) FindBooked(ctx context.Context, branchID uint64, from, to time.Time) ([]model.Appointment, error) {
	const q = `SELECT id, branch_id, user_id, start_time, status, created_at, updated_at
	           FROM appointments
	           WHERE branch_id = ? AND status = 'BOOKED' AND start_time >= ? AND start_time < ?
	           ORDER BY start_time ASC`
	rows, err := r.db.QueryContext(ctx, q, branchID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// GetByID fetches a single appointment or booking.ErrAppointmentNotFound.
func (r *AppointmentRepo) GetByID(ctx context.Context, id uint64) (model.Appointment, error) {
	const q = `SELECT id, branch_id, user_id, start_time, status, created_at, updated_at
	           FROM appointments WHERE id = ?`
	var a model.Appointment
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&a.ID, &a.BranchID, &a.UserID, &a.StartTime, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Appointment{}, booking.ErrAppointmentNotFound
		}
		return model.Appointment{}, err
	}
	return a, nil
}

// UpdateStatus performs the compare-and-set transition expectedCurrent
// -> newStatus.  Clearing `active` releases the slot in the unique
// index, which is what makes a cancelled slot bookable again.  When no
// row is updated, a follow-up read distinguishes a missing appointment
// from one in the wrong state.
func (r *AppointmentRepo) UpdateStatus(ctx context.Context, id uint64, newStatus, expectedCurrent string) error {
	const q = `UPDATE appointments SET status = ?, active = NULL WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, newStatus, id, expectedCurrent)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err // booking.ErrAppointmentNotFound or infra
		}
		return booking.ErrStateConflict
	}
	return nil
}

// ListForBranch returns a branch's appointments joined with customer
// emails for the employee view, optionally narrowed to one day and one
// status.
func (r *AppointmentRepo) ListForBranch(ctx context.Context, branchID uint64, f booking.Filter) ([]booking.BranchAppointment, error) {
	q := `SELECT a.id, a.branch_id, a.user_id, a.start_time, a.status, a.created_at, a.updated_at, u.email
	      FROM appointments a
	      JOIN users u ON u.id = a.user_id
	      WHERE a.branch_id = ?`
	args := []interface{}{branchID}
	if f.Date != nil {
		d := f.Date.UTC()
		dayStart := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		q += ` AND a.start_time >= ? AND a.start_time < ?`
		args = append(args, dayStart, dayStart.Add(24*time.Hour))
	}
	if f.Status != "" {
		q += ` AND a.status = ?`
		args = append(args, f.Status)
	}
	q += ` ORDER BY a.start_time ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.BranchAppointment
	for rows.Next() {
		var ba booking.BranchAppointment
		if err := rows.Scan(&ba.ID, &ba.BranchID, &ba.UserID, &ba.StartTime, &ba.Status,
			&ba.CreatedAt, &ba.UpdatedAt, &ba.UserEmail); err != nil {
			return nil, err
		}
		out = append(out, ba)
	}
	return out, rows.Err()
}

// ListForUser returns a customer's appointments joined with branch
// names, ordered chronologically.
func (r *AppointmentRepo) ListForUser(ctx context.Context, userID uint64) ([]booking.CustomerAppointment, error) {
	const q = `SELECT a.id, a.branch_id, a.user_id, a.start_time, a.status, a.created_at, a.updated_at, b.name
	           FROM appointments a
	           JOIN branches b ON b.id = a.branch_id
	           WHERE a.user_id = ?
	           ORDER BY a.start_time ASC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.CustomerAppointment
	for rows.Next() {
		var ca booking.CustomerAppointment
		if err := rows.Scan(&ca.ID, &ca.BranchID, &ca.UserID, &ca.StartTime, &ca.Status,
			&ca.CreatedAt, &ca.UpdatedAt, &ca.BranchName); err != nil {
			return nil, err
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}

// CompletePast flips BOOKED appointments whose slot start passed before
// the cutoff to COMPLETED.  The background sweeper in cmd/server calls
// this periodically; the WHERE clause makes the sweep idempotent.
func (r *AppointmentRepo) CompletePast(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `UPDATE appointments SET status = 'COMPLETED', active = NULL
	           WHERE status = 'BOOKED' AND start_time < ?`
	res, err := r.db.ExecContext(ctx, q, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanAppointments(rows *sql.Rows) ([]model.Appointment, error) {
	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.BranchID, &a.UserID, &a.StartTime, &a.Status,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
