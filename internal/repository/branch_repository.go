// Package repository contains data access logic separated from HTTP
// handlers.  All queries use plain SQL over database/sql; timestamps
// are stored and compared in UTC.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/novabanka/branch-appointments/internal/booking"
	"github.com/novabanka/branch-appointments/internal/model"
)

// BranchRepo provides read access to branches and their weekly opening
// hours.  Branches are maintained by back-office tooling, so the
// repository intentionally has no create/update methods; it implements
// the booking.BranchDirectory contract.
type BranchRepo struct {
	db *sql.DB
}

// NewBranchRepo constructs a BranchRepo bound to the given database.
func NewBranchRepo(db *sql.DB) *BranchRepo { return &BranchRepo{db: db} }

// GetBranch fetches one branch together with its opening hours.  It
// returns booking.ErrBranchNotFound when the id is unknown.
func (r *BranchRepo) GetBranch(ctx context.Context, id uint64) (model.Branch, error) {
	const q = `SELECT id, name, address, created_at, updated_at FROM branches WHERE id = ?`
	var b model.Branch
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&b.ID, &b.Name, &b.Address, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Branch{}, booking.ErrBranchNotFound
		}
		return model.Branch{}, err
	}

	hours, err := r.hoursFor(ctx, id)
	if err != nil {
		return model.Branch{}, err
	}
	b.Hours = hours
	return b, nil
}

// ListBranches returns all branches with their hours, ordered by name.
// Used by the public directory endpoints and as chatbot context.
func (r *BranchRepo) ListBranches(ctx context.Context) ([]model.Branch, error) {
	const q = `SELECT id, name, address, created_at, updated_at FROM branches ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Branch
	for rows.Next() {
		var b model.Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		hours, err := r.hoursFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Hours = hours
	}
	return out, nil
}

// hoursFor loads the branch_hours rows of one branch.  TIME columns
// scan as "HH:MM:SS" strings which the slot catalog parses directly.
func (r *BranchRepo) hoursFor(ctx context.Context, branchID uint64) ([]model.BranchHours, error) {
	const q = `SELECT branch_id, weekday, open_time, close_time, slot_minutes
	           FROM branch_hours WHERE branch_id = ? ORDER BY weekday ASC`
	rows, err := r.db.QueryContext(ctx, q, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BranchHours
	for rows.Next() {
		var h model.BranchHours
		var weekday int
		if err := rows.Scan(&h.BranchID, &weekday, &h.Open, &h.Close, &h.SlotMinutes); err != nil {
			return nil, err
		}
		h.Weekday = time.Weekday(weekday)
		out = append(out, h)
	}
	return out, rows.Err()
}
