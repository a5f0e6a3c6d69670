package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/novabanka/branch-appointments/internal/model"
	"github.com/novabanka/branch-appointments/internal/utils"
)

// ErrEmailExists is returned when registering with an email that is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// UserRepo persists application users.  Registration always creates
// customers; employee accounts (with their branch scope) are seeded by
// back-office SQL.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a customer user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		email, hash, model.RoleCustomer)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDupEntry {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getWhere(ctx, "email=?", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getWhere(ctx, "id=?", id)
}

func (r *UserRepo) getWhere(ctx context.Context, cond string, arg interface{}) (model.User, error) {
	var (
		u        model.User
		branchID sql.NullInt64
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,branch_id,is_active,created_at,updated_at FROM users WHERE "+cond+" LIMIT 1",
		arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &branchID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if branchID.Valid {
		b := uint64(branchID.Int64)
		u.BranchID = &b
	}
	return u, nil
}
