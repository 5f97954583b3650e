package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parkgrid/parkgrid-api/internal/utils"
)

// User mirrors the 'users' table.  TenantID is zero for platform-level
// accounts that are not bound to a tenant.
type User struct {
	ID           uint64     `json:"id"`
	TenantID     uint64     `json:"tenant_id,omitempty"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	LastActive   *time.Time `json:"last_active,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Role values form a closed set; the middleware rejects anything else.
const (
	RoleSuperAdmin = "SuperAdmin"
	RoleAdmin      = "Admin"
	RoleGatekeeper = "Gatekeeper"
	RoleViewer     = "Viewer"
)

// User status values.
const (
	UserActive   = "Active"
	UserInactive = "Inactive"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

// ValidRole reports whether the given role belongs to the closed role set.
func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleGatekeeper, RoleViewer:
		return true
	}
	return false
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id,tenant_id,name,email,password_hash,role,status,phone_number,last_active,created_at,updated_at"

func scanUser(sc interface{ Scan(...any) error }) (User, error) {
	var (
		u      User
		tenant sql.NullInt64
		last   sql.NullTime
	)
	err := sc.Scan(&u.ID, &tenant, &u.Name, &u.Email, &u.PasswordHash,
		&u.Role, &u.Status, &u.PhoneNumber, &last, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, err
	}
	if tenant.Valid {
		u.TenantID = uint64(tenant.Int64)
	}
	if last.Valid {
		u.LastActive = &last.Time
	}
	return u, nil
}

func nullableTenant(id uint64) any {
	if id == 0 {
		return nil
	}
	return id
}

// Create hashes the password and inserts the user, populating its ID.
// Emails are normalized to lowercase; a duplicate (tenant,email) pair maps
// to ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *User, password string, cost int) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (tenant_id,name,email,password_hash,role,status,phone_number,last_active) VALUES (?,?,?,?,?,?,?,?)",
		nullableTenant(u.TenantID), u.Name, u.Email, u.PasswordHash, u.Role, u.Status, u.PhoneNumber, u.LastActive)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email.  Emails are unique per
// tenant, not globally; login takes the oldest match, which preserves the
// behavior of a plain findOne in the source system.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? ORDER BY id LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// GetScoped fetches a user by id restricted to a tenant.
func (r *UserRepo) GetScoped(ctx context.Context, tenantID, id uint64) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? AND tenant_id=? LIMIT 1", id, tenantID))
}

// TouchLastActive stamps the user's last_active column with the current time.
func (r *UserRepo) TouchLastActive(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_active=UTC_TIMESTAMP() WHERE id=?", id)
	return err
}

// UserFilter narrows List results.  Zero values mean "no filter".
type UserFilter struct {
	Role   string
	Status string
	Search string // matched against name and email
	Limit  int
	Offset int
}

// List returns a page of a tenant's users plus the total matching count.
func (r *UserRepo) List(ctx context.Context, tenantID uint64, f UserFilter) ([]User, int, error) {
	where := "tenant_id=?"
	args := []any{tenantID}
	if f.Role != "" {
		where += " AND role=?"
		args = append(args, f.Role)
	}
	if f.Status != "" {
		where += " AND status=?"
		args = append(args, f.Status)
	}
	if f.Search != "" {
		where += " AND (name LIKE ? OR email LIKE ?)"
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat)
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}

	q := fmt.Sprintf("SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?", userCols, where)
	rows, err := r.DB.QueryContext(ctx, q, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]User, 0, f.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update persists name, email, role and status.  A duplicate email within
// the tenant maps to ErrEmailExists.
func (r *UserRepo) Update(ctx context.Context, u *User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?,email=?,role=?,status=?,phone_number=? WHERE id=?",
		u.Name, u.Email, u.Role, u.Status, u.PhoneNumber, u.ID)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrEmailExists
	}
	return err
}

// SetPassword hashes and stores a new password for the user.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// Delete removes a user scoped to a tenant.
func (r *UserRepo) Delete(ctx context.Context, tenantID, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=? AND tenant_id=?", id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
