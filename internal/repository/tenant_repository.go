package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Tenant mirrors the 'tenants' table.  Every facility-scoped record in the
// system belongs to exactly one tenant.
type Tenant struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Domain       string    `json:"domain"`
	Plan         string    `json:"plan"`
	Status       string    `json:"status"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	APIKey       string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Tenant status values.  Only Active and Trial tenants may serve requests.
const (
	TenantActive    = "Active"
	TenantInactive  = "Inactive"
	TenantSuspended = "Suspended"
	TenantTrial     = "Trial"
)

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrDomainExists   = errors.New("domain already in use")
)

type TenantRepo struct{ DB *sql.DB }

func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{DB: db} }

const tenantCols = "id,name,domain,plan,status,contact_email,contact_phone,api_key,created_at,updated_at"

func scanTenant(row *sql.Row) (Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Domain, &t.Plan, &t.Status,
		&t.ContactEmail, &t.ContactPhone, &t.APIKey, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrTenantNotFound
	}
	return t, err
}

// Create inserts a tenant and populates its ID.  Domains are stored
// lowercased; a duplicate domain maps to ErrDomainExists.
func (r *TenantRepo) Create(ctx context.Context, t *Tenant) error {
	t.Domain = strings.ToLower(strings.TrimSpace(t.Domain))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO tenants (name,domain,plan,status,contact_email,contact_phone,api_key) VALUES (?,?,?,?,?,?,?)",
		t.Name, t.Domain, t.Plan, t.Status, t.ContactEmail, t.ContactPhone, t.APIKey)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDomainExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

func (r *TenantRepo) GetByID(ctx context.Context, id uint64) (Tenant, error) {
	return scanTenant(r.DB.QueryRowContext(ctx,
		"SELECT "+tenantCols+" FROM tenants WHERE id=? LIMIT 1", id))
}

func (r *TenantRepo) GetByDomain(ctx context.Context, domain string) (Tenant, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return scanTenant(r.DB.QueryRowContext(ctx,
		"SELECT "+tenantCols+" FROM tenants WHERE domain=? LIMIT 1", domain))
}

func (r *TenantRepo) GetByAPIKey(ctx context.Context, key string) (Tenant, error) {
	return scanTenant(r.DB.QueryRowContext(ctx,
		"SELECT "+tenantCols+" FROM tenants WHERE api_key=? LIMIT 1", key))
}

// List returns a page of tenants ordered newest first, plus the total count.
func (r *TenantRepo) List(ctx context.Context, limit, offset int) ([]Tenant, int, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+tenantCols+" FROM tenants ORDER BY created_at DESC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Tenant, 0, limit)
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Domain, &t.Plan, &t.Status,
			&t.ContactEmail, &t.ContactPhone, &t.APIKey, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM tenants").Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update persists mutable tenant fields.  A duplicate domain maps to
// ErrDomainExists.
func (r *TenantRepo) Update(ctx context.Context, t *Tenant) error {
	t.Domain = strings.ToLower(strings.TrimSpace(t.Domain))
	res, err := r.DB.ExecContext(ctx,
		"UPDATE tenants SET name=?,domain=?,plan=?,status=?,contact_email=?,contact_phone=? WHERE id=?",
		t.Name, t.Domain, t.Plan, t.Status, t.ContactEmail, t.ContactPhone, t.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDomainExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// zero rows can also mean "no change"; verify existence
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// RotateAPIKey replaces the tenant's API key.
func (r *TenantRepo) RotateAPIKey(ctx context.Context, id uint64, key string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE tenants SET api_key=? WHERE id=?", key, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// Delete removes a tenant together with its settings document.
func (r *TenantRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM settings WHERE tenant_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM tenants WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTenantNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
