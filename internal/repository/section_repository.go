package repository // repository defines data access for parking sections

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel definitions
	"strings"
	"time"
)

// Section represents a named group of parking slots on one floor.
// Available is maintained incrementally by the entry/exit transaction and
// always stays within [0, Capacity].
type Section struct {
	ID        uint64    `json:"id"`
	TenantID  uint64    `json:"tenant_id"`
	Name      string    `json:"name"`
	Floor     string    `json:"floor"`
	Capacity  uint32    `json:"capacity"`
	Available uint32    `json:"available"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	// ErrSectionNotFound is returned when a section lookup yields no rows.
	ErrSectionNotFound = errors.New("parking section not found")
	// ErrSectionExists is returned when a section name collides within the tenant.
	ErrSectionExists = errors.New("section name already exists")
)

// SectionRepo provides methods to work with parking sections.
type SectionRepo struct {
	db *sql.DB
}

// NewSectionRepo constructs a SectionRepo with the given DB handle.
func NewSectionRepo(db *sql.DB) *SectionRepo {
	return &SectionRepo{db: db}
}

const sectionCols = "id,tenant_id,name,floor,capacity,available,status,created_at,updated_at"

func scanSection(sc interface{ Scan(...any) error }) (Section, error) {
	var s Section
	err := sc.Scan(&s.ID, &s.TenantID, &s.Name, &s.Floor, &s.Capacity,
		&s.Available, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrSectionNotFound
	}
	return s, err
}

// Create inserts a section record.  Available starts equal to Capacity.
// On success the section's ID is populated.
func (r *SectionRepo) Create(ctx context.Context, s *Section) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO parking_sections (tenant_id,name,floor,capacity,available,status) VALUES (?,?,?,?,?,?)",
		s.TenantID, s.Name, s.Floor, s.Capacity, s.Capacity, s.Status)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrSectionExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Available = s.Capacity
	return nil
}

func (r *SectionRepo) GetByID(ctx context.Context, tenantID, id uint64) (Section, error) {
	return scanSection(r.db.QueryRowContext(ctx,
		"SELECT "+sectionCols+" FROM parking_sections WHERE id=? AND tenant_id=? LIMIT 1", id, tenantID))
}

// List returns all sections of a tenant ordered by floor then name.
func (r *SectionRepo) List(ctx context.Context, tenantID uint64) ([]Section, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sectionCols+" FROM parking_sections WHERE tenant_id=? ORDER BY floor, name", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update persists name, floor, capacity, available and status.  Capacity
// guards (resize below occupancy) are enforced by the caller before the
// write, on the section it just fetched.
func (r *SectionRepo) Update(ctx context.Context, s *Section) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE parking_sections SET name=?,floor=?,capacity=?,available=?,status=? WHERE id=? AND tenant_id=?",
		s.Name, s.Floor, s.Capacity, s.Available, s.Status, s.ID, s.TenantID)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrSectionExists
	}
	return err
}

// Delete removes a section and its slots.  It refuses while any contained
// slot is occupied.
func (r *SectionRepo) Delete(ctx context.Context, tenantID, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var occupied int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM parking_slots WHERE section_id=? AND tenant_id=? AND status='Occupied'",
		id, tenantID).Scan(&occupied); err != nil {
		return err
	}
	if occupied > 0 {
		return ErrSectionOccupied
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM parking_slots WHERE section_id=? AND tenant_id=?", id, tenantID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		"DELETE FROM parking_sections WHERE id=? AND tenant_id=?", id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSectionNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// DecrementAvailableTx takes one space from the section inside the caller's
// transaction.  The floor at zero guards against drift; the counter itself
// is only ever written here and in IncrementAvailableTx.
func (r *SectionRepo) DecrementAvailableTx(ctx context.Context, tx *sql.Tx, tenantID, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE parking_sections SET available=GREATEST(CAST(available AS SIGNED)-1,0) WHERE id=? AND tenant_id=?",
		id, tenantID)
	return err
}

// IncrementAvailableTx returns one space to the section, capped at capacity.
func (r *SectionRepo) IncrementAvailableTx(ctx context.Context, tx *sql.Tx, tenantID, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE parking_sections SET available=LEAST(available+1,capacity) WHERE id=? AND tenant_id=?",
		id, tenantID)
	return err
}
