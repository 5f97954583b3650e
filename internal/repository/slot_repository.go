package repository // repository for parking slot persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Slot represents a single physical parking space within a section.
// CurrentVehicleID is set exactly when Status is Occupied.
type Slot struct {
	ID               uint64    `json:"id"`
	TenantID         uint64    `json:"tenant_id"`
	SectionID        uint64    `json:"section_id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Status           string    `json:"status"`
	Reserved         bool      `json:"reserved"`
	CurrentVehicleID uint64    `json:"current_vehicle_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Slot status values.
const (
	SlotAvailable   = "Available"
	SlotOccupied    = "Occupied"
	SlotMaintenance = "Maintenance"
)

var (
	// ErrSlotNotFound is returned when a slot lookup yields no rows.
	ErrSlotNotFound = errors.New("parking slot not found")
	// ErrSlotExists is returned when a slot name collides within its section.
	ErrSlotExists = errors.New("slot name already exists")
	// ErrOccupyWithoutVehicle is returned when a status update tries to mark a
	// slot Occupied with no vehicle attached.
	ErrOccupyWithoutVehicle = errors.New("cannot occupy slot without a vehicle")
)

// SlotRepo encapsulates database operations for parking slots.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo constructs a SlotRepo given a DB handle.
func NewSlotRepo(db *sql.DB) *SlotRepo {
	return &SlotRepo{db: db}
}

const slotCols = "id,tenant_id,section_id,name,slot_type,status,reserved,current_vehicle_id,created_at,updated_at"

func scanSlot(sc interface{ Scan(...any) error }) (Slot, error) {
	var (
		s   Slot
		cur sql.NullInt64
	)
	err := sc.Scan(&s.ID, &s.TenantID, &s.SectionID, &s.Name, &s.Type,
		&s.Status, &s.Reserved, &cur, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrSlotNotFound
	}
	if err != nil {
		return s, err
	}
	if cur.Valid {
		s.CurrentVehicleID = uint64(cur.Int64)
	}
	return s, nil
}

func nullableVehicle(id uint64) any {
	if id == 0 {
		return nil
	}
	return id
}

// Create inserts a slot record.  On success the slot's ID is populated.
// The section relationship is a foreign key, so no section-side write is
// needed.
func (r *SlotRepo) Create(ctx context.Context, s *Slot) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO parking_slots (tenant_id,section_id,name,slot_type,status,reserved) VALUES (?,?,?,?,?,?)",
		s.TenantID, s.SectionID, s.Name, s.Type, s.Status, s.Reserved)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrSlotExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func (r *SlotRepo) GetByID(ctx context.Context, tenantID, id uint64) (Slot, error) {
	return scanSlot(r.db.QueryRowContext(ctx,
		"SELECT "+slotCols+" FROM parking_slots WHERE id=? AND tenant_id=? LIMIT 1", id, tenantID))
}

// GetByIDTx fetches a slot inside a transaction with a row lock so entry
// and exit cannot race on the same slot.
func (r *SlotRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, tenantID, id uint64) (Slot, error) {
	return scanSlot(tx.QueryRowContext(ctx,
		"SELECT "+slotCols+" FROM parking_slots WHERE id=? AND tenant_id=? LIMIT 1 FOR UPDATE", id, tenantID))
}

// FirstAvailableTx locks and returns the first free slot of the tenant,
// optionally narrowed to a section.  Reserved slots are skipped; they are
// held for manual assignment.
func (r *SlotRepo) FirstAvailableTx(ctx context.Context, tx *sql.Tx, tenantID, sectionID uint64) (Slot, error) {
	where := "tenant_id=? AND status='Available' AND reserved=0"
	args := []any{tenantID}
	if sectionID != 0 {
		where += " AND section_id=?"
		args = append(args, sectionID)
	}
	return scanSlot(tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM parking_slots WHERE %s ORDER BY section_id, name LIMIT 1 FOR UPDATE", slotCols, where),
		args...))
}

// SlotFilter narrows List results.  Zero values mean "no filter".
type SlotFilter struct {
	SectionID uint64
	Status    string
	Type      string
	Reserved  *bool
}

// List returns a tenant's slots, optionally filtered.
func (r *SlotRepo) List(ctx context.Context, tenantID uint64, f SlotFilter) ([]Slot, error) {
	where := "tenant_id=?"
	args := []any{tenantID}
	if f.SectionID != 0 {
		where += " AND section_id=?"
		args = append(args, f.SectionID)
	}
	if f.Status != "" {
		where += " AND status=?"
		args = append(args, f.Status)
	}
	if f.Type != "" {
		where += " AND slot_type=?"
		args = append(args, f.Type)
	}
	if f.Reserved != nil {
		where += " AND reserved=?"
		args = append(args, *f.Reserved)
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM parking_slots WHERE %s ORDER BY section_id, name", slotCols, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListBySection returns the slots of one section.
func (r *SlotRepo) ListBySection(ctx context.Context, tenantID, sectionID uint64) ([]Slot, error) {
	return r.List(ctx, tenantID, SlotFilter{SectionID: sectionID})
}

// Update persists mutable slot fields.  Status invariants (vehicle reference
// present exactly when Occupied) are validated by the caller.
func (r *SlotRepo) Update(ctx context.Context, s *Slot) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE parking_slots SET section_id=?,name=?,slot_type=?,status=?,reserved=?,current_vehicle_id=? WHERE id=? AND tenant_id=?",
		s.SectionID, s.Name, s.Type, s.Status, s.Reserved, nullableVehicle(s.CurrentVehicleID), s.ID, s.TenantID)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrSlotExists
	}
	return err
}

// Delete removes a slot.  Occupied slots are refused by the caller before
// the write; the status guard here is the second line of defense.
func (r *SlotRepo) Delete(ctx context.Context, tenantID, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM parking_slots WHERE id=? AND tenant_id=? AND status<>'Occupied'", id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, tenantID, id); err != nil {
			return err
		}
		return ErrSlotOccupied
	}
	return nil
}

// CountOccupied returns how many slots of a section are occupied.
func (r *SlotRepo) CountOccupied(ctx context.Context, tenantID, sectionID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM parking_slots WHERE section_id=? AND tenant_id=? AND status='Occupied'",
		sectionID, tenantID).Scan(&n)
	return n, err
}

// OccupyTx marks the slot Occupied and attaches the vehicle, inside the
// caller's transaction.
func (r *SlotRepo) OccupyTx(ctx context.Context, tx *sql.Tx, tenantID, id, vehicleID uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE parking_slots SET status='Occupied',current_vehicle_id=? WHERE id=? AND tenant_id=?",
		vehicleID, id, tenantID)
	return err
}

// ReleaseTx marks the slot Available and clears the vehicle reference,
// inside the caller's transaction.
func (r *SlotRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, tenantID, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE parking_slots SET status='Available',current_vehicle_id=NULL WHERE id=? AND tenant_id=?",
		id, tenantID)
	return err
}
