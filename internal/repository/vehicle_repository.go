package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Vehicle mirrors the 'vehicles' table.  One row exists per physical
// vehicle per tenant; the row is reused across visits, flipping between
// Parked and Exited.
type Vehicle struct {
	ID          uint64     `json:"id"`
	TenantID    uint64     `json:"tenant_id"`
	PlateNumber string     `json:"plate_number"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	EntryTime   *time.Time `json:"entry_time,omitempty"`
	ExitTime    *time.Time `json:"exit_time,omitempty"`
	SlotID      uint64     `json:"slot_id,omitempty"`
	Color       string     `json:"color,omitempty"`
	Make        string     `json:"make,omitempty"`
	Model       string     `json:"model,omitempty"`
	Year        uint16     `json:"year,omitempty"`
	OwnerName   string     `json:"owner_name,omitempty"`
	OwnerPhone  string     `json:"owner_phone,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Vehicle status values.
const (
	VehicleParked   = "Parked"
	VehicleExited   = "Exited"
	VehicleReserved = "Reserved"
)

// DefaultVehicleType is assumed when an entry supplies no type and the
// vehicle has none on record.
const DefaultVehicleType = "Sedan"

var (
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrPlateExists     = errors.New("plate number already registered")
)

type VehicleRepo struct{ db *sql.DB }

func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span vehicle, slot and section writes.
func (r *VehicleRepo) DB() *sql.DB { return r.db }

const vehicleCols = "id,tenant_id,plate_number,vehicle_type,status,entry_time,exit_time,slot_id,color,make,model,year,owner_name,owner_phone,COALESCE(notes,''),created_at,updated_at"

func scanVehicle(sc interface{ Scan(...any) error }) (Vehicle, error) {
	var (
		v          Vehicle
		entry, ext sql.NullTime
		slot       sql.NullInt64
	)
	err := sc.Scan(&v.ID, &v.TenantID, &v.PlateNumber, &v.Type, &v.Status,
		&entry, &ext, &slot, &v.Color, &v.Make, &v.Model, &v.Year,
		&v.OwnerName, &v.OwnerPhone, &v.Notes, &v.CreatedAt, &v.UpdatedAt)
	if err == sql.ErrNoRows {
		return v, ErrVehicleNotFound
	}
	if err != nil {
		return v, err
	}
	if entry.Valid {
		v.EntryTime = &entry.Time
	}
	if ext.Valid {
		v.ExitTime = &ext.Time
	}
	if slot.Valid {
		v.SlotID = uint64(slot.Int64)
	}
	return v, nil
}

func nullableSlot(id uint64) any {
	if id == 0 {
		return nil
	}
	return id
}

// GetByID fetches a vehicle by id within a tenant.
func (r *VehicleRepo) GetByID(ctx context.Context, tenantID, id uint64) (Vehicle, error) {
	return scanVehicle(r.db.QueryRowContext(ctx,
		"SELECT "+vehicleCols+" FROM vehicles WHERE id=? AND tenant_id=? LIMIT 1", id, tenantID))
}

// GetByPlate fetches a vehicle by plate within a tenant, any status.
func (r *VehicleRepo) GetByPlate(ctx context.Context, tenantID uint64, plate string) (Vehicle, error) {
	return scanVehicle(r.db.QueryRowContext(ctx,
		"SELECT "+vehicleCols+" FROM vehicles WHERE plate_number=? AND tenant_id=? LIMIT 1", plate, tenantID))
}

// GetByPlateTx is GetByPlate inside a transaction, taking a row lock so two
// concurrent entries for the same plate serialize.
func (r *VehicleRepo) GetByPlateTx(ctx context.Context, tx *sql.Tx, tenantID uint64, plate string) (Vehicle, error) {
	return scanVehicle(tx.QueryRowContext(ctx,
		"SELECT "+vehicleCols+" FROM vehicles WHERE plate_number=? AND tenant_id=? LIMIT 1 FOR UPDATE", plate, tenantID))
}

// GetParkedByPlateTx fetches the Parked row for a plate inside a
// transaction, with a row lock.  No Parked row maps to ErrVehicleNotParked.
func (r *VehicleRepo) GetParkedByPlateTx(ctx context.Context, tx *sql.Tx, tenantID uint64, plate string) (Vehicle, error) {
	v, err := scanVehicle(tx.QueryRowContext(ctx,
		"SELECT "+vehicleCols+" FROM vehicles WHERE plate_number=? AND tenant_id=? AND status='Parked' LIMIT 1 FOR UPDATE",
		plate, tenantID))
	if errors.Is(err, ErrVehicleNotFound) {
		return v, ErrVehicleNotParked
	}
	return v, err
}

// CreateTx inserts a fresh vehicle row inside the caller's transaction and
// populates its ID.  A duplicate (tenant,plate) pair maps to ErrPlateExists.
func (r *VehicleRepo) CreateTx(ctx context.Context, tx *sql.Tx, v *Vehicle) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO vehicles (tenant_id,plate_number,vehicle_type,status,entry_time,slot_id,color,make,model) VALUES (?,?,?,?,?,?,?,?,?)",
		v.TenantID, v.PlateNumber, v.Type, v.Status, v.EntryTime, nullableSlot(v.SlotID), v.Color, v.Make, v.Model)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrPlateExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// ReenterTx reuses an existing (Exited) row for a new visit: status back to
// Parked, fresh entry time, exit cleared, slot and type replaced.
func (r *VehicleRepo) ReenterTx(ctx context.Context, tx *sql.Tx, id uint64, entry time.Time, slotID uint64, vtype string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE vehicles SET status='Parked',entry_time=?,exit_time=NULL,slot_id=?,vehicle_type=? WHERE id=?",
		entry, nullableSlot(slotID), vtype, id)
	return err
}

// MarkExitedTx closes the visit: status Exited, exit time stamped, slot
// reference cleared.
func (r *VehicleRepo) MarkExitedTx(ctx context.Context, tx *sql.Tx, id uint64, exit time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE vehicles SET status='Exited',exit_time=?,slot_id=NULL WHERE id=?", exit, id)
	return err
}

// List returns all of a tenant's vehicles, newest first.
func (r *VehicleRepo) List(ctx context.Context, tenantID uint64) ([]Vehicle, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+vehicleCols+" FROM vehicles WHERE tenant_id=? ORDER BY created_at DESC", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListEntriesBetween returns vehicles whose entry time falls in [start,end],
// ordered by entry time.  Used by occupancy reporting.
func (r *VehicleRepo) ListEntriesBetween(ctx context.Context, tenantID uint64, start, end time.Time) ([]Vehicle, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+vehicleCols+" FROM vehicles WHERE tenant_id=? AND entry_time BETWEEN ? AND ? ORDER BY entry_time",
		tenantID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Update patches descriptive fields (plate, type, color, make, model,
// year, owner info, notes).  Occupancy state is never touched here; that
// belongs to the entry/exit transaction.
func (r *VehicleRepo) Update(ctx context.Context, v *Vehicle) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE vehicles SET plate_number=?,vehicle_type=?,color=?,make=?,model=?,year=?,owner_name=?,owner_phone=?,notes=? WHERE id=? AND tenant_id=?",
		v.PlateNumber, v.Type, v.Color, v.Make, v.Model, v.Year, v.OwnerName, v.OwnerPhone, v.Notes, v.ID, v.TenantID)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrPlateExists
	}
	return err
}
