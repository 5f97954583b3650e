package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Payment mirrors the 'payments' table.  Entry/exit timestamps are copied
// from the vehicle at creation time; DurationMin is derived from them.
type Payment struct {
	ID            uint64    `json:"id"`
	TenantID      uint64    `json:"tenant_id"`
	VehicleID     uint64    `json:"vehicle_id"`
	Amount        float64   `json:"amount"`
	TaxAmount     float64   `json:"tax_amount,omitempty"`
	DiscountAmt   float64   `json:"discount_amount,omitempty"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	EntryTime     time.Time `json:"entry_time"`
	ExitTime      time.Time `json:"exit_time"`
	DurationMin   int64     `json:"duration"`
	ReceiptNumber string    `json:"receipt_number"`
	Notes         string    `json:"notes,omitempty"`
	ProcessedBy   uint64    `json:"processed_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Payment status values.
const (
	PaymentCompleted = "Completed"
	PaymentPending   = "Pending"
	PaymentFailed    = "Failed"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentCols = "id,tenant_id,vehicle_id,amount,tax_amount,discount_amount,method,status,entry_time,exit_time,duration_min,receipt_number,COALESCE(notes,''),processed_by,created_at,updated_at"

func scanPayment(sc interface{ Scan(...any) error }) (Payment, error) {
	var (
		p    Payment
		proc sql.NullInt64
	)
	err := sc.Scan(&p.ID, &p.TenantID, &p.VehicleID, &p.Amount, &p.TaxAmount,
		&p.DiscountAmt, &p.Method, &p.Status, &p.EntryTime, &p.ExitTime,
		&p.DurationMin, &p.ReceiptNumber, &p.Notes, &proc, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrPaymentNotFound
	}
	if err != nil {
		return p, err
	}
	if proc.Valid {
		p.ProcessedBy = uint64(proc.Int64)
	}
	return p, nil
}

func nullableUser(id uint64) any {
	if id == 0 {
		return nil
	}
	return id
}

// Create inserts a payment and populates its ID.  The caller is expected to
// have stamped entry/exit, duration and receipt number already.
func (r *PaymentRepo) Create(ctx context.Context, p *Payment) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO payments (tenant_id,vehicle_id,amount,tax_amount,discount_amount,method,status,entry_time,exit_time,duration_min,receipt_number,notes,processed_by) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)",
		p.TenantID, p.VehicleID, p.Amount, p.TaxAmount, p.DiscountAmt, p.Method, p.Status,
		p.EntryTime, p.ExitTime, p.DurationMin, p.ReceiptNumber, p.Notes, nullableUser(p.ProcessedBy))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *PaymentRepo) GetByID(ctx context.Context, tenantID, id uint64) (Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx,
		"SELECT "+paymentCols+" FROM payments WHERE id=? AND tenant_id=? LIMIT 1", id, tenantID))
}

// PaymentFilter narrows List results.  Zero values mean "no filter".
type PaymentFilter struct {
	Status string
	Method string
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}

// List returns a page of a tenant's payments, newest first, plus the total
// matching count.
func (r *PaymentRepo) List(ctx context.Context, tenantID uint64, f PaymentFilter) ([]Payment, int, error) {
	where := "tenant_id=?"
	args := []any{tenantID}
	if f.Status != "" {
		where += " AND status=?"
		args = append(args, f.Status)
	}
	if f.Method != "" {
		where += " AND method=?"
		args = append(args, f.Method)
	}
	if !f.Start.IsZero() && !f.End.IsZero() {
		where += " AND created_at BETWEEN ? AND ?"
		args = append(args, f.Start, f.End)
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}

	q := fmt.Sprintf("SELECT %s FROM payments WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?", paymentCols, where)
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Payment, 0, f.Limit)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM payments WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListCompletedBetween returns completed payments created in [start,end].
// Used by revenue reporting.
func (r *PaymentRepo) ListCompletedBetween(ctx context.Context, tenantID uint64, start, end time.Time) ([]Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+paymentCols+" FROM payments WHERE tenant_id=? AND status='Completed' AND created_at BETWEEN ? AND ?",
		tenantID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateStatus sets the payment status.
func (r *PaymentRepo) UpdateStatus(ctx context.Context, tenantID, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE payments SET status=? WHERE id=? AND tenant_id=?", status, id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, tenantID, id); err != nil {
			return err
		}
	}
	return nil
}
