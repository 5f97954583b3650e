package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Report mirrors the 'reports' table.  Data holds the aggregated snapshot
// as an opaque JSON document; Scheduled, when present, describes a stored
// schedule that an external dispatcher would execute.
type Report struct {
	ID         uint64          `json:"id"`
	TenantID   uint64          `json:"tenant_id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	RangeStart time.Time       `json:"range_start"`
	RangeEnd   time.Time       `json:"range_end"`
	Data       json.RawMessage `json:"data,omitempty"`
	Scheduled  json.RawMessage `json:"scheduled,omitempty"`
	CreatedBy  uint64          `json:"created_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Schedule describes when and to whom a stored report should be sent.
type Schedule struct {
	IsScheduled bool     `json:"is_scheduled"`
	Frequency   string   `json:"frequency"`
	Time        string   `json:"time"`
	SendEmail   bool     `json:"send_email"`
	Recipients  []string `json:"recipients"`
}

var ErrReportNotFound = errors.New("report not found")

type ReportRepo struct{ db *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

const reportCols = "id,tenant_id,name,report_type,range_start,range_end,data,scheduled,created_by,created_at"

func scanReport(sc interface{ Scan(...any) error }) (Report, error) {
	var (
		r          Report
		data, schd []byte
		by         sql.NullInt64
	)
	err := sc.Scan(&r.ID, &r.TenantID, &r.Name, &r.Type, &r.RangeStart, &r.RangeEnd,
		&data, &schd, &by, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return r, ErrReportNotFound
	}
	if err != nil {
		return r, err
	}
	r.Data = data
	r.Scheduled = schd
	if by.Valid {
		r.CreatedBy = uint64(by.Int64)
	}
	return r, nil
}

// Create inserts a report snapshot and populates its ID.
func (r *ReportRepo) Create(ctx context.Context, rep *Report) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO reports (tenant_id,name,report_type,range_start,range_end,data,scheduled,created_by) VALUES (?,?,?,?,?,?,?,?)",
		rep.TenantID, rep.Name, rep.Type, rep.RangeStart, rep.RangeEnd,
		rawOrNil(rep.Data), rawOrNil(rep.Scheduled), nullableUser(rep.CreatedBy))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rep.ID = uint64(id)
	return nil
}

func rawOrNil(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}

func (r *ReportRepo) GetByID(ctx context.Context, tenantID, id uint64) (Report, error) {
	return scanReport(r.db.QueryRowContext(ctx,
		"SELECT "+reportCols+" FROM reports WHERE id=? AND tenant_id=? LIMIT 1", id, tenantID))
}

// List returns all of a tenant's reports, newest first.
func (r *ReportRepo) List(ctx context.Context, tenantID uint64) ([]Report, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reportCols+" FROM reports WHERE tenant_id=? ORDER BY created_at DESC", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// UpdateScheduled replaces the name and schedule of a stored report.
func (r *ReportRepo) UpdateScheduled(ctx context.Context, tenantID, id uint64, name string, schedule json.RawMessage) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE reports SET name=?,scheduled=? WHERE id=? AND tenant_id=?",
		name, rawOrNil(schedule), id, tenantID)
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

// Delete removes a report.
func (r *ReportRepo) Delete(ctx context.Context, tenantID, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM reports WHERE id=? AND tenant_id=?", id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReportNotFound
	}
	return nil
}
