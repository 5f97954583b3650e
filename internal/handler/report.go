package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/repository"
)

// ReportHandler generates and stores aggregated report snapshots.
type ReportHandler struct {
	Reports  *repository.ReportRepo
	Vehicles *repository.VehicleRepo
	Payments *repository.PaymentRepo
	Sections *repository.SectionRepo
}

func NewReportHandler(r *repository.ReportRepo, v *repository.VehicleRepo, p *repository.PaymentRepo, s *repository.SectionRepo) *ReportHandler {
	return &ReportHandler{Reports: r, Vehicles: v, Payments: p, Sections: s}
}

// Report types.
const (
	ReportOccupancy = "occupancy"
	ReportRevenue   = "revenue"
)

// ----- DTOs -----

type reportReq struct {
	Name     string               `json:"name"`
	Type     string               `json:"type"`
	Start    time.Time            `json:"start"`
	End      time.Time            `json:"end"`
	Schedule *repository.Schedule `json:"schedule"`
}

type scheduleReq struct {
	Name     string              `json:"name"`
	Schedule repository.Schedule `json:"schedule"`
}

// occupancyData is the stored snapshot of an occupancy report.
type occupancyData struct {
	TotalEntries  int                `json:"total_entries"`
	TotalExits    int                `json:"total_exits"`
	EntriesByHour map[string]int     `json:"entries_by_hour"`
	EntriesByDay  map[string]int     `json:"entries_by_day"`
	Capacity      uint32             `json:"capacity"`
	PeakHour      string             `json:"peak_hour,omitempty"`
	Sections      []sectionOccupancy `json:"sections"`
}

// sectionOccupancy captures one section's counters at report time.
type sectionOccupancy struct {
	Name      string `json:"name"`
	Capacity  uint32 `json:"capacity"`
	Available uint32 `json:"available"`
}

// revenueData is the stored snapshot of a revenue report.
type revenueData struct {
	TotalRevenue   float64            `json:"total_revenue"`
	PaymentCount   int                `json:"payment_count"`
	AverageAmount  float64            `json:"average_amount"`
	RevenueByDay   map[string]float64 `json:"revenue_by_day"`
	ByMethod       map[string]float64 `json:"by_method"`
	AvgDurationMin int64              `json:"avg_duration_min"`
}

// Create aggregates the requested range and stores the snapshot.  Accepted
// types are "occupancy" and "revenue".
func (h *ReportHandler) Create(c echo.Context) error { return h.create(c, "") }

// CreateOccupancy and CreateRevenue pin the report type from the route.
func (h *ReportHandler) CreateOccupancy(c echo.Context) error { return h.create(c, ReportOccupancy) }
func (h *ReportHandler) CreateRevenue(c echo.Context) error   { return h.create(c, ReportRevenue) }

func (h *ReportHandler) create(c echo.Context, forced string) error {
	var req reportReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if forced != "" {
		req.Type = forced
	}
	if req.Type != ReportOccupancy && req.Type != ReportRevenue {
		return fail(c, http.StatusBadRequest, "type must be occupancy or revenue")
	}
	if req.Start.IsZero() || req.End.IsZero() || !req.End.After(req.Start) {
		return fail(c, http.StatusBadRequest, "a valid start/end range is required")
	}
	if req.Name == "" {
		req.Name = req.Type + " report"
	}

	tenant := tenantOf(c)
	identity := identityOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	var (
		data any
		err  error
	)
	switch req.Type {
	case ReportOccupancy:
		data, err = h.buildOccupancy(ctx, tenant.ID, req.Start, req.End)
	case ReportRevenue:
		data, err = h.buildRevenue(ctx, tenant.ID, req.Start, req.End)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "could not aggregate report")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "could not encode report")
	}
	var scheduled json.RawMessage
	if req.Schedule != nil {
		scheduled, err = json.Marshal(req.Schedule)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid schedule")
		}
	}

	rep := repository.Report{
		TenantID:   tenant.ID,
		Name:       req.Name,
		Type:       req.Type,
		RangeStart: req.Start.UTC(),
		RangeEnd:   req.End.UTC(),
		Data:       raw,
		Scheduled:  scheduled,
		CreatedBy:  identity.UserID,
	}
	if err := h.Reports.Create(ctx, &rep); err != nil {
		return fail(c, http.StatusInternalServerError, "could not store report")
	}
	return ok(c, http.StatusCreated, rep, "report generated")
}

func (h *ReportHandler) buildOccupancy(ctx context.Context, tenantID uint64, start, end time.Time) (occupancyData, error) {
	data := occupancyData{
		EntriesByHour: map[string]int{},
		EntriesByDay:  map[string]int{},
	}

	vehicles, err := h.Vehicles.ListEntriesBetween(ctx, tenantID, start, end)
	if err != nil {
		return data, err
	}
	peak := 0
	for _, v := range vehicles {
		data.TotalEntries++
		if v.ExitTime != nil && !v.ExitTime.After(end) {
			data.TotalExits++
		}
		if v.EntryTime == nil {
			continue
		}
		hour := v.EntryTime.UTC().Format("2006-01-02 15:00")
		day := v.EntryTime.UTC().Format("2006-01-02")
		data.EntriesByHour[hour]++
		data.EntriesByDay[day]++
		if data.EntriesByHour[hour] > peak {
			peak = data.EntriesByHour[hour]
			data.PeakHour = hour
		}
	}

	sections, err := h.Sections.List(ctx, tenantID)
	if err != nil {
		return data, err
	}
	for _, s := range sections {
		data.Capacity += s.Capacity
		data.Sections = append(data.Sections, sectionOccupancy{
			Name:      s.Name,
			Capacity:  s.Capacity,
			Available: s.Available,
		})
	}
	return data, nil
}

func (h *ReportHandler) buildRevenue(ctx context.Context, tenantID uint64, start, end time.Time) (revenueData, error) {
	data := revenueData{
		RevenueByDay: map[string]float64{},
		ByMethod:     map[string]float64{},
	}

	payments, err := h.Payments.ListCompletedBetween(ctx, tenantID, start, end)
	if err != nil {
		return data, err
	}
	var totalDuration int64
	for _, p := range payments {
		data.PaymentCount++
		data.TotalRevenue += p.Amount
		data.RevenueByDay[p.CreatedAt.UTC().Format("2006-01-02")] += p.Amount
		data.ByMethod[p.Method] += p.Amount
		totalDuration += p.DurationMin
	}
	if data.PaymentCount > 0 {
		data.AverageAmount = data.TotalRevenue / float64(data.PaymentCount)
		data.AvgDurationMin = totalDuration / int64(data.PaymentCount)
	}
	return data, nil
}

// List returns the tenant's stored reports.
func (h *ReportHandler) List(c echo.Context) error {
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	reports, err := h.Reports.List(ctx, tenant.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "database error")
	}
	if reports == nil {
		reports = []repository.Report{}
	}
	return ok(c, http.StatusOK, reports, "")
}

// Get returns one stored report.
func (h *ReportHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid report id")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	rep, err := h.Reports.GetByID(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return fail(c, http.StatusNotFound, "report not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return ok(c, http.StatusOK, rep, "")
}

// UpdateSchedule stores a delivery schedule on an existing report.  The
// schedule is descriptive; an external dispatcher executes it.
func (h *ReportHandler) UpdateSchedule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid report id")
	}
	var req scheduleReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	rep, err := h.Reports.GetByID(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return fail(c, http.StatusNotFound, "report not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	name := req.Name
	if name == "" {
		name = rep.Name
	}
	scheduled, err := json.Marshal(req.Schedule)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid schedule")
	}
	if err := h.Reports.UpdateScheduled(ctx, tenant.ID, id, name, scheduled); err != nil {
		return fail(c, http.StatusInternalServerError, "could not update report")
	}
	return ok(c, http.StatusOK, nil, "report schedule updated")
}

// Delete removes a stored report.
func (h *ReportHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid report id")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Reports.Delete(ctx, tenant.ID, id); err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return fail(c, http.StatusNotFound, "report not found")
		}
		return fail(c, http.StatusInternalServerError, "could not delete report")
	}
	return ok(c, http.StatusOK, nil, "report deleted")
}
