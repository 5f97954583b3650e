package handler

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/metrics"
	"github.com/parkgrid/parkgrid-api/internal/queue"
	"github.com/parkgrid/parkgrid-api/internal/repository"
	"github.com/parkgrid/parkgrid-api/internal/utils"
)

// PaymentHandler records and queries parking payments.
type PaymentHandler struct {
	Payments *repository.PaymentRepo
	Vehicles *repository.VehicleRepo
	Settings *repository.SettingRepo
}

func NewPaymentHandler(p *repository.PaymentRepo, v *repository.VehicleRepo, s *repository.SettingRepo) *PaymentHandler {
	return &PaymentHandler{Payments: p, Vehicles: v, Settings: s}
}

// ----- DTOs -----

type paymentReq struct {
	VehicleID   uint64  `json:"vehicle_id"`
	PlateNumber string  `json:"plate_number"`
	Amount      float64 `json:"amount"` // computed from tenant pricing when zero
	TaxAmount   float64 `json:"tax_amount"`
	DiscountAmt float64 `json:"discount_amount"`
	Method      string  `json:"method"`
	Status      string  `json:"status"`
	Notes       string  `json:"notes"`
}

type paymentStatusReq struct {
	Status string `json:"status"`
}

func validPaymentStatus(s string) bool {
	switch s {
	case repository.PaymentCompleted, repository.PaymentPending, repository.PaymentFailed:
		return true
	}
	return false
}

// Create records a payment for a vehicle's visit.  Entry and exit times are
// copied from the vehicle (exit defaults to now for vehicles still parked),
// the duration is derived from them and a receipt number is stamped.  When
// no amount is supplied it is priced from the tenant's settings.
func (h *PaymentHandler) Create(c echo.Context) error {
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.VehicleID == 0 && req.PlateNumber == "" {
		return fail(c, http.StatusBadRequest, "vehicle_id or plate_number is required")
	}
	if req.Method == "" {
		return fail(c, http.StatusBadRequest, "method is required")
	}
	if req.Status == "" {
		req.Status = repository.PaymentCompleted
	}
	if !validPaymentStatus(req.Status) {
		return fail(c, http.StatusBadRequest, "invalid payment status")
	}

	tenant := tenantOf(c)
	identity := identityOf(c)
	now := time.Now().UTC()

	ctx, cancel := reqCtx(c)
	defer cancel()

	var (
		vehicle repository.Vehicle
		err     error
	)
	if req.VehicleID != 0 {
		vehicle, err = h.Vehicles.GetByID(ctx, tenant.ID, req.VehicleID)
	} else {
		vehicle, err = h.Vehicles.GetByPlate(ctx, tenant.ID, normalizePlate(req.PlateNumber))
	}
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return fail(c, http.StatusNotFound, "vehicle not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	if vehicle.EntryTime == nil {
		return fail(c, http.StatusConflict, "vehicle has no recorded entry")
	}

	entry := *vehicle.EntryTime
	exit := now
	if vehicle.ExitTime != nil {
		exit = *vehicle.ExitTime
	}
	duration := utils.DurationMinutes(entry, exit)

	amount := req.Amount
	if amount <= 0 {
		settings, err := h.Settings.Get(ctx, tenant.ID)
		if err != nil && !errors.Is(err, repository.ErrSettingsNotFound) {
			return fail(c, http.StatusInternalServerError, "database error")
		}
		amount = priceVisit(duration, settings.Pricing)
	}

	p := repository.Payment{
		TenantID:      tenant.ID,
		VehicleID:     vehicle.ID,
		Amount:        amount,
		TaxAmount:     req.TaxAmount,
		DiscountAmt:   req.DiscountAmt,
		Method:        req.Method,
		Status:        req.Status,
		EntryTime:     entry,
		ExitTime:      exit,
		DurationMin:   duration,
		ReceiptNumber: utils.ReceiptNumber(tenant.ID, now),
		Notes:         req.Notes,
		ProcessedBy:   identity.UserID,
	}
	if err := h.Payments.Create(ctx, &p); err != nil {
		return fail(c, http.StatusInternalServerError, "could not record payment")
	}

	metrics.PaymentsRecorded.Inc()
	publishActivity(queue.ActivityEvent{
		Type:          queue.EventPaymentRecorded,
		TenantID:      tenant.ID,
		VehicleID:     vehicle.ID,
		PlateNumber:   vehicle.PlateNumber,
		PaymentID:     p.ID,
		Amount:        p.Amount,
		Method:        p.Method,
		ReceiptNumber: p.ReceiptNumber,
		OccurredAt:    now.Format(time.RFC3339),
	})

	return ok(c, http.StatusCreated, p, "payment recorded")
}

// priceVisit computes a charge from the tenant's hourly rate, rounding up to
// whole hours and capping each started 24h block at the daily maximum.
func priceVisit(durationMin int64, pricing repository.PricingSettings) float64 {
	if durationMin <= 0 || pricing.HourlyRate <= 0 {
		return 0
	}
	hours := (durationMin + 59) / 60
	amount := float64(hours) * pricing.HourlyRate
	if pricing.DailyMaxRate > 0 {
		days := float64((durationMin + 24*60 - 1) / (24 * 60))
		if ceiling := days * pricing.DailyMaxRate; amount > ceiling {
			amount = ceiling
		}
	}
	return math.Round(amount*100) / 100
}

// List returns a page of payments, filterable by status, method and a
// created_at range.
func (h *PaymentHandler) List(c echo.Context) error {
	tenant := tenantOf(c)
	page, limit, offset := pageParams(c)

	f := repository.PaymentFilter{
		Status: c.QueryParam("status"),
		Method: c.QueryParam("method"),
		Limit:  limit,
		Offset: offset,
	}
	if v := c.QueryParam("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid start time")
		}
		f.Start = t
	}
	if v := c.QueryParam("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid end time")
		}
		f.End = t
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	payments, total, err := h.Payments.List(ctx, tenant.ID, f)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return ok(c, http.StatusOK, echo.Map{
		"payments":   payments,
		"pagination": newPageMeta(page, limit, total),
	}, "")
}

// Get returns one payment.
func (h *PaymentHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid payment id")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Payments.GetByID(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return fail(c, http.StatusNotFound, "payment not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return ok(c, http.StatusOK, p, "")
}

// Receipt returns the printable receipt view of a payment, joined with the
// vehicle it covers.
func (h *PaymentHandler) Receipt(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid payment id")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Payments.GetByID(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return fail(c, http.StatusNotFound, "payment not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	plate := ""
	if v, err := h.Vehicles.GetByID(ctx, tenant.ID, p.VehicleID); err == nil {
		plate = v.PlateNumber
	}

	return ok(c, http.StatusOK, echo.Map{
		"receipt_number": p.ReceiptNumber,
		"facility":       tenant.Name,
		"plate_number":   plate,
		"entry_time":     p.EntryTime,
		"exit_time":      p.ExitTime,
		"duration_min":   p.DurationMin,
		"amount":         p.Amount,
		"method":         p.Method,
		"status":         p.Status,
		"issued_at":      p.CreatedAt,
	}, "")
}

// UpdateStatus moves a payment between Pending, Completed and Failed.
func (h *PaymentHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid payment id")
	}
	var req paymentStatusReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if !validPaymentStatus(req.Status) {
		return fail(c, http.StatusBadRequest, "invalid payment status")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Payments.UpdateStatus(ctx, tenant.ID, id, req.Status); err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return fail(c, http.StatusNotFound, "payment not found")
		}
		return fail(c, http.StatusInternalServerError, "could not update payment")
	}
	return ok(c, http.StatusOK, nil, "payment status updated")
}
