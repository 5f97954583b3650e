package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/logger"
	"github.com/parkgrid/parkgrid-api/internal/metrics"
	"github.com/parkgrid/parkgrid-api/internal/queue"
	"github.com/parkgrid/parkgrid-api/internal/repository"
	queue_publisher "github.com/parkgrid/parkgrid-api/internal/service"
	"github.com/parkgrid/parkgrid-api/internal/utils"
)

// VehicleHandler serves the entry/exit gate operations plus vehicle CRUD.
// Entry and exit run as single database transactions so the slot status,
// section counter and vehicle row always move together.
type VehicleHandler struct {
	Vehicles *repository.VehicleRepo
	Slots    *repository.SlotRepo
	Sections *repository.SectionRepo
}

func NewVehicleHandler(v *repository.VehicleRepo, sl *repository.SlotRepo, se *repository.SectionRepo) *VehicleHandler {
	return &VehicleHandler{Vehicles: v, Slots: sl, Sections: se}
}

// ----- DTOs -----

type entryReq struct {
	PlateNumber string `json:"plate_number"`
	VehicleType string `json:"vehicle_type"`
	SlotID      uint64 `json:"slot_id"`     // optional
	AutoAssign  bool   `json:"auto_assign"` // pick the first free slot
	SectionID   uint64 `json:"section_id"`  // narrows auto-assignment
	Color       string `json:"color"`
	Make        string `json:"make"`
	Model       string `json:"model"`
}

type exitReq struct {
	PlateNumber string `json:"plate_number"`
}

type vehiclePatchReq struct {
	PlateNumber *string `json:"plate_number"`
	VehicleType *string `json:"vehicle_type"`
	Color       *string `json:"color"`
	Make        *string `json:"make"`
	Model       *string `json:"model"`
	Year        *uint16 `json:"year"`
	OwnerName   *string `json:"owner_name"`
	OwnerPhone  *string `json:"owner_phone"`
	Notes       *string `json:"notes"`
}

// RegisterEntry records a vehicle entering the facility.  The plate's
// vehicle row and, when a slot is involved, the slot and its section
// availability counter are all written inside one transaction with row
// locks, so two gates racing on the same plate or slot serialize instead
// of double-booking.  A slot is optional: without slot_id or auto_assign
// the vehicle is recorded Parked with no slot touched.
func (h *VehicleHandler) RegisterEntry(c echo.Context) error {
	var req entryReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	req.PlateNumber = normalizePlate(req.PlateNumber)
	if req.PlateNumber == "" {
		return fail(c, http.StatusBadRequest, "plate_number is required")
	}

	tenant := tenantOf(c)
	now := time.Now().UTC()

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.Vehicles.DB().BeginTx(ctx, nil)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "database error")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	existing, err := h.Vehicles.GetByPlateTx(ctx, tx, tenant.ID, req.PlateNumber)
	known := err == nil
	if err != nil && !errors.Is(err, repository.ErrVehicleNotFound) {
		return fail(c, http.StatusInternalServerError, "database error")
	}
	if known && existing.Status == repository.VehicleParked {
		return fail(c, http.StatusConflict, repository.ErrAlreadyParked.Error())
	}

	// A named slot is validated and locked; auto_assign picks the first
	// free one.  With neither, the vehicle parks slotless and only the
	// plate bookkeeping is written.
	var (
		slot    repository.Slot
		hasSlot bool
	)
	switch {
	case req.SlotID != 0:
		slot, err = h.Slots.GetByIDTx(ctx, tx, tenant.ID, req.SlotID)
		if err != nil {
			if errors.Is(err, repository.ErrSlotNotFound) {
				return fail(c, http.StatusNotFound, "parking slot not found")
			}
			return fail(c, http.StatusInternalServerError, "database error")
		}
		if slot.Status != repository.SlotAvailable {
			return fail(c, http.StatusConflict, repository.ErrSlotNotAvailable.Error())
		}
		hasSlot = true
	case req.AutoAssign || req.SectionID != 0:
		slot, err = h.Slots.FirstAvailableTx(ctx, tx, tenant.ID, req.SectionID)
		if err != nil {
			if errors.Is(err, repository.ErrSlotNotFound) {
				return fail(c, http.StatusConflict, "no available parking slots")
			}
			return fail(c, http.StatusInternalServerError, "database error")
		}
		hasSlot = true
	}

	vtype := req.VehicleType
	if vtype == "" {
		if known && existing.Type != "" {
			vtype = existing.Type
		} else {
			vtype = repository.DefaultVehicleType
		}
	}

	var vehicle repository.Vehicle
	if known {
		if err := h.Vehicles.ReenterTx(ctx, tx, existing.ID, now, slot.ID, vtype); err != nil {
			return fail(c, http.StatusInternalServerError, "could not record entry")
		}
		vehicle = existing
		vehicle.Type = vtype
		vehicle.Status = repository.VehicleParked
		vehicle.EntryTime = &now
		vehicle.ExitTime = nil
		vehicle.SlotID = slot.ID
	} else {
		vehicle = repository.Vehicle{
			TenantID:    tenant.ID,
			PlateNumber: req.PlateNumber,
			Type:        vtype,
			Status:      repository.VehicleParked,
			EntryTime:   &now,
			SlotID:      slot.ID,
			Color:       req.Color,
			Make:        req.Make,
			Model:       req.Model,
		}
		if err := h.Vehicles.CreateTx(ctx, tx, &vehicle); err != nil {
			if errors.Is(err, repository.ErrPlateExists) {
				return fail(c, http.StatusConflict, repository.ErrAlreadyParked.Error())
			}
			return fail(c, http.StatusInternalServerError, "could not record entry")
		}
	}

	if hasSlot {
		if err := h.Slots.OccupyTx(ctx, tx, tenant.ID, slot.ID, vehicle.ID); err != nil {
			return fail(c, http.StatusInternalServerError, "could not occupy slot")
		}
		if err := h.Sections.DecrementAvailableTx(ctx, tx, tenant.ID, slot.SectionID); err != nil {
			return fail(c, http.StatusInternalServerError, "could not update section availability")
		}
	}

	if err := tx.Commit(); err != nil {
		return fail(c, http.StatusInternalServerError, "could not record entry")
	}
	committed = true

	metrics.VehicleEntries.Inc()
	publishActivity(queue.ActivityEvent{
		Type:        queue.EventVehicleEntered,
		TenantID:    tenant.ID,
		VehicleID:   vehicle.ID,
		PlateNumber: vehicle.PlateNumber,
		SlotID:      slot.ID,
		SectionID:   slot.SectionID,
		OccurredAt:  now.Format(time.RFC3339),
	})

	resp := echo.Map{"vehicle": vehicle}
	if hasSlot {
		resp["slot"] = slot.Name
	}
	return ok(c, http.StatusCreated, resp, "entry recorded")
}

// RegisterExit records a vehicle leaving.  Like entry it is one transaction:
// the parked vehicle row is closed, its slot released and the section
// counter returned.
func (h *VehicleHandler) RegisterExit(c echo.Context) error {
	var req exitReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	req.PlateNumber = normalizePlate(req.PlateNumber)
	if req.PlateNumber == "" {
		return fail(c, http.StatusBadRequest, "plate_number is required")
	}

	tenant := tenantOf(c)
	now := time.Now().UTC()

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.Vehicles.DB().BeginTx(ctx, nil)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "database error")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	vehicle, err := h.Vehicles.GetParkedByPlateTx(ctx, tx, tenant.ID, req.PlateNumber)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotParked) {
			return fail(c, http.StatusNotFound, err.Error())
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}

	var sectionID uint64
	if vehicle.SlotID != 0 {
		slot, err := h.Slots.GetByIDTx(ctx, tx, tenant.ID, vehicle.SlotID)
		if err != nil && !errors.Is(err, repository.ErrSlotNotFound) {
			return fail(c, http.StatusInternalServerError, "database error")
		}
		if err == nil {
			sectionID = slot.SectionID
			if err := h.Slots.ReleaseTx(ctx, tx, tenant.ID, slot.ID); err != nil {
				return fail(c, http.StatusInternalServerError, "could not release slot")
			}
			if err := h.Sections.IncrementAvailableTx(ctx, tx, tenant.ID, slot.SectionID); err != nil {
				return fail(c, http.StatusInternalServerError, "could not update section availability")
			}
		}
	}

	if err := h.Vehicles.MarkExitedTx(ctx, tx, vehicle.ID, now); err != nil {
		return fail(c, http.StatusInternalServerError, "could not record exit")
	}

	if err := tx.Commit(); err != nil {
		return fail(c, http.StatusInternalServerError, "could not record exit")
	}
	committed = true

	var duration int64
	if vehicle.EntryTime != nil {
		duration = utils.DurationMinutes(*vehicle.EntryTime, now)
	}
	vehicle.Status = repository.VehicleExited
	vehicle.ExitTime = &now

	metrics.VehicleExits.Inc()
	publishActivity(queue.ActivityEvent{
		Type:        queue.EventVehicleExited,
		TenantID:    tenant.ID,
		VehicleID:   vehicle.ID,
		PlateNumber: vehicle.PlateNumber,
		SectionID:   sectionID,
		DurationMin: duration,
		OccurredAt:  now.Format(time.RFC3339),
	})

	return ok(c, http.StatusOK, echo.Map{
		"vehicle":      vehicle,
		"duration_min": duration,
	}, "exit recorded")
}

// List returns all vehicles of the tenant.
func (h *VehicleHandler) List(c echo.Context) error {
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	vehicles, err := h.Vehicles.List(ctx, tenant.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "database error")
	}
	if vehicles == nil {
		vehicles = []repository.Vehicle{}
	}
	return ok(c, http.StatusOK, vehicles, "")
}

// Get returns one vehicle by id.
func (h *VehicleHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid vehicle id")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	v, err := h.Vehicles.GetByID(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return fail(c, http.StatusNotFound, "vehicle not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return ok(c, http.StatusOK, v, "")
}

// GetByPlate returns one vehicle by its plate number.
func (h *VehicleHandler) GetByPlate(c echo.Context) error {
	plate := normalizePlate(c.Param("plate"))
	if plate == "" {
		return fail(c, http.StatusBadRequest, "plate is required")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	v, err := h.Vehicles.GetByPlate(ctx, tenant.ID, plate)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return fail(c, http.StatusNotFound, "vehicle not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return ok(c, http.StatusOK, v, "")
}

// Update patches descriptive vehicle fields.  Occupancy state (status,
// times, slot) is only ever changed by the entry/exit operations.
func (h *VehicleHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid vehicle id")
	}
	var req vehiclePatchReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	v, err := h.Vehicles.GetByID(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return fail(c, http.StatusNotFound, "vehicle not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}

	if req.PlateNumber != nil {
		p := normalizePlate(*req.PlateNumber)
		if p == "" {
			return fail(c, http.StatusBadRequest, "plate_number cannot be empty")
		}
		v.PlateNumber = p
	}
	if req.VehicleType != nil {
		v.Type = *req.VehicleType
	}
	if req.Color != nil {
		v.Color = *req.Color
	}
	if req.Make != nil {
		v.Make = *req.Make
	}
	if req.Model != nil {
		v.Model = *req.Model
	}
	if req.Year != nil {
		v.Year = *req.Year
	}
	if req.OwnerName != nil {
		v.OwnerName = *req.OwnerName
	}
	if req.OwnerPhone != nil {
		v.OwnerPhone = *req.OwnerPhone
	}
	if req.Notes != nil {
		v.Notes = *req.Notes
	}

	if err := h.Vehicles.Update(ctx, &v); err != nil {
		if errors.Is(err, repository.ErrPlateExists) {
			return fail(c, http.StatusConflict, "plate number already registered")
		}
		return fail(c, http.StatusInternalServerError, "could not update vehicle")
	}
	return ok(c, http.StatusOK, v, "vehicle updated")
}

// publishActivity sends an event to the broker without blocking the request.
func publishActivity(ev queue.ActivityEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queue_publisher.PublishActivity(ctx, ev); err != nil {
			logger.S().Warnw("publish activity event failed", "type", ev.Type, "err", err)
		}
	}()
}
