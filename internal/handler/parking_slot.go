package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/repository"
)

type slotReq struct {
	SectionID uint64 `json:"section_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Reserved  bool   `json:"reserved"`
}

type slotPatchReq struct {
	SectionID *uint64 `json:"section_id"`
	Name      *string `json:"name"`
	Type      *string `json:"type"`
	Status    *string `json:"status"`
	Reserved  *bool   `json:"reserved"`
}

// CreateSlot adds a slot to a section.  New slots start Available.
func (h *ParkingHandler) CreateSlot(c echo.Context) error {
	var req slotReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.SectionID == 0 || req.Name == "" {
		return fail(c, http.StatusBadRequest, "section_id and name are required")
	}
	if req.Type == "" {
		req.Type = "Standard"
	}

	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Sections.GetByID(ctx, tenant.ID, req.SectionID); err != nil {
		if errors.Is(err, repository.ErrSectionNotFound) {
			return fail(c, http.StatusNotFound, "parking section not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}

	s := repository.Slot{
		TenantID:  tenant.ID,
		SectionID: req.SectionID,
		Name:      req.Name,
		Type:      req.Type,
		Status:    repository.SlotAvailable,
		Reserved:  req.Reserved,
	}
	if err := h.Slots.Create(ctx, &s); err != nil {
		if errors.Is(err, repository.ErrSlotExists) {
			return fail(c, http.StatusConflict, "slot name already exists")
		}
		return fail(c, http.StatusInternalServerError, "could not create slot")
	}
	return ok(c, http.StatusCreated, s, "slot created")
}

// ListSlots returns the tenant's slots, filterable by section, status, type
// and reserved flag via query parameters.
func (h *ParkingHandler) ListSlots(c echo.Context) error {
	tenant := tenantOf(c)

	var f repository.SlotFilter
	if v := c.QueryParam("section_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid section_id")
		}
		f.SectionID = id
	}
	f.Status = c.QueryParam("status")
	f.Type = c.QueryParam("type")
	if v := c.QueryParam("reserved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid reserved flag")
		}
		f.Reserved = &b
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	slots, err := h.Slots.List(ctx, tenant.ID, f)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "database error")
	}
	if slots == nil {
		slots = []repository.Slot{}
	}
	return ok(c, http.StatusOK, slots, "")
}

// GetSlot returns one slot.
func (h *ParkingHandler) GetSlot(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid slot id")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Slots.GetByID(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return fail(c, http.StatusNotFound, "parking slot not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return ok(c, http.StatusOK, s, "")
}

// UpdateSlot patches a slot.  Flipping status to Occupied by hand is
// refused, occupancy only moves through entry and exit; an occupied slot
// cannot be moved to another section.
func (h *ParkingHandler) UpdateSlot(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid slot id")
	}
	var req slotPatchReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Slots.GetByID(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return fail(c, http.StatusNotFound, "parking slot not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}

	if req.Status != nil && *req.Status != s.Status {
		switch *req.Status {
		case repository.SlotAvailable, repository.SlotMaintenance:
			if s.Status == repository.SlotOccupied {
				return fail(c, http.StatusConflict, "parking slot is occupied")
			}
			s.Status = *req.Status
		case repository.SlotOccupied:
			return fail(c, http.StatusConflict, repository.ErrOccupyWithoutVehicle.Error())
		default:
			return fail(c, http.StatusBadRequest, "invalid slot status")
		}
	}
	if req.SectionID != nil && *req.SectionID != s.SectionID {
		if s.Status == repository.SlotOccupied {
			return fail(c, http.StatusConflict, "parking slot is occupied")
		}
		if _, err := h.Sections.GetByID(ctx, tenant.ID, *req.SectionID); err != nil {
			if errors.Is(err, repository.ErrSectionNotFound) {
				return fail(c, http.StatusNotFound, "parking section not found")
			}
			return fail(c, http.StatusInternalServerError, "database error")
		}
		s.SectionID = *req.SectionID
	}
	if req.Name != nil {
		if *req.Name == "" {
			return fail(c, http.StatusBadRequest, "name cannot be empty")
		}
		s.Name = *req.Name
	}
	if req.Type != nil {
		s.Type = *req.Type
	}
	if req.Reserved != nil {
		s.Reserved = *req.Reserved
	}

	if err := h.Slots.Update(ctx, &s); err != nil {
		if errors.Is(err, repository.ErrSlotExists) {
			return fail(c, http.StatusConflict, "slot name already exists")
		}
		return fail(c, http.StatusInternalServerError, "could not update slot")
	}
	return ok(c, http.StatusOK, s, "slot updated")
}

// DeleteSlot removes a slot unless it currently holds a vehicle.
func (h *ParkingHandler) DeleteSlot(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid slot id")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Slots.Delete(ctx, tenant.ID, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotNotFound):
			return fail(c, http.StatusNotFound, "parking slot not found")
		case errors.Is(err, repository.ErrSlotOccupied):
			return fail(c, http.StatusConflict, "parking slot is occupied")
		}
		return fail(c, http.StatusInternalServerError, "could not delete slot")
	}
	return ok(c, http.StatusOK, nil, "slot deleted")
}
