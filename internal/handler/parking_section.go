package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/repository"
)

// ParkingHandler serves the parking inventory: sections and their slots.
type ParkingHandler struct {
	Sections *repository.SectionRepo
	Slots    *repository.SlotRepo
}

func NewParkingHandler(se *repository.SectionRepo, sl *repository.SlotRepo) *ParkingHandler {
	return &ParkingHandler{Sections: se, Slots: sl}
}

// ----- DTOs -----

type sectionReq struct {
	Name     string `json:"name"`
	Floor    string `json:"floor"`
	Capacity uint32 `json:"capacity"`
	Status   string `json:"status"`
}

type sectionPatchReq struct {
	Name     *string `json:"name"`
	Floor    *string `json:"floor"`
	Capacity *uint32 `json:"capacity"`
	Status   *string `json:"status"`
}

// sectionResp augments the stored section with live occupancy.
type sectionResp struct {
	repository.Section
	Occupied int `json:"occupied"`
}

// CreateSection adds a section; its availability starts at full capacity.
func (h *ParkingHandler) CreateSection(c echo.Context) error {
	var req sectionReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fail(c, http.StatusBadRequest, "name is required")
	}
	if req.Capacity == 0 {
		return fail(c, http.StatusBadRequest, "capacity must be at least 1")
	}
	if req.Status == "" {
		req.Status = "Active"
	}

	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	s := repository.Section{
		TenantID: tenant.ID,
		Name:     req.Name,
		Floor:    req.Floor,
		Capacity: req.Capacity,
		Status:   req.Status,
	}
	if err := h.Sections.Create(ctx, &s); err != nil {
		if errors.Is(err, repository.ErrSectionExists) {
			return fail(c, http.StatusConflict, "section name already exists")
		}
		return fail(c, http.StatusInternalServerError, "could not create section")
	}
	return ok(c, http.StatusCreated, s, "section created")
}

// ListSections returns all sections of the tenant.
func (h *ParkingHandler) ListSections(c echo.Context) error {
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	sections, err := h.Sections.List(ctx, tenant.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "database error")
	}
	if sections == nil {
		sections = []repository.Section{}
	}
	return ok(c, http.StatusOK, sections, "")
}

// GetSection returns one section with its slots and live occupancy.
func (h *ParkingHandler) GetSection(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid section id")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sections.GetByID(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrSectionNotFound) {
			return fail(c, http.StatusNotFound, "parking section not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	slots, err := h.Slots.ListBySection(ctx, tenant.ID, s.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "database error")
	}
	occupied, err := h.Slots.CountOccupied(ctx, tenant.ID, s.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "database error")
	}
	if slots == nil {
		slots = []repository.Slot{}
	}
	return ok(c, http.StatusOK, echo.Map{
		"section": sectionResp{Section: s, Occupied: occupied},
		"slots":   slots,
	}, "")
}

// UpdateSection patches a section.  Shrinking capacity below the number of
// occupied slots is refused; the availability counter is re-based against
// the new capacity otherwise.
func (h *ParkingHandler) UpdateSection(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid section id")
	}
	var req sectionPatchReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sections.GetByID(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrSectionNotFound) {
			return fail(c, http.StatusNotFound, "parking section not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}

	if req.Name != nil {
		if *req.Name == "" {
			return fail(c, http.StatusBadRequest, "name cannot be empty")
		}
		s.Name = *req.Name
	}
	if req.Floor != nil {
		s.Floor = *req.Floor
	}
	if req.Status != nil {
		s.Status = *req.Status
	}
	if req.Capacity != nil && *req.Capacity != s.Capacity {
		if *req.Capacity == 0 {
			return fail(c, http.StatusBadRequest, "capacity must be at least 1")
		}
		occupied, err := h.Slots.CountOccupied(ctx, tenant.ID, s.ID)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "database error")
		}
		if int(*req.Capacity) < occupied {
			return fail(c, http.StatusConflict, repository.ErrCapacityBelowOccupancy.Error())
		}
		s.Capacity = *req.Capacity
		s.Available = *req.Capacity - uint32(occupied)
	}

	if err := h.Sections.Update(ctx, &s); err != nil {
		if errors.Is(err, repository.ErrSectionExists) {
			return fail(c, http.StatusConflict, "section name already exists")
		}
		return fail(c, http.StatusInternalServerError, "could not update section")
	}
	return ok(c, http.StatusOK, s, "section updated")
}

// DeleteSection removes a section and its slots unless any slot is occupied.
func (h *ParkingHandler) DeleteSection(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid section id")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Sections.Delete(ctx, tenant.ID, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrSectionNotFound):
			return fail(c, http.StatusNotFound, "parking section not found")
		case errors.Is(err, repository.ErrSectionOccupied):
			return fail(c, http.StatusConflict, "section has occupied slots")
		}
		return fail(c, http.StatusInternalServerError, "could not delete section")
	}
	return ok(c, http.StatusOK, nil, "section deleted")
}
