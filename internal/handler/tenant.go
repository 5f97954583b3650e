package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/repository"
)

// TenantHandler serves the platform-level tenant administration endpoints.
// All of them except Current are restricted to SuperAdmin accounts.
type TenantHandler struct {
	Tenants  *repository.TenantRepo
	Settings *repository.SettingRepo
}

func NewTenantHandler(t *repository.TenantRepo, s *repository.SettingRepo) *TenantHandler {
	return &TenantHandler{Tenants: t, Settings: s}
}

// ----- DTOs -----

type tenantReq struct {
	Name         string `json:"name"`
	Domain       string `json:"domain"`
	Plan         string `json:"plan"`
	Status       string `json:"status"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
}

type tenantPatchReq struct {
	Name         *string `json:"name"`
	Domain       *string `json:"domain"`
	Plan         *string `json:"plan"`
	Status       *string `json:"status"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
}

func validTenantStatus(s string) bool {
	switch s {
	case repository.TenantActive, repository.TenantInactive, repository.TenantSuspended, repository.TenantTrial:
		return true
	}
	return false
}

// Create provisions a tenant with a fresh API key and default settings.
func (h *TenantHandler) Create(c echo.Context) error {
	var req tenantReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Domain == "" {
		return fail(c, http.StatusBadRequest, "name and domain are required")
	}
	if req.Plan == "" {
		req.Plan = "Free"
	}
	if req.Status == "" {
		req.Status = repository.TenantActive
	}
	if !validTenantStatus(req.Status) {
		return fail(c, http.StatusBadRequest, "invalid tenant status")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t := repository.Tenant{
		Name:         req.Name,
		Domain:       req.Domain,
		Plan:         req.Plan,
		Status:       req.Status,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		APIKey:       uuid.NewString(),
	}
	if err := h.Tenants.Create(ctx, &t); err != nil {
		if errors.Is(err, repository.ErrDomainExists) {
			return fail(c, http.StatusConflict, "domain already in use")
		}
		return fail(c, http.StatusInternalServerError, "could not create tenant")
	}
	if err := h.Settings.Upsert(ctx, t.ID, repository.DefaultSettings(t.Name, t.ContactEmail)); err != nil {
		return fail(c, http.StatusInternalServerError, "could not seed settings")
	}

	// the API key is shown once, on creation
	return ok(c, http.StatusCreated, echo.Map{
		"tenant":  t,
		"api_key": t.APIKey,
	}, "tenant created")
}

// List returns a page of tenants.
func (h *TenantHandler) List(c echo.Context) error {
	page, limit, offset := pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	tenants, total, err := h.Tenants.List(ctx, limit, offset)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return ok(c, http.StatusOK, echo.Map{
		"tenants":    tenants,
		"pagination": newPageMeta(page, limit, total),
	}, "")
}

// Get returns one tenant.
func (h *TenantHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid tenant id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return fail(c, http.StatusNotFound, "tenant not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return ok(c, http.StatusOK, t, "")
}

// Current returns the tenant resolved for this request.
func (h *TenantHandler) Current(c echo.Context) error {
	return ok(c, http.StatusOK, tenantOf(c), "")
}

// Update patches a tenant.
func (h *TenantHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid tenant id")
	}
	var req tenantPatchReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return fail(c, http.StatusNotFound, "tenant not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}

	if req.Name != nil {
		if *req.Name == "" {
			return fail(c, http.StatusBadRequest, "name cannot be empty")
		}
		t.Name = *req.Name
	}
	if req.Domain != nil {
		if *req.Domain == "" {
			return fail(c, http.StatusBadRequest, "domain cannot be empty")
		}
		t.Domain = *req.Domain
	}
	if req.Plan != nil {
		t.Plan = *req.Plan
	}
	if req.Status != nil {
		if !validTenantStatus(*req.Status) {
			return fail(c, http.StatusBadRequest, "invalid tenant status")
		}
		t.Status = *req.Status
	}
	if req.ContactEmail != nil {
		t.ContactEmail = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		t.ContactPhone = *req.ContactPhone
	}

	if err := h.Tenants.Update(ctx, &t); err != nil {
		switch {
		case errors.Is(err, repository.ErrDomainExists):
			return fail(c, http.StatusConflict, "domain already in use")
		case errors.Is(err, repository.ErrTenantNotFound):
			return fail(c, http.StatusNotFound, "tenant not found")
		}
		return fail(c, http.StatusInternalServerError, "could not update tenant")
	}
	return ok(c, http.StatusOK, t, "tenant updated")
}

// RotateAPIKey replaces the tenant's API key and returns the new value.
func (h *TenantHandler) RotateAPIKey(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid tenant id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	key := uuid.NewString()
	if err := h.Tenants.RotateAPIKey(ctx, id, key); err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return fail(c, http.StatusNotFound, "tenant not found")
		}
		return fail(c, http.StatusInternalServerError, "could not rotate api key")
	}
	return ok(c, http.StatusOK, echo.Map{"api_key": key}, "api key rotated")
}

// Delete removes a tenant and its settings document.
func (h *TenantHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid tenant id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tenants.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return fail(c, http.StatusNotFound, "tenant not found")
		}
		return fail(c, http.StatusInternalServerError, "could not delete tenant")
	}
	return ok(c, http.StatusOK, nil, "tenant deleted")
}
