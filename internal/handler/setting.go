package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/repository"
)

// SettingHandler serves the per-tenant settings document.
type SettingHandler struct {
	Settings *repository.SettingRepo
}

func NewSettingHandler(s *repository.SettingRepo) *SettingHandler {
	return &SettingHandler{Settings: s}
}

type settingsPatchReq struct {
	General       *repository.GeneralSettings      `json:"general"`
	Pricing       *repository.PricingSettings      `json:"pricing"`
	API           *repository.APISettings          `json:"api"`
	Notifications *repository.NotificationSettings `json:"notifications"`
}

// Get returns the tenant's settings, falling back to defaults when no
// document was ever written.
func (h *SettingHandler) Get(c echo.Context) error {
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Settings.Get(ctx, tenant.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSettingsNotFound) {
			return ok(c, http.StatusOK, repository.DefaultSettings(tenant.Name, tenant.ContactEmail), "")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return ok(c, http.StatusOK, s, "")
}

// Update replaces the supplied category blocks of the settings document,
// leaving the others untouched.
func (h *SettingHandler) Update(c echo.Context) error {
	var req settingsPatchReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.General == nil && req.Pricing == nil && req.API == nil && req.Notifications == nil {
		return fail(c, http.StatusBadRequest, "at least one settings category is required")
	}
	if req.Pricing != nil && (req.Pricing.HourlyRate < 0 || req.Pricing.DailyMaxRate < 0 || req.Pricing.MonthlyRate < 0) {
		return fail(c, http.StatusBadRequest, "rates cannot be negative")
	}

	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Settings.Get(ctx, tenant.ID)
	if errors.Is(err, repository.ErrSettingsNotFound) {
		s = repository.DefaultSettings(tenant.Name, tenant.ContactEmail)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "database error")
	}

	if req.General != nil {
		s.General = *req.General
	}
	if req.Pricing != nil {
		s.Pricing = *req.Pricing
	}
	if req.API != nil {
		s.API = *req.API
	}
	if req.Notifications != nil {
		s.Notifications = *req.Notifications
	}

	if err := h.Settings.Upsert(ctx, tenant.ID, s); err != nil {
		return fail(c, http.StatusInternalServerError, "could not save settings")
	}
	return ok(c, http.StatusOK, s, "settings updated")
}
