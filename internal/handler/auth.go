package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/config"
	"github.com/parkgrid/parkgrid-api/internal/logger"
	"github.com/parkgrid/parkgrid-api/internal/metrics"
	"github.com/parkgrid/parkgrid-api/internal/repository"
	"github.com/parkgrid/parkgrid-api/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Tenants  *repository.TenantRepo
	Settings *repository.SettingRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TenantRepo, s *repository.SettingRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tenants: t, Settings: s}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerReq struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	CompanyName  string `json:"company_name"`
	Domain       string `json:"domain"`
	ContactPhone string `json:"contact_phone"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type loginResp struct {
	Token string          `json:"token"`
	User  repository.User `json:"user"`
}

// Login verifies credentials and returns a signed session token.  Failures
// are answered uniformly so the endpoint does not leak which part was wrong.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email and password are required")
	}

	metrics.LoginAttempts.Inc()

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			metrics.LoginFailures.Inc()
			return fail(c, http.StatusUnauthorized, "invalid email or password")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		metrics.LoginFailures.Inc()
		return fail(c, http.StatusUnauthorized, "invalid email or password")
	}
	if u.Status != repository.UserActive {
		metrics.LoginFailures.Inc()
		return fail(c, http.StatusForbidden, "account is inactive")
	}

	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, u.ID, u.Role, u.TenantID, h.Cfg.TokenTTLHours)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "could not issue token")
	}
	if err := h.Users.TouchLastActive(ctx, u.ID); err != nil {
		logger.S().Warnw("touch last_active failed", "user_id", u.ID, "err", err)
	}

	return ok(c, http.StatusOK, loginResp{Token: tok.Token, User: u}, "login successful")
}

// Register provisions a new tenant together with its first SuperAdmin user
// and a default settings document.  It is the only unauthenticated write in
// the API.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Domain = strings.ToLower(strings.TrimSpace(req.Domain))
	if req.Name == "" || req.Email == "" || req.Password == "" || req.CompanyName == "" || req.Domain == "" {
		return fail(c, http.StatusBadRequest, "name, email, password, company_name and domain are required")
	}
	if len(req.Password) < 8 {
		return fail(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tenant := repository.Tenant{
		Name:         req.CompanyName,
		Domain:       req.Domain,
		Plan:         "Free",
		Status:       repository.TenantTrial,
		ContactEmail: req.Email,
		ContactPhone: req.ContactPhone,
		APIKey:       uuid.NewString(),
	}
	if err := h.Tenants.Create(ctx, &tenant); err != nil {
		if errors.Is(err, repository.ErrDomainExists) {
			return fail(c, http.StatusConflict, "domain already in use")
		}
		return fail(c, http.StatusInternalServerError, "could not create tenant")
	}

	user := repository.User{
		TenantID: tenant.ID,
		Name:     req.Name,
		Email:    req.Email,
		Role:     repository.RoleSuperAdmin,
		Status:   repository.UserActive,
	}
	if err := h.Users.Create(ctx, &user, req.Password, h.Cfg.BcryptCost); err != nil {
		// roll the tenant back so the domain is not burned by a half-done signup
		_ = h.Tenants.Delete(ctx, tenant.ID)
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "email already exists")
		}
		return fail(c, http.StatusInternalServerError, "could not create user")
	}

	if err := h.Settings.Upsert(ctx, tenant.ID, repository.DefaultSettings(tenant.Name, tenant.ContactEmail)); err != nil {
		logger.S().Warnw("seed default settings failed", "tenant_id", tenant.ID, "err", err)
	}

	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, user.ID, user.Role, user.TenantID, h.Cfg.TokenTTLHours)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "could not issue token")
	}

	return ok(c, http.StatusCreated, echo.Map{
		"token":  tok.Token,
		"user":   user,
		"tenant": tenant,
	}, "registration successful")
}

// Profile returns the authenticated user's record.
func (h *AuthHandler) Profile(c echo.Context) error {
	id := identityOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return ok(c, http.StatusOK, u, "")
}

// ChangePassword verifies the current password and stores a new hash.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fail(c, http.StatusBadRequest, "current_password and new_password are required")
	}
	if len(req.NewPassword) < 8 {
		return fail(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	id := identityOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "database error")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return fail(c, http.StatusUnauthorized, "current password is incorrect")
	}
	if err := h.Users.SetPassword(ctx, u.ID, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return fail(c, http.StatusInternalServerError, "could not update password")
	}
	return ok(c, http.StatusOK, nil, "password updated")
}
