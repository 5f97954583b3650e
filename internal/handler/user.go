package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/config"
	"github.com/parkgrid/parkgrid-api/internal/repository"
)

// UserHandler serves staff management inside a tenant.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u}
}

// ----- DTOs -----

type userReq struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	PhoneNumber string `json:"phone_number"`
}

type userPatchReq struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Role        *string `json:"role"`
	Status      *string `json:"status"`
	PhoneNumber *string `json:"phone_number"`
	Password    *string `json:"password"`
}

// Create adds a staff account to the tenant.
func (h *UserHandler) Create(c echo.Context) error {
	var req userReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "name, email and password are required")
	}
	if len(req.Password) < 8 {
		return fail(c, http.StatusBadRequest, "password must be at least 8 characters")
	}
	if req.Role == "" {
		req.Role = repository.RoleViewer
	}
	if !repository.ValidRole(req.Role) {
		return fail(c, http.StatusBadRequest, "invalid role")
	}
	if req.Status == "" {
		req.Status = repository.UserActive
	}

	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	u := repository.User{
		TenantID:    tenant.ID,
		Name:        req.Name,
		Email:       req.Email,
		Role:        req.Role,
		Status:      req.Status,
		PhoneNumber: req.PhoneNumber,
	}
	if err := h.Users.Create(ctx, &u, req.Password, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "email already exists")
		}
		return fail(c, http.StatusInternalServerError, "could not create user")
	}
	return ok(c, http.StatusCreated, u, "user created")
}

// List returns a page of the tenant's users, filterable by role, status and
// a name/email search term.
func (h *UserHandler) List(c echo.Context) error {
	tenant := tenantOf(c)
	page, limit, offset := pageParams(c)

	f := repository.UserFilter{
		Role:   c.QueryParam("role"),
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
		Limit:  limit,
		Offset: offset,
	}
	if f.Role != "" && !repository.ValidRole(f.Role) {
		return fail(c, http.StatusBadRequest, "invalid role")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	users, total, err := h.Users.List(ctx, tenant.ID, f)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return ok(c, http.StatusOK, echo.Map{
		"users":      users,
		"pagination": newPageMeta(page, limit, total),
	}, "")
}

// Get returns one user of the tenant.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetScoped(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}
	return ok(c, http.StatusOK, u, "")
}

// Update patches a user.  Supplying a password resets it.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}
	var req userPatchReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetScoped(ctx, tenant.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return fail(c, http.StatusInternalServerError, "database error")
	}

	if req.Name != nil {
		if *req.Name == "" {
			return fail(c, http.StatusBadRequest, "name cannot be empty")
		}
		u.Name = *req.Name
	}
	if req.Email != nil {
		if *req.Email == "" {
			return fail(c, http.StatusBadRequest, "email cannot be empty")
		}
		u.Email = *req.Email
	}
	if req.Role != nil {
		if !repository.ValidRole(*req.Role) {
			return fail(c, http.StatusBadRequest, "invalid role")
		}
		u.Role = *req.Role
	}
	if req.Status != nil {
		if *req.Status != repository.UserActive && *req.Status != repository.UserInactive {
			return fail(c, http.StatusBadRequest, "invalid status")
		}
		u.Status = *req.Status
	}
	if req.PhoneNumber != nil {
		u.PhoneNumber = *req.PhoneNumber
	}

	if err := h.Users.Update(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "email already exists")
		}
		return fail(c, http.StatusInternalServerError, "could not update user")
	}

	if req.Password != nil {
		if len(*req.Password) < 8 {
			return fail(c, http.StatusBadRequest, "password must be at least 8 characters")
		}
		if err := h.Users.SetPassword(ctx, u.ID, *req.Password, h.Cfg.BcryptCost); err != nil {
			return fail(c, http.StatusInternalServerError, "could not reset password")
		}
	}
	return ok(c, http.StatusOK, u, "user updated")
}

// Delete removes a user.  Accounts cannot delete themselves.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}
	identity := identityOf(c)
	if identity.UserID == id {
		return fail(c, http.StatusConflict, "cannot delete your own account")
	}
	tenant := tenantOf(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, tenant.ID, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return fail(c, http.StatusInternalServerError, "could not delete user")
	}
	return ok(c, http.StatusOK, nil, "user deleted")
}
