package middleware

// tenant.go resolves the acting tenant for tenant-scoped routes.  The
// resolution order is: explicit x-tenant-id header, x-api-key header, then
// the request hostname matched against tenant domains.  The resolved tenant
// is attached to the request context for downstream components; callers
// whose identity belongs to a different tenant are rejected unless they are
// platform (SuperAdmin) accounts.

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/repository"
)

// ResolveTenant returns the tenant-resolution middleware.  It requires the
// tenants repository for lookups and assumes JWTAuth ran earlier when the
// route is authenticated.
func ResolveTenant(tenants *repository.TenantRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			tenantID := r.Header.Get("x-tenant-id")
			apiKey := r.Header.Get("x-api-key")
			host := r.Host
			if i := strings.IndexByte(host, ':'); i >= 0 {
				host = host[:i]
			}

			if tenantID == "" && apiKey == "" && host == "" {
				return authErr(c, http.StatusBadRequest, "tenant identifier is required")
			}

			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			var (
				t   repository.Tenant
				err error
			)
			switch {
			case tenantID != "":
				id, perr := strconv.ParseUint(tenantID, 10, 64)
				if perr != nil {
					return authErr(c, http.StatusBadRequest, "invalid tenant id")
				}
				t, err = tenants.GetByID(ctx, id)
			case apiKey != "":
				t, err = tenants.GetByAPIKey(ctx, apiKey)
			default:
				t, err = tenants.GetByDomain(ctx, host)
			}
			if err != nil {
				if errors.Is(err, repository.ErrTenantNotFound) {
					return authErr(c, http.StatusNotFound, "tenant not found")
				}
				return authErr(c, http.StatusInternalServerError, "database error")
			}

			if t.Status != repository.TenantActive && t.Status != repository.TenantTrial {
				return authErr(c, http.StatusForbidden,
					"tenant account is "+strings.ToLower(t.Status))
			}

			// Platform accounts may act across tenants; everyone else must
			// belong to the tenant they are addressing.
			if id, ok := CurrentIdentity(c); ok && id.Role != repository.RoleSuperAdmin && id.TenantID != t.ID {
				return authErr(c, http.StatusForbidden, "user does not belong to this tenant")
			}

			c.Set(tenantKey, t)
			return next(c)
		}
	}
}

// RequirePlan gates a route on the tenant's subscription plan.  Plans form
// a simple hierarchy; unknown plans rank lowest.
func RequirePlan(required string) echo.MiddlewareFunc {
	rank := map[string]int{
		"Free":       0,
		"Basic":      1,
		"Premium":    2,
		"Enterprise": 3,
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			t, ok := CurrentTenant(c)
			if !ok {
				return authErr(c, http.StatusBadRequest, "tenant information is missing")
			}
			if rank[t.Plan] < rank[required] {
				return authErr(c, http.StatusForbidden,
					"this feature requires a "+required+" plan or higher")
			}
			return next(c)
		}
	}
}
