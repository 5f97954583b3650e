package middleware

// identity.go defines the typed request identity shared across middleware and
// handlers.  JWTAuth stores an Identity after validating the bearer token;
// ResolveTenant stores the resolved tenant.  Downstream code reads both back
// through the typed accessors instead of poking at raw context keys.

import (
	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/repository"
)

// Identity carries the authenticated caller through the request.
type Identity struct {
	UserID   uint64
	Name     string
	Email    string
	Role     string
	TenantID uint64 // zero for platform accounts
}

const (
	identityKey = "identity"
	tenantKey   = "tenant"
)

// CurrentIdentity returns the identity stored by JWTAuth, if any.
func CurrentIdentity(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// CurrentTenant returns the tenant stored by ResolveTenant, if any.
func CurrentTenant(c echo.Context) (repository.Tenant, bool) {
	t, ok := c.Get(tenantKey).(repository.Tenant)
	return t, ok
}
