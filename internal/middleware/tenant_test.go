package middleware

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkgrid/parkgrid-api/internal/repository"
)

func tenantMockRow(id uint64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "domain", "plan", "status", "contact_email", "contact_phone",
		"api_key", "created_at", "updated_at",
	}).AddRow(id, "Acme Parking", "acme.example.com", "Basic", status, "ops@acme.example.com", "", "key-1", now, now)
}

func resolveWith(t *testing.T, rows *sqlmock.Rows, identity *Identity, header http.Header) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,name,domain,plan,status,contact_email,contact_phone,api_key,created_at,updated_at FROM tenants WHERE id=? LIMIT 1")).
		WillReturnRows(rows)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/parking/sections", nil)
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if identity != nil {
		c.Set(identityKey, *identity)
	}

	called := false
	h := ResolveTenant(repository.NewTenantRepo(db))(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, called
}

func TestResolveTenantByHeader(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("x-tenant-id", "3")
	id := Identity{UserID: 1, Role: repository.RoleAdmin, TenantID: 3}

	rec, called := resolveWith(t, tenantMockRow(3, repository.TenantActive), &id, hdr)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResolveTenantSuspendedRejected(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("x-tenant-id", "3")
	id := Identity{UserID: 1, Role: repository.RoleAdmin, TenantID: 3}

	rec, called := resolveWith(t, tenantMockRow(3, repository.TenantSuspended), &id, hdr)
	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "tenant account is suspended")
}

func TestResolveTenantTrialAllowed(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("x-tenant-id", "3")
	id := Identity{UserID: 1, Role: repository.RoleGatekeeper, TenantID: 3}

	rec, called := resolveWith(t, tenantMockRow(3, repository.TenantTrial), &id, hdr)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResolveTenantCrossTenantRejected(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("x-tenant-id", "3")
	id := Identity{UserID: 1, Role: repository.RoleAdmin, TenantID: 9}

	rec, called := resolveWith(t, tenantMockRow(3, repository.TenantActive), &id, hdr)
	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResolveTenantSuperAdminBypassesTenantMatch(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("x-tenant-id", "3")
	id := Identity{UserID: 1, Role: repository.RoleSuperAdmin, TenantID: 0}

	rec, called := resolveWith(t, tenantMockRow(3, repository.TenantActive), &id, hdr)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePlanRanksPlans(t *testing.T) {
	e := echo.New()

	run := func(plan string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(tenantKey, repository.Tenant{ID: 3, Plan: plan, Status: repository.TenantActive})

		h := RequirePlan("Basic")(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, h(c))
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, run("Free"))
	assert.Equal(t, http.StatusOK, run("Basic"))
	assert.Equal(t, http.StatusOK, run("Enterprise"))
	assert.Equal(t, http.StatusForbidden, run("Unknown"))
}
