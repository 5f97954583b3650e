package router

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkgrid/parkgrid-api/internal/config"
	"github.com/parkgrid/parkgrid-api/internal/handler"
	"github.com/parkgrid/parkgrid-api/internal/repository"
	"github.com/parkgrid/parkgrid-api/internal/utils"
)

func newFacilityServer(db *sql.DB) *echo.Echo {
	users := repository.NewUserRepo(db)
	tenants := repository.NewTenantRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	slots := repository.NewSlotRepo(db)
	sections := repository.NewSectionRepo(db)
	payments := repository.NewPaymentRepo(db)
	reports := repository.NewReportRepo(db)
	settings := repository.NewSettingRepo(db)

	h := FacilityHandlers{
		Users:    handler.NewUserHandler(config.Config{}, users),
		Vehicles: handler.NewVehicleHandler(vehicles, slots, sections),
		Parking:  handler.NewParkingHandler(sections, slots),
		Payments: handler.NewPaymentHandler(payments, vehicles, settings),
		Reports:  handler.NewReportHandler(reports, vehicles, payments, sections),
		Settings: handler.NewSettingHandler(settings),
	}

	e := echo.New()
	RegisterFacility(e, h, "test-secret", users, tenants, config.CacheConfig{}, nil)
	return e
}

func expectIdentity(mock sqlmock.Sqlmock, role string) {
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=? LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "name", "email", "password_hash", "role", "status",
			"phone_number", "last_active", "created_at", "updated_at",
		}).AddRow(9, 3, "Gate Staff", "gate@acme.example.com", "x", role, repository.UserActive,
			"", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tenants WHERE id=? LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "domain", "plan", "status", "contact_email", "contact_phone",
			"api_key", "created_at", "updated_at",
		}).AddRow(3, "Acme Parking", "acme.example.com", "Basic", repository.TenantActive,
			"ops@acme.example.com", "", "key-1", now, now))
}

func vehiclesRequest(t *testing.T, e *echo.Echo, role string) *httptest.ResponseRecorder {
	t.Helper()
	tok, err := utils.NewSessionToken("test-secret", 9, role, 3, 1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/vehicles", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	req.Header.Set("x-tenant-id", "3")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestVehicleReadsForbiddenForViewer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectIdentity(mock, repository.RoleViewer)

	rec := vehiclesRequest(t, newFacilityServer(db), repository.RoleViewer)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleReadsAllowedForGatekeeper(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectIdentity(mock, repository.RoleGatekeeper)
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE tenant_id=? ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := vehiclesRequest(t, newFacilityServer(db), repository.RoleGatekeeper)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
