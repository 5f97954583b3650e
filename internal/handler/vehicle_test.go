package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkgrid/parkgrid-api/internal/middleware"
	"github.com/parkgrid/parkgrid-api/internal/repository"
)

func newVehicleHandler(db *sql.DB) *VehicleHandler {
	return NewVehicleHandler(
		repository.NewVehicleRepo(db),
		repository.NewSlotRepo(db),
		repository.NewSectionRepo(db),
	)
}

func facilityContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("tenant", repository.Tenant{ID: 1, Name: "Acme Parking", Plan: "Basic", Status: repository.TenantActive})
	c.Set("identity", middleware.Identity{UserID: 2, Role: repository.RoleGatekeeper, TenantID: 1})
	return c, rec
}

func vehicleTestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "plate_number", "vehicle_type", "status",
		"entry_time", "exit_time", "slot_id", "color", "make", "model",
		"year", "owner_name", "owner_phone", "notes", "created_at", "updated_at",
	})
}

func slotTestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "section_id", "name", "slot_type", "status",
		"reserved", "current_vehicle_id", "created_at", "updated_at",
	})
}

func TestRegisterEntryNewVehicle(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE plate_number=? AND tenant_id=? LIMIT 1 FOR UPDATE")).
		WithArgs("ABC123", uint64(1)).
		WillReturnRows(vehicleTestRows())
	mock.ExpectQuery(regexp.QuoteMeta("FROM parking_slots WHERE id=? AND tenant_id=? LIMIT 1 FOR UPDATE")).
		WithArgs(uint64(12), uint64(1)).
		WillReturnRows(slotTestRows().
			AddRow(12, 1, 4, "A-12", "Standard", repository.SlotAvailable, false, nil, now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vehicles")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE parking_slots SET status='Occupied',current_vehicle_id=? WHERE id=? AND tenant_id=?")).
		WithArgs(uint64(7), uint64(12), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE parking_sections SET available=GREATEST(CAST(available AS SIGNED)-1,0) WHERE id=? AND tenant_id=?")).
		WithArgs(uint64(4), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := facilityContext(http.MethodPost, "/api/vehicles/entry",
		`{"plate_number":"abc123","slot_id":12,"vehicle_type":"SUV"}`)

	h := newVehicleHandler(db)
	require.NoError(t, h.RegisterEntry(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ABC123"`)
	assert.Contains(t, rec.Body.String(), `"A-12"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterEntryAlreadyParked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	entry := now.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE plate_number=? AND tenant_id=? LIMIT 1 FOR UPDATE")).
		WithArgs("ABC123", uint64(1)).
		WillReturnRows(vehicleTestRows().
			AddRow(7, 1, "ABC123", "SUV", repository.VehicleParked, entry, nil, 12, "", "", "", 0, "", "", "", now, now))
	mock.ExpectRollback()

	c, rec := facilityContext(http.MethodPost, "/api/vehicles/entry",
		`{"plate_number":"ABC123","slot_id":12}`)

	h := newVehicleHandler(db)
	require.NoError(t, h.RegisterEntry(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already parked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterEntrySlotNotAvailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE plate_number=? AND tenant_id=? LIMIT 1 FOR UPDATE")).
		WillReturnRows(vehicleTestRows())
	mock.ExpectQuery(regexp.QuoteMeta("FROM parking_slots WHERE id=? AND tenant_id=? LIMIT 1 FOR UPDATE")).
		WillReturnRows(slotTestRows().
			AddRow(12, 1, 4, "A-12", "Standard", repository.SlotMaintenance, false, nil, now, now))
	mock.ExpectRollback()

	c, rec := facilityContext(http.MethodPost, "/api/vehicles/entry",
		`{"plate_number":"NEW111","slot_id":12}`)

	h := newVehicleHandler(db)
	require.NoError(t, h.RegisterEntry(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not available")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterExitRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	entry := now.UTC().Add(-124*time.Minute - 30*time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("AND status='Parked' LIMIT 1 FOR UPDATE")).
		WithArgs("ABC123", uint64(1)).
		WillReturnRows(vehicleTestRows().
			AddRow(7, 1, "ABC123", "SUV", repository.VehicleParked, entry, nil, 12, "", "", "", 0, "", "", "", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM parking_slots WHERE id=? AND tenant_id=? LIMIT 1 FOR UPDATE")).
		WithArgs(uint64(12), uint64(1)).
		WillReturnRows(slotTestRows().
			AddRow(12, 1, 4, "A-12", "Standard", repository.SlotOccupied, false, 7, now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE parking_slots SET status='Available',current_vehicle_id=NULL WHERE id=? AND tenant_id=?")).
		WithArgs(uint64(12), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE parking_sections SET available=LEAST(available+1,capacity) WHERE id=? AND tenant_id=?")).
		WithArgs(uint64(4), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE vehicles SET status='Exited',exit_time=?,slot_id=NULL WHERE id=?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := facilityContext(http.MethodPost, "/api/vehicles/exit", `{"plate_number":"ABC123"}`)

	h := newVehicleHandler(db)
	require.NoError(t, h.RegisterExit(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			DurationMin int64 `json:"duration_min"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(125), body.Data.DurationMin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterEntryWithoutSlot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE plate_number=? AND tenant_id=? LIMIT 1 FOR UPDATE")).
		WithArgs("NOSLOT1", uint64(1)).
		WillReturnRows(vehicleTestRows())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vehicles")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	c, rec := facilityContext(http.MethodPost, "/api/vehicles/entry",
		`{"plate_number":"NOSLOT1"}`)

	h := newVehicleHandler(db)
	require.NoError(t, h.RegisterEntry(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"NOSLOT1"`)
	assert.Contains(t, rec.Body.String(), `"Parked"`)
	assert.NotContains(t, rec.Body.String(), `"slot"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterEntryAutoAssignNoFreeSlots(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE plate_number=? AND tenant_id=? LIMIT 1 FOR UPDATE")).
		WillReturnRows(vehicleTestRows())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY section_id, name LIMIT 1 FOR UPDATE")).
		WillReturnRows(slotTestRows())
	mock.ExpectRollback()

	c, rec := facilityContext(http.MethodPost, "/api/vehicles/entry",
		`{"plate_number":"NOSLOT1","auto_assign":true}`)

	h := newVehicleHandler(db)
	require.NoError(t, h.RegisterEntry(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no available parking slots")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterEntryScopedToTenant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Same plate may be Parked under another tenant; the lookup carries
	// this tenant's id, so the entry goes through untouched.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE plate_number=? AND tenant_id=? LIMIT 1 FOR UPDATE")).
		WithArgs("ABC123", uint64(2)).
		WillReturnRows(vehicleTestRows())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vehicles")).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/vehicles/entry",
		strings.NewReader(`{"plate_number":"ABC123"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("tenant", repository.Tenant{ID: 2, Name: "Borough Garages", Plan: "Basic", Status: repository.TenantActive})
	c.Set("identity", middleware.Identity{UserID: 4, Role: repository.RoleGatekeeper, TenantID: 2})

	h := newVehicleHandler(db)
	require.NoError(t, h.RegisterEntry(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterEntryRollsBackOnFailedWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE plate_number=? AND tenant_id=? LIMIT 1 FOR UPDATE")).
		WillReturnRows(vehicleTestRows())
	mock.ExpectQuery(regexp.QuoteMeta("FROM parking_slots WHERE id=? AND tenant_id=? LIMIT 1 FOR UPDATE")).
		WillReturnRows(slotTestRows().
			AddRow(12, 1, 4, "A-12", "Standard", repository.SlotAvailable, false, nil, now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vehicles")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE parking_slots SET status='Occupied'")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	c, rec := facilityContext(http.MethodPost, "/api/vehicles/entry",
		`{"plate_number":"NEW111","slot_id":12}`)

	h := newVehicleHandler(db)
	require.NoError(t, h.RegisterEntry(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterExitNotParked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("AND status='Parked' LIMIT 1 FOR UPDATE")).
		WillReturnRows(vehicleTestRows())
	mock.ExpectRollback()

	c, rec := facilityContext(http.MethodPost, "/api/vehicles/exit", `{"plate_number":"GONE42"}`)

	h := newVehicleHandler(db)
	require.NoError(t, h.RegisterExit(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no parked vehicle")
	assert.NoError(t, mock.ExpectationsWereMet())
}
