package handler

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkgrid/parkgrid-api/internal/repository"
)

func sectionTestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "floor", "capacity", "available", "status",
		"created_at", "updated_at",
	})
}

func TestUpdateSectionRefusesShrinkBelowOccupancy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM parking_sections WHERE id=? AND tenant_id=? LIMIT 1")).
		WithArgs(uint64(4), uint64(1)).
		WillReturnRows(sectionTestRows().AddRow(4, 1, "Level A", "1", 50, 20, "Active", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM parking_slots WHERE section_id=? AND tenant_id=? AND status='Occupied'")).
		WithArgs(uint64(4), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))

	c, rec := facilityContext(http.MethodPut, "/api/parking/sections/4", `{"capacity":25}`)
	c.SetParamNames("id")
	c.SetParamValues("4")

	h := NewParkingHandler(repository.NewSectionRepo(db), repository.NewSlotRepo(db))
	require.NoError(t, h.UpdateSection(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "capacity below occupied count")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSectionRebasesAvailability(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM parking_sections WHERE id=? AND tenant_id=? LIMIT 1")).
		WithArgs(uint64(4), uint64(1)).
		WillReturnRows(sectionTestRows().AddRow(4, 1, "Level A", "1", 50, 20, "Active", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM parking_slots WHERE section_id=? AND tenant_id=? AND status='Occupied'")).
		WithArgs(uint64(4), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE parking_sections SET name=?,floor=?,capacity=?,available=?,status=? WHERE id=? AND tenant_id=?")).
		WithArgs("Level A", "1", uint32(40), uint32(10), "Active", uint64(4), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := facilityContext(http.MethodPut, "/api/parking/sections/4", `{"capacity":40}`)
	c.SetParamNames("id")
	c.SetParamValues("4")

	h := NewParkingHandler(repository.NewSectionRepo(db), repository.NewSlotRepo(db))
	require.NoError(t, h.UpdateSection(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":10`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSlotRefusesManualOccupy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM parking_slots WHERE id=? AND tenant_id=? LIMIT 1")).
		WithArgs(uint64(12), uint64(1)).
		WillReturnRows(slotTestRows().
			AddRow(12, 1, 4, "A-12", "Standard", repository.SlotAvailable, false, nil, now, now))

	c, rec := facilityContext(http.MethodPut, "/api/parking/slots/12", `{"status":"Occupied"}`)
	c.SetParamNames("id")
	c.SetParamValues("12")

	h := NewParkingHandler(repository.NewSectionRepo(db), repository.NewSlotRepo(db))
	require.NoError(t, h.UpdateSlot(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "without a vehicle")
}

func TestDeleteSlotRefusesOccupied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM parking_slots WHERE id=? AND tenant_id=? AND status<>'Occupied'")).
		WithArgs(uint64(12), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM parking_slots WHERE id=? AND tenant_id=? LIMIT 1")).
		WithArgs(uint64(12), uint64(1)).
		WillReturnRows(slotTestRows().
			AddRow(12, 1, 4, "A-12", "Standard", repository.SlotOccupied, false, 7, now, now))

	c, rec := facilityContext(http.MethodDelete, "/api/parking/slots/12", "")
	c.SetParamNames("id")
	c.SetParamValues("12")

	h := NewParkingHandler(repository.NewSectionRepo(db), repository.NewSlotRepo(db))
	require.NoError(t, h.DeleteSlot(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "occupied")
	assert.NoError(t, mock.ExpectationsWereMet())
}
