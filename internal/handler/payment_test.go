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

func TestPriceVisit(t *testing.T) {
	pricing := repository.PricingSettings{HourlyRate: 2.5, DailyMaxRate: 15}

	cases := []struct {
		name     string
		duration int64
		want     float64
	}{
		{"zero duration", 0, 0},
		{"one hour", 60, 2.5},
		{"partial hour rounds up", 61, 5},
		{"long stay hits daily cap", 10 * 60, 15},
		{"two days doubles the cap", 30 * 60, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, priceVisit(tc.duration, pricing))
		})
	}

	assert.Zero(t, priceVisit(120, repository.PricingSettings{}))
}

func TestPaymentCreateStampsReceiptAndDuration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	entry := now.UTC().Add(-2 * time.Hour)
	exit := entry.Add(125 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE id=? AND tenant_id=? LIMIT 1")).
		WithArgs(uint64(7), uint64(1)).
		WillReturnRows(vehicleTestRows().
			AddRow(7, 1, "ABC123", "SUV", repository.VehicleExited, entry, exit, nil, "", "", "", 0, "", "", "", now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnResult(sqlmock.NewResult(3, 1))

	c, rec := facilityContext(http.MethodPost, "/api/payments",
		`{"vehicle_id":7,"amount":6.5,"method":"Card"}`)

	h := NewPaymentHandler(
		repository.NewPaymentRepo(db),
		repository.NewVehicleRepo(db),
		repository.NewSettingRepo(db),
	)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Regexp(t, `"receipt_number":"PAY-001-\d{8}-\d{4}"`, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"duration":125`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentCreateVehicleWithoutEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE id=? AND tenant_id=? LIMIT 1")).
		WillReturnRows(vehicleTestRows().
			AddRow(7, 1, "ABC123", "SUV", repository.VehicleReserved, nil, nil, nil, "", "", "", 0, "", "", "", now, now))

	c, rec := facilityContext(http.MethodPost, "/api/payments",
		`{"vehicle_id":7,"amount":5,"method":"Cash"}`)

	h := NewPaymentHandler(
		repository.NewPaymentRepo(db),
		repository.NewVehicleRepo(db),
		repository.NewSettingRepo(db),
	)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no recorded entry")
}

func TestPaymentStatusValidation(t *testing.T) {
	c, rec := facilityContext(http.MethodPut, "/api/payments/3/status", `{"status":"Refunded"}`)
	c.SetParamNames("id")
	c.SetParamValues("3")

	h := NewPaymentHandler(nil, nil, nil)
	require.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid payment status")
}
