package handler

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkgrid/parkgrid-api/internal/config"
	"github.com/parkgrid/parkgrid-api/internal/repository"
	"github.com/parkgrid/parkgrid-api/internal/utils"
)

func userTestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "email", "password_hash", "role", "status",
		"phone_number", "last_active", "created_at", "updated_at",
	})
}

func authTestConfig() config.Config {
	return config.Config{JWTSecret: "test-secret", TokenTTLHours: 24, BcryptCost: 4}
}

func TestLoginSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := utils.HashPassword("hunter22", 4)
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=? ORDER BY id LIMIT 1")).
		WithArgs("admin@acme.example.com").
		WillReturnRows(userTestRows().
			AddRow(2, 1, "Ada", "admin@acme.example.com", hash, repository.RoleAdmin, repository.UserActive, "", nil, now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET last_active=UTC_TIMESTAMP() WHERE id=?")).
		WithArgs(uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := facilityContext(http.MethodPost, "/api/auth/login",
		`{"email":"Admin@Acme.example.com","password":"hunter22"}`)

	h := NewAuthHandler(authTestConfig(), repository.NewUserRepo(db), nil, nil)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":"`)
	assert.NotContains(t, rec.Body.String(), hash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := utils.HashPassword("hunter22", 4)
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=? ORDER BY id LIMIT 1")).
		WillReturnRows(userTestRows().
			AddRow(2, 1, "Ada", "admin@acme.example.com", hash, repository.RoleAdmin, repository.UserActive, "", nil, now, now))

	c, rec := facilityContext(http.MethodPost, "/api/auth/login",
		`{"email":"admin@acme.example.com","password":"wrong"}`)

	h := NewAuthHandler(authTestConfig(), repository.NewUserRepo(db), nil, nil)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestLoginUnknownEmailSameMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=? ORDER BY id LIMIT 1")).
		WillReturnRows(userTestRows())

	c, rec := facilityContext(http.MethodPost, "/api/auth/login",
		`{"email":"nobody@acme.example.com","password":"whatever"}`)

	h := NewAuthHandler(authTestConfig(), repository.NewUserRepo(db), nil, nil)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestLoginInactiveAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := utils.HashPassword("hunter22", 4)
	require.NoError(t, err)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=? ORDER BY id LIMIT 1")).
		WillReturnRows(userTestRows().
			AddRow(2, 1, "Ada", "admin@acme.example.com", hash, repository.RoleAdmin, repository.UserInactive, "", nil, now, now))

	c, rec := facilityContext(http.MethodPost, "/api/auth/login",
		`{"email":"admin@acme.example.com","password":"hunter22"}`)

	h := NewAuthHandler(authTestConfig(), repository.NewUserRepo(db), nil, nil)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "inactive")
}

func TestRegisterDuplicateDomain(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tenants")).
		WillReturnError(dupKeyErr{})

	c, rec := facilityContext(http.MethodPost, "/api/auth/register",
		`{"name":"Ada","email":"ada@acme.example.com","password":"hunter2222","company_name":"Acme","domain":"acme.example.com"}`)

	h := NewAuthHandler(authTestConfig(), repository.NewUserRepo(db),
		repository.NewTenantRepo(db), repository.NewSettingRepo(db))
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "domain already in use")
}

type dupKeyErr struct{}

func (dupKeyErr) Error() string {
	return "Error 1062 (23000): Duplicate entry 'acme.example.com' for key 'tenants.domain'"
}
