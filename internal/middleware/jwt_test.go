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
	"github.com/parkgrid/parkgrid-api/internal/utils"
)

func userMockRow(role, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "email", "password_hash", "role", "status",
		"phone_number", "last_active", "created_at", "updated_at",
	}).AddRow(9, 3, "Pat", "pat@acme.example.com", "x", role, status, "", nil, now, now)
}

func authWith(t *testing.T, rows *sqlmock.Rows, token string) (*httptest.ResponseRecorder, Identity, bool) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=? LIMIT 1")).
		WillReturnRows(rows)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/vehicles", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var (
		got    Identity
		called bool
	)
	h := JWTAuth("test-secret", repository.NewUserRepo(db))(func(c echo.Context) error {
		got, _ = CurrentIdentity(c)
		called = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, got, called
}

// A role change in the database wins over the role baked into the token, so
// demotions apply on the next request rather than at token expiry.
func TestJWTAuthRoleComesFromUserRow(t *testing.T) {
	tok, err := utils.NewSessionToken("test-secret", 9, repository.RoleAdmin, 3, 1)
	require.NoError(t, err)

	_, id, called := authWith(t, userMockRow(repository.RoleViewer, repository.UserActive), tok.Token)

	assert.True(t, called)
	assert.Equal(t, repository.RoleViewer, id.Role)
	assert.EqualValues(t, 9, id.UserID)
	assert.EqualValues(t, 3, id.TenantID)
}

func TestJWTAuthRejectsInactiveUser(t *testing.T) {
	tok, err := utils.NewSessionToken("test-secret", 9, repository.RoleAdmin, 3, 1)
	require.NoError(t, err)

	rec, _, called := authWith(t, userMockRow(repository.RoleAdmin, repository.UserInactive), tok.Token)

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
