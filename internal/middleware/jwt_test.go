package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novabanka/branch-appointments/internal/model"
	"github.com/novabanka/branch-appointments/internal/utils"
)

const testSecret = "test-secret"

func runJWT(t *testing.T, authHeader string) (echo.Context, *httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := JWTAuth(testSecret)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return c, rec, called
}

func TestJWTAuthValidCustomerToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 7, model.RoleCustomer, nil, 5)
	require.NoError(t, err)

	c, rec, called := runJWT(t, "Bearer "+tok.Token)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(7), c.Get("user_id"))
	assert.Equal(t, model.RoleCustomer, c.Get("role"))
	assert.Nil(t, c.Get("branch_id"), "customers carry no branch claim")
}

func TestJWTAuthEmployeeBranchClaim(t *testing.T) {
	branch := uint64(2)
	tok, err := utils.NewAccessToken(testSecret, 9, model.RoleEmployee, &branch, 5)
	require.NoError(t, err)

	c, _, called := runJWT(t, "Bearer "+tok.Token)
	assert.True(t, called)
	assert.Equal(t, float64(2), c.Get("branch_id"))
}

func TestJWTAuthMissingHeader(t *testing.T) {
	_, rec, called := runJWT(t, "")
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 7, model.RoleCustomer, nil, 5)
	require.NoError(t, err)

	_, rec, called := runJWT(t, "Bearer "+tok.Token)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(role interface{}) (*httptest.ResponseRecorder, bool) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != nil {
			c.Set("role", role)
		}
		called := false
		h := RequireRole(model.RoleEmployee)(func(c echo.Context) error {
			called = true
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, h(c))
		return rec, called
	}

	rec, called := run(model.RoleEmployee)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, called = run(model.RoleCustomer)
	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, called = run(nil)
	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
