package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novabanka/branch-appointments/internal/booking"
	"github.com/novabanka/branch-appointments/internal/model"
)

func newTestContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestClaimUint64Coercion(t *testing.T) {
	cases := []struct {
		in   interface{}
		want uint64
		ok   bool
	}{
		{float64(7), 7, true}, // JSON numbers decode as float64
		{"42", 42, true},
		{uint64(3), 3, true},
		{int64(9), 9, true},
		{float64(-1), 0, false},
		{"not a number", 0, false},
		{nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := claimUint64(tc.in)
		assert.Equal(t, tc.ok, ok, "input %v", tc.in)
		assert.Equal(t, tc.want, got, "input %v", tc.in)
	}
}

func TestGetActorFromClaims(t *testing.T) {
	c, _ := newTestContext()
	c.Set("user_id", float64(7))
	c.Set("role", model.RoleEmployee)
	c.Set("branch_id", float64(2))

	actor, err := getActor(c)
	require.NoError(t, err)
	assert.Equal(t, booking.Actor{UserID: 7, Role: model.RoleEmployee, BranchID: 2}, actor)
}

func TestGetActorMissingUser(t *testing.T) {
	c, _ := newTestContext()
	_, err := getActor(c)
	assert.Error(t, err)
}

func TestBookingErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{booking.ErrSlotTaken, http.StatusConflict},
		{booking.ErrStateConflict, http.StatusConflict},
		{booking.ErrBranchNotFound, http.StatusNotFound},
		{booking.ErrAppointmentNotFound, http.StatusNotFound},
		{booking.ErrUnauthorized, http.StatusForbidden},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		c, rec := newTestContext()
		require.NoError(t, bookingError(c, tc.err))
		assert.Equal(t, tc.code, rec.Code, "error %v", tc.err)
	}
}
