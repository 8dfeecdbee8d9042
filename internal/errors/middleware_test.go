package errors

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.Use(Middleware())
	e.GET("/test", handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewarePassesThroughSuccess(t *testing.T) {
	rec := doRequest(t, func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMiddlewareConvertsStructuredErrors(t *testing.T) {
	rec := doRequest(t, func(c echo.Context) error {
		return NotFoundError("user not found").WithContext("user_id", 7)
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"user not found","type":"not_found","context":{"user_id":7}}`, rec.Body.String())
}

func TestMiddlewareWrapsPlainErrors(t *testing.T) {
	rec := doRequest(t, func(c echo.Context) error {
		return stderrors.New("boom")
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"internal"`)
	// The raw cause never leaks to the client.
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestMiddlewareLeavesEchoHTTPErrorsAlone(t *testing.T) {
	rec := doRequest(t, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	require.Equal(t, http.StatusTeapot, rec.Code)
}
