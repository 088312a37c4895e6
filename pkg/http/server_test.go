package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.GET("/boom", func(echo.Context) error { panic("bad payload") })
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundError("Unknown stock symbol").WithError(errors.New("no profile")))
	})
	e.GET("/opaque", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("sql: connection refused"))
	})
	e.GET("/ticker", func(c echo.Context) error {
		req := &struct {
			Symbol string `query:"symbol" validate:"required,ticker"`
			Hours  int    `query:"hours" default:"24" validate:"gte=1,lte=720"`
		}{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, req.Hours)
	})
}

func serve(t *testing.T, s *Server, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServerBuiltinsAndErrors(t *testing.T) {
	s := NewServer([]Handler{routes{}, nil}, WithMetricsPath(""))

	rec := serve(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, s, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(t, s, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeNotFound)
	assert.NotContains(t, rec.Body.String(), "no profile")

	rec = serve(t, s, http.MethodGet, "/opaque", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = serve(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerCORSPreflight(t *testing.T) {
	s := NewServer(nil, WithMetricsPath(""))
	rec := serve(t, s, http.MethodOptions, "/api/trending", map[string]string{echo.HeaderOrigin: "http://localhost:3000"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.True(t, strings.Contains(rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodDelete))
}

func TestReadAndValidateRequest(t *testing.T) {
	s := NewServer([]Handler{routes{}}, WithMetricsPath(""))

	rec := serve(t, s, http.MethodGet, "/ticker?symbol=BRK.B", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":24`)

	rec = serve(t, s, http.MethodGet, "/ticker?symbol=not%20a%20ticker", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_TICKER")

	rec = serve(t, s, http.MethodGet, "/ticker?symbol=AAPL&hours=1000", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_LTE")
}
