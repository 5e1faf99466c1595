package app

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmc-tutoring/match-api/pkg/config"
)

func newTestApp(t *testing.T) (*App, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp), sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		Env:       config.EnvDevelopment,
		APIPrefix: "/api/v1",
		JWT:       config.JWTConfig{Secret: "test", Expiration: time.Hour, Issuer: "test"},
		Admin:     config.AdminConfig{DefaultPassword: "password", DefaultEmail: "placeholder@tmc.com"},
	}
	return Wire(cfg, nil, sqlx.NewDb(db, "sqlmock"), nil), mock
}

func serve(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRouterPublicRoutes(t *testing.T) {
	app, mock := newTestApp(t)
	router := app.Router()

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health", "", nil).Code)

	mock.ExpectPing()
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/ready", "", nil).Code)

	w := serve(router, http.MethodGet, "/api/v1/forms/instruments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "French Horn")

	w = serve(router, http.MethodPost, "/api/v1/forms/tutor/commands", `{"command":{"target":"add_instr","event":"click"}}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"can_remove_instrument":true`)

	w = serve(router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRouterAdminRoutesRequireSession(t *testing.T) {
	app, _ := newTestApp(t)
	router := app.Router()

	for _, path := range []string{"/api/v1/admin/welcome", "/api/v1/admin/matches", "/api/v1/admin/matches/status"} {
		assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, path, "", nil).Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodPost, "/api/v1/admin/matches/generate", "", nil).Code)
}

func TestRouterLoginCreatesDefaultSettings(t *testing.T) {
	app, mock := newTestApp(t)
	router := app.Router()
	columns := []string{"id", "form_open", "password_hash", "email", "session_id", "last_updated"}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, form_open, password_hash, email, session_id, last_updated FROM admin_settings")).
		WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO admin_settings")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := serve(router, http.MethodPost, "/api/v1/admin/login", `{"password":"password"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"token"`)
	require.NoError(t, mock.ExpectationsWereMet())
}
