package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmc-tutoring/match-api/internal/dto"
	"github.com/tmc-tutoring/match-api/internal/middleware"
	"github.com/tmc-tutoring/match-api/internal/models"
	"github.com/tmc-tutoring/match-api/internal/service"
	appErrors "github.com/tmc-tutoring/match-api/pkg/errors"
)

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newJSONContext(method, path, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

type adminServiceStub struct {
	loginErr   error
	lastReset  dto.ResetRequest
	formOpen   *bool
	logoutCall int
}

func (s *adminServiceStub) Login(ctx context.Context, req dto.AdminLoginRequest) (*dto.AdminLoginResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &dto.AdminLoginResponse{Token: "token"}, nil
}

func (s *adminServiceStub) Logout(ctx context.Context) error {
	s.logoutCall++
	return nil
}

func (s *adminServiceStub) Welcome(ctx context.Context) (*dto.AdminWelcomeResponse, error) {
	return &dto.AdminWelcomeResponse{DefaultPasswordWarning: true}, nil
}

func (s *adminServiceStub) GetSettings(ctx context.Context) (*dto.AdminSettingsResponse, error) {
	return &dto.AdminSettingsResponse{Email: "placeholder@tmc.com"}, nil
}

func (s *adminServiceStub) UpdateSettings(ctx context.Context, req dto.UpdateAdminSettingsRequest) (*dto.UpdateAdminSettingsResponse, error) {
	if req.OldPassword != "password" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "Incorrect password")
	}
	return &dto.UpdateAdminSettingsResponse{Notice: "Updated settings"}, nil
}

func (s *adminServiceStub) SetFormOpen(ctx context.Context, open bool) (*dto.FormStateResponse, error) {
	s.formOpen = &open
	return &dto.FormStateResponse{FormOpen: open}, nil
}

func (s *adminServiceStub) ResetDatabase(ctx context.Context, req dto.ResetRequest) (*dto.ResetResponse, error) {
	s.lastReset = req
	return &dto.ResetResponse{Reset: req.ResetConfirmation == "Yes"}, nil
}

func TestAdminHandlerLogin(t *testing.T) {
	h := NewAdminHandler(&adminServiceStub{})
	c, w := newJSONContext(http.MethodPost, "/admin/login", `{"password":"password"}`)
	h.Login(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"token"`)

	h = NewAdminHandler(&adminServiceStub{loginErr: appErrors.ErrInvalidCredentials})
	c, w = newJSONContext(http.MethodPost, "/admin/login", `{"password":"nope"}`)
	h.Login(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "incorrect password", decodeEnvelope(t, w).Error.Message)

	c, w = newJSONContext(http.MethodPost, "/admin/login", `{"password":`)
	h.Login(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandlerLogoutRequiresSession(t *testing.T) {
	svc := &adminServiceStub{}
	h := NewAdminHandler(svc)

	c, w := newJSONContext(http.MethodPost, "/admin/logout", "")
	h.Logout(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newJSONContext(http.MethodPost, "/admin/logout", "")
	c.Set(middleware.ContextAdminKey, &models.AdminClaims{SessionID: "sid"})
	h.Logout(c)
	require.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, 1, svc.logoutCall)
	_ = w
}

func TestAdminHandlerUpdateSettings(t *testing.T) {
	h := NewAdminHandler(&adminServiceStub{})

	c, w := newJSONContext(http.MethodPut, "/admin/settings", `{"old_password":"wrong","new_email":"a@b.com"}`)
	h.UpdateSettings(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Incorrect password", decodeEnvelope(t, w).Error.Message)

	c, w = newJSONContext(http.MethodPut, "/admin/settings", `{"old_password":"password","new_email":"a@b.com"}`)
	h.UpdateSettings(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Updated settings")
}

func TestAdminHandlerFormToggleAndReset(t *testing.T) {
	svc := &adminServiceStub{}
	h := NewAdminHandler(svc)

	c, w := newJSONContext(http.MethodPost, "/admin/form/open", "")
	h.OpenForm(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.formOpen)
	assert.True(t, *svc.formOpen)

	c, _ = newJSONContext(http.MethodPost, "/admin/form/close", "")
	h.CloseForm(c)
	assert.False(t, *svc.formOpen)

	c, w = newJSONContext(http.MethodPost, "/admin/reset", `{"reset_confirmation":"No"}`)
	h.Reset(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reset":false`)

	c, w = newJSONContext(http.MethodPost, "/admin/reset", `{"reset_confirmation":"Yes"}`)
	h.Reset(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reset":true`)
}

type generatorStub struct {
	summary *dto.GenerationSummary
	err     error
}

func (s *generatorStub) Generate(ctx context.Context) (*dto.GenerationSummary, error) {
	return s.summary, s.err
}

func (s *generatorStub) LastSummary(ctx context.Context) (*dto.GenerationSummary, error) {
	if s.summary == nil {
		return nil, appErrors.ErrNotFound
	}
	return s.summary, nil
}

func (s *generatorStub) Status() dto.GenerationStatus {
	return dto.GenerationStatus{State: models.GenerationStateDone}
}

type matchListerStub struct {
	query dto.MatchQuery
}

func (s *matchListerStub) List(ctx context.Context, query dto.MatchQuery) ([]dto.MatchView, *models.Pagination, error) {
	s.query = query
	return []dto.MatchView{{TutorID: "t1", StudentID: "s1", Day: "Monday"}}, &models.Pagination{Page: 1, PageSize: 50, TotalCount: 1}, nil
}

type exporterStub struct {
	format string
}

func (s *exporterStub) ExportMatches(ctx context.Context, format string) (*service.ExportFile, error) {
	s.format = format
	if format == "xlsx" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &service.ExportFile{Filename: "matches.csv", ContentType: "text/csv", Data: []byte("Tutor\nAda\n")}, nil
}

func TestMatchHandlerGenerate(t *testing.T) {
	summary := &dto.GenerationSummary{RunID: "run-1", State: models.GenerationStateDone, MatchedCount: 1}
	h := NewMatchHandler(&generatorStub{summary: summary}, &matchListerStub{}, &exporterStub{})
	c, w := newJSONContext(http.MethodPost, "/admin/matches/generate", "")
	h.Generate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run_id":"run-1"`)

	h = NewMatchHandler(&generatorStub{err: appErrors.ErrGenerationInProgress}, &matchListerStub{}, &exporterStub{})
	c, w = newJSONContext(http.MethodPost, "/admin/matches/generate", "")
	h.Generate(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestMatchHandlerGeneratePartialFailure(t *testing.T) {
	summary := &dto.GenerationSummary{RunID: "run-2", State: models.GenerationStateFailed, FailedPairs: []dto.FailedPair{{TutorID: "t1", StudentID: "s1"}}}
	persistErr := &service.PersistenceError{RunID: "run-2", Attempted: 1, Failed: summary.FailedPairs}
	err := appErrors.Wrap(persistErr, appErrors.ErrMatchPersistence.Code, appErrors.ErrMatchPersistence.Status, appErrors.ErrMatchPersistence.Message)

	h := NewMatchHandler(&generatorStub{summary: summary, err: err}, &matchListerStub{}, &exporterStub{})
	c, w := newJSONContext(http.MethodPost, "/admin/matches/generate", "")
	h.Generate(c)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "MATCH_PERSISTENCE_FAILED", env.Error.Code)
	assert.Contains(t, string(env.Data), `"run_id":"run-2"`)

	h = NewMatchHandler(&generatorStub{summary: summary, err: errors.New("boom")}, &matchListerStub{}, &exporterStub{})
	c, w = newJSONContext(http.MethodPost, "/admin/matches/generate", "")
	h.Generate(c)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, decodeEnvelope(t, w).Data)
}

func TestMatchHandlerSummaryAndStatus(t *testing.T) {
	h := NewMatchHandler(&generatorStub{}, &matchListerStub{}, &exporterStub{})
	c, w := newJSONContext(http.MethodGet, "/admin/matches/summary", "")
	h.Summary(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	h = NewMatchHandler(&generatorStub{summary: &dto.GenerationSummary{RunID: "r"}}, &matchListerStub{}, &exporterStub{})
	c, w = newJSONContext(http.MethodGet, "/admin/matches/summary", "")
	h.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DONE", decodeEnvelope(t, w).Meta["generation_state"])

	c, w = newJSONContext(http.MethodGet, "/admin/matches/status", "")
	h.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"DONE"`)
}

func TestMatchHandlerListAndExport(t *testing.T) {
	lister := &matchListerStub{}
	exporter := &exporterStub{}
	h := NewMatchHandler(&generatorStub{}, lister, exporter)

	c, w := newJSONContext(http.MethodGet, "/admin/matches?tutor_id=t1&page=2", "")
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t1", lister.query.TutorID)
	assert.Equal(t, 2, lister.query.Page)
	assert.Equal(t, 1, decodeEnvelope(t, w).Pagination.TotalCount)

	c, w = newJSONContext(http.MethodGet, "/admin/matches/export", "")
	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(w.Header().Get("Content-Disposition"), "matches.csv"))

	c, w = newJSONContext(http.MethodGet, "/admin/matches/export?format=xlsx", "")
	h.Export(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

type participantServiceStub struct {
	registerErr error
	command     dto.FormCommandRequest
}

func (s *participantServiceStub) Instruments() dto.InstrumentCatalogResponse {
	return dto.InstrumentCatalogResponse{Instruments: []string{"Piano", "Other"}, Other: "Other"}
}

func (s *participantServiceStub) ApplyFormCommand(req dto.FormCommandRequest) (*dto.FormCommandResponse, error) {
	s.command = req
	return &dto.FormCommandResponse{}, nil
}

func (s *participantServiceStub) RegisterTutor(ctx context.Context, req dto.RegisterTutorRequest) (*dto.RegistrationResponse, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &dto.RegistrationResponse{ID: "t1", Role: "tutor"}, nil
}

func (s *participantServiceStub) RegisterParent(ctx context.Context, req dto.RegisterParentRequest) (*dto.RegistrationResponse, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &dto.RegistrationResponse{ID: "s1", Role: "student"}, nil
}

func TestFormsHandlerRegister(t *testing.T) {
	h := NewFormsHandler(&participantServiceStub{})
	c, w := newJSONContext(http.MethodPost, "/forms/tutors", `{"full_name":"Ada"}`)
	h.RegisterTutor(c)
	require.Equal(t, http.StatusCreated, w.Code)

	h = NewFormsHandler(&participantServiceStub{registerErr: appErrors.ErrFormClosed})
	c, w = newJSONContext(http.MethodPost, "/forms/parents", `{"parent_name":"Pat"}`)
	h.RegisterParent(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORM_CLOSED", decodeEnvelope(t, w).Error.Code)
}

func TestFormsHandlerCommandRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &participantServiceStub{}
	h := NewFormsHandler(svc)
	router := gin.New()
	router.POST("/forms/:role/commands", h.Command)
	router.GET("/forms/instruments", h.Instruments)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/forms/parent/commands", bytes.NewBufferString(`{"command":{"target":"add_time","event":"click"}}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "add_time", svc.command.Command.Target)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/forms/mentor/commands", bytes.NewBufferString(`{}`))
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/forms/instruments", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Piano")
}

type pingStub struct{ err error }

func (p pingStub) PingContext(ctx context.Context) error { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{"postgres": pingStub{}})
	c, w := newJSONContext(http.MethodGet, "/ready", "")
	h.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)

	h = NewMetricsHandler(nil, map[string]Pinger{"postgres": pingStub{}, "redis": pingStub{err: errors.New("down")}})
	c, w = newJSONContext(http.MethodGet, "/ready", "")
	h.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "down")

	c, w = newJSONContext(http.MethodGet, "/admin/metrics", "")
	h.Snapshot(c)
	require.Equal(t, http.StatusOK, w.Code)
}
