package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tmc-tutoring/match-api/internal/dto"
	"github.com/tmc-tutoring/match-api/internal/middleware"
	appErrors "github.com/tmc-tutoring/match-api/pkg/errors"
	"github.com/tmc-tutoring/match-api/pkg/response"
)

type adminService interface {
	Login(ctx context.Context, req dto.AdminLoginRequest) (*dto.AdminLoginResponse, error)
	Logout(ctx context.Context) error
	Welcome(ctx context.Context) (*dto.AdminWelcomeResponse, error)
	GetSettings(ctx context.Context) (*dto.AdminSettingsResponse, error)
	UpdateSettings(ctx context.Context, req dto.UpdateAdminSettingsRequest) (*dto.UpdateAdminSettingsResponse, error)
	SetFormOpen(ctx context.Context, open bool) (*dto.FormStateResponse, error)
	ResetDatabase(ctx context.Context, req dto.ResetRequest) (*dto.ResetResponse, error)
}

// AdminHandler wires HTTP endpoints to the admin service.
type AdminHandler struct {
	service adminService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(svc adminService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// Login godoc
// @Summary Administrator login
// @Description Exchange the administrator password for a session token
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.AdminLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/login [post]
func (h *AdminHandler) Login(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary End administrator sessions
// @Tags Admin
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} response.Envelope
// @Router /admin/logout [post]
func (h *AdminHandler) Logout(c *gin.Context) {
	if _, ok := middleware.AdminClaims(c); !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Welcome godoc
// @Summary Administrator landing view
// @Description Form state and a warning while the default password is in use
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/welcome [get]
func (h *AdminHandler) Welcome(c *gin.Context) {
	res, err := h.service.Welcome(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// GetSettings godoc
// @Summary View administrator settings
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/settings [get]
func (h *AdminHandler) GetSettings(c *gin.Context) {
	res, err := h.service.GetSettings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// UpdateSettings godoc
// @Summary Update administrator email or password
// @Description The current password is required. A password change ends other sessions.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateAdminSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/settings [put]
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateAdminSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}

	res, err := h.service.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// OpenForm godoc
// @Summary Open participant intake
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/form/open [post]
func (h *AdminHandler) OpenForm(c *gin.Context) {
	h.setFormOpen(c, true)
}

// CloseForm godoc
// @Summary Close participant intake
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/form/close [post]
func (h *AdminHandler) CloseForm(c *gin.Context) {
	h.setFormOpen(c, false)
}

func (h *AdminHandler) setFormOpen(c *gin.Context, open bool) {
	res, err := h.service.SetFormOpen(c.Request.Context(), open)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Reset godoc
// @Summary Reset the database
// @Description Deletes all matches, students and tutors when reset_confirmation is exactly "Yes"
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ResetRequest true "Reset confirmation"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/reset [post]
func (h *AdminHandler) Reset(c *gin.Context) {
	var req dto.ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reset payload"))
		return
	}

	res, err := h.service.ResetDatabase(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
