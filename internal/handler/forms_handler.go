package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tmc-tutoring/match-api/internal/dto"
	appErrors "github.com/tmc-tutoring/match-api/pkg/errors"
	"github.com/tmc-tutoring/match-api/pkg/response"
)

type participantService interface {
	Instruments() dto.InstrumentCatalogResponse
	ApplyFormCommand(req dto.FormCommandRequest) (*dto.FormCommandResponse, error)
	RegisterTutor(ctx context.Context, req dto.RegisterTutorRequest) (*dto.RegistrationResponse, error)
	RegisterParent(ctx context.Context, req dto.RegisterParentRequest) (*dto.RegistrationResponse, error)
}

// FormsHandler serves the public intake forms.
type FormsHandler struct {
	service participantService
}

// NewFormsHandler constructs a FormsHandler.
func NewFormsHandler(svc participantService) *FormsHandler {
	return &FormsHandler{service: svc}
}

// Instruments godoc
// @Summary Instrument catalog
// @Tags Forms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /forms/instruments [get]
func (h *FormsHandler) Instruments(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Instruments(), nil)
}

// Command godoc
// @Summary Apply a form control interaction
// @Description Adds or removes time slot and instrument rows, or updates a row, and returns the resulting form
// @Tags Forms
// @Accept json
// @Produce json
// @Param role path string true "tutor or parent" Enums(tutor, parent)
// @Param payload body dto.FormCommandRequest true "Form state and command"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /forms/{role}/commands [post]
func (h *FormsHandler) Command(c *gin.Context) {
	role := c.Param("role")
	if role != "tutor" && role != "parent" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown form"))
		return
	}

	var req dto.FormCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form command"))
		return
	}

	res, err := h.service.ApplyFormCommand(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// RegisterTutor godoc
// @Summary Submit the tutor intake form
// @Tags Forms
// @Accept json
// @Produce json
// @Param payload body dto.RegisterTutorRequest true "Tutor submission"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /forms/tutors [post]
func (h *FormsHandler) RegisterTutor(c *gin.Context) {
	var req dto.RegisterTutorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tutor submission"))
		return
	}

	res, err := h.service.RegisterTutor(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// RegisterParent godoc
// @Summary Submit the parent intake form
// @Tags Forms
// @Accept json
// @Produce json
// @Param payload body dto.RegisterParentRequest true "Parent submission"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /forms/parents [post]
func (h *FormsHandler) RegisterParent(c *gin.Context) {
	var req dto.RegisterParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid parent submission"))
		return
	}

	res, err := h.service.RegisterParent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}
