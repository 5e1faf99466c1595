package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tmc-tutoring/match-api/internal/dto"
	"github.com/tmc-tutoring/match-api/internal/middleware"
	"github.com/tmc-tutoring/match-api/internal/models"
	"github.com/tmc-tutoring/match-api/internal/service"
	appErrors "github.com/tmc-tutoring/match-api/pkg/errors"
	"github.com/tmc-tutoring/match-api/pkg/response"
)

type matchGenerator interface {
	Generate(ctx context.Context) (*dto.GenerationSummary, error)
	LastSummary(ctx context.Context) (*dto.GenerationSummary, error)
	Status() dto.GenerationStatus
}

type matchLister interface {
	List(ctx context.Context, query dto.MatchQuery) ([]dto.MatchView, *models.Pagination, error)
}

type matchExporter interface {
	ExportMatches(ctx context.Context, format string) (*service.ExportFile, error)
}

// MatchHandler exposes match generation, listing and export.
type MatchHandler struct {
	generator matchGenerator
	query     matchLister
	exporter  matchExporter
}

// NewMatchHandler constructs a MatchHandler.
func NewMatchHandler(generator matchGenerator, query matchLister, exporter matchExporter) *MatchHandler {
	return &MatchHandler{generator: generator, query: query, exporter: exporter}
}

// Generate godoc
// @Summary Generate tutor matches
// @Description Runs the match generation engine over every registered tutor and student. A run already in progress yields 409; partially saved runs return the summary alongside the error.
// @Tags Matches
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /admin/matches/generate [post]
func (h *MatchHandler) Generate(c *gin.Context) {
	summary, err := h.generator.Generate(c.Request.Context())
	if err != nil {
		var persistErr *service.PersistenceError
		if summary != nil && errors.As(err, &persistErr) {
			response.ErrorWithData(c, err, summary)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Summary godoc
// @Summary Last generation summary
// @Tags Matches
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/matches/summary [get]
func (h *MatchHandler) Summary(c *gin.Context) {
	summary, err := h.generator.LastSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "generation_state", h.generator.Status().State)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Status godoc
// @Summary Match generator state
// @Tags Matches
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/matches/status [get]
func (h *MatchHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.generator.Status(), nil)
}

// List godoc
// @Summary List persisted matches
// @Tags Matches
// @Produce json
// @Security BearerAuth
// @Param tutor_id query string false "Tutor filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/matches [get]
func (h *MatchHandler) List(c *gin.Context) {
	var query dto.MatchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}

	matches, pagination, err := h.query.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, matches, pagination, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download persisted matches
// @Tags Matches
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/matches/export [get]
func (h *MatchHandler) Export(c *gin.Context) {
	file, err := h.exporter.ExportMatches(c.Request.Context(), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
