package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ciasx/app"
	"ciasx/domain/core"
	"ciasx/domain/experiment"
	"ciasx/internal"
	"ciasx/internal/errors"
	"ciasx/internal/scientist"
	"ciasx/models"
)

// RunService is the part of app.ScientistService the HTTP layer needs
type RunService interface {
	CreateRun(ctx context.Context, req app.RunRequest) (*models.DesignRun, []experiment.Configuration, error)
	ExecuteRun(ctx context.Context, run *models.DesignRun, seeds []experiment.Configuration) (*scientist.Result, error)
	GetRun(ctx context.Context, id core.RunID) (*models.DesignRun, error)
	ListRuns(ctx context.Context, limit int) ([]*models.DesignRun, error)
	Records(ctx context.Context, id core.RunID) ([]experiment.Record, error)
}

// RunHandler serves the design run API
type RunHandler struct {
	service RunService
	// runCtx bounds background runs; cancelling it stops them
	runCtx context.Context
	logger *internal.Logger
}

// NewRunHandler creates a run handler. Runs started over HTTP live until
// runCtx is cancelled.
func NewRunHandler(runCtx context.Context, service RunService, logger *internal.Logger) *RunHandler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &RunHandler{service: service, runCtx: runCtx, logger: logger.With("api")}
}

// RegisterRoutes mounts the run API and its SSE stream under /api
func RegisterRoutes(r gin.IRouter, h *RunHandler, hub *SSEHub) {
	api := r.Group("/api")
	{
		api.POST("/runs", h.CreateRun)
		api.GET("/runs", h.ListRuns)
		api.GET("/runs/:id", h.GetRun)
		api.GET("/runs/:id/records", h.ListRecords)
		if hub != nil {
			api.GET("/runs/:id/events", hub.HandleSSE)
		}
	}
}

// CreateRun stores a run and executes it in the background. It answers 202
// with the INITIALIZING run.
func (h *RunHandler) CreateRun(c *gin.Context) {
	var req app.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	run, seeds, err := h.service.CreateRun(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	accepted := *run

	go func() {
		if _, err := h.service.ExecuteRun(h.runCtx, run, seeds); err != nil {
			h.logger.Warn("background run %s ended with error: %v", run.ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, accepted)
}

// ListRuns returns runs newest first; ?limit= caps the result
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (h *RunHandler) GetRun(c *gin.Context) {
	runID, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	run, err := h.service.GetRun(c.Request.Context(), runID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *RunHandler) ListRecords(c *gin.Context) {
	runID, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, err := h.service.Records(c.Request.Context(), runID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]map[string]any, len(records))
	for i, r := range records {
		out[i] = r.ToMap()
	}
	c.JSON(http.StatusOK, gin.H{"records": out, "count": len(out)})
}

func (h *RunHandler) writeError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.HasCode(err, errors.CodeValidationError), errors.HasCode(err, errors.CodeInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
