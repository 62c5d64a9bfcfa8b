package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/synthmem/pkg/server/dto"
)

// ScenarioRunner runs one build-and-generate pass for a world description
// and reports the artifacts it produced.
type ScenarioRunner interface {
	RunScenario(ctx context.Context, req *dto.GenerateScenarioRequest) (*dto.GenerateScenarioResponse, error)
}

// ScenarioHandler handles scenario generation requests
type ScenarioHandler struct {
	runner ScenarioRunner
}

// NewScenarioHandler creates a new scenario handler
func NewScenarioHandler(runner ScenarioRunner) *ScenarioHandler {
	return &ScenarioHandler{
		runner: runner,
	}
}

// Generate handles POST /api/v1/scenarios
func (h *ScenarioHandler) Generate(c *gin.Context) {
	var req dto.GenerateScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation failed",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "generation unavailable",
			Message: "no text generation client configured",
			Code:    http.StatusServiceUnavailable,
		})
		return
	}

	resp, err := h.runner.RunScenario(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "generation failed",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
