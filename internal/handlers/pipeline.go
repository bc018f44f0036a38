package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/disputeflow-backend/internal/pipeline"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

type PipelineHandler struct {
	log      *logger.Logger
	pipeline *pipeline.Service
	defaults pipeline.Params
}

func NewPipelineHandler(log *logger.Logger, p *pipeline.Service, defaults pipeline.Params) *PipelineHandler {
	return &PipelineHandler{
		log:      log.With("handler", "PipelineHandler"),
		pipeline: p,
		defaults: defaults,
	}
}

type runPipelineRequest struct {
	Days          *int `json:"days"`
	MaxResults    *int `json:"max_results"`
	ClassifyLimit *int `json:"classify_limit"`
}

// POST /api/pipeline/run
func (h *PipelineHandler) Run(c *gin.Context) {
	params := h.defaults

	var req runPipelineRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if req.Days != nil {
		params.Days = *req.Days
	}
	if req.MaxResults != nil {
		params.MaxResults = *req.MaxResults
	}
	if req.ClassifyLimit != nil {
		params.ClassifyLimit = *req.ClassifyLimit
	}

	report, err := h.pipeline.Run(c.Request.Context(), params)
	if err != nil {
		h.log.Error("pipeline run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pipeline run failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}
