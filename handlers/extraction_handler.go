package handlers

import (
	"context"
	"net/http"

	"contractrules-backend/models"
	"contractrules-backend/repository"
	"contractrules-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ExtractionHandler handles HTTP requests for extraction runs
type ExtractionHandler struct {
	pipeline     *service.PipelineService
	runRepo      *repository.ExtractionRunRepository
	ruleRepo     *repository.RuleRepository
	graphRepo    *repository.GraphRepository
	analysisRepo *repository.AnalysisRepository
}

// NewExtractionHandler creates a new extraction handler
func NewExtractionHandler(
	pipeline *service.PipelineService,
	runRepo *repository.ExtractionRunRepository,
	ruleRepo *repository.RuleRepository,
	graphRepo *repository.GraphRepository,
	analysisRepo *repository.AnalysisRepository,
) *ExtractionHandler {
	return &ExtractionHandler{
		pipeline:     pipeline,
		runRepo:      runRepo,
		ruleRepo:     ruleRepo,
		graphRepo:    graphRepo,
		analysisRepo: analysisRepo,
	}
}

// StartExtraction handles POST /api/contracts/:id/extract
func (h *ExtractionHandler) StartExtraction(c *gin.Context) {
	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid contract ID format",
			},
		})
		return
	}

	run, err := h.pipeline.StartExtraction(c.Request.Context(), contractID)
	if err != nil {
		status := http.StatusInternalServerError
		code := "EXTRACTION_FAILED"
		switch err {
		case service.ErrContractNotFound:
			status = http.StatusNotFound
			code = "NOT_FOUND"
		case service.ErrNoContractText:
			status = http.StatusUnprocessableEntity
			code = "NO_CONTRACT_TEXT"
		}
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	// Heavy processing runs in the background on a fresh context so the
	// pipeline survives the request; clients poll the run.
	go func() {
		if err := h.pipeline.ProcessRun(context.Background(), run.ID); err != nil {
			log.WithFields(log.Fields{"run_id": run.ID, "error": err}).Error("extraction run failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"run_id":  run.ID,
			"status":  run.Status,
			"message": "Extraction started. Poll /api/runs/:id for updates.",
		},
	})
}

// GetRun handles GET /api/runs/:id
func (h *ExtractionHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid run ID format",
			},
		})
		return
	}

	run, err := h.runRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Extraction run not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    run,
	})
}

// RetryRun handles POST /api/runs/:id/retry
func (h *ExtractionHandler) RetryRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid run ID format",
			},
		})
		return
	}

	run, err := h.runRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Extraction run not found",
			},
		})
		return
	}
	if run.Status == models.RunStatusProcessing {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RUN_IN_PROGRESS",
				"message": "Extraction run is still processing",
			},
		})
		return
	}

	go func() {
		if err := h.pipeline.RetryExtraction(context.Background(), id); err != nil {
			log.WithFields(log.Fields{"run_id": id, "error": err}).Error("extraction retry failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"run_id":  id,
			"status":  "processing",
			"message": "Retry started. Poll /api/runs/:id for updates.",
		},
	})
}

// ListRunRules handles GET /api/runs/:id/rules
func (h *ExtractionHandler) ListRunRules(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid run ID format",
			},
		})
		return
	}

	rules, err := h.ruleRepo.ListByRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RETRIEVAL_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rules,
	})
}

// GetRunGraph handles GET /api/runs/:id/graph
func (h *ExtractionHandler) GetRunGraph(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid run ID format",
			},
		})
		return
	}

	nodes, err := h.graphRepo.ListNodesByRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RETRIEVAL_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	edges, err := h.graphRepo.ListEdgesByRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RETRIEVAL_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"nodes": nodes,
			"edges": edges,
		},
	})
}

// ListRunAnalyses handles GET /api/runs/:id/analyses
func (h *ExtractionHandler) ListRunAnalyses(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid run ID format",
			},
		})
		return
	}

	analyses, err := h.analysisRepo.ListByRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RETRIEVAL_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    analyses,
	})
}
