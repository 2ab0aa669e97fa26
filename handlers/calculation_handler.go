package handlers

import (
	"net/http"

	"contractrules-backend/engine"
	"contractrules-backend/models"
	"contractrules-backend/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CalculationHandler handles HTTP requests for royalty calculations
type CalculationHandler struct {
	ruleRepo *repository.RuleRepository
}

// NewCalculationHandler creates a new calculation handler
func NewCalculationHandler(ruleRepo *repository.RuleRepository) *CalculationHandler {
	return &CalculationHandler{ruleRepo: ruleRepo}
}

// CalculateForContract handles POST /api/contracts/:id/calculate. It
// evaluates the contract's active rules against the posted input.
func (h *CalculationHandler) CalculateForContract(c *gin.Context) {
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

	var input models.CalculationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	synthesized, err := h.ruleRepo.ListActiveByContract(c.Request.Context(), contractID)
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

	rules, warnings := engine.FromSynthesized(synthesized)

	result, err := engine.Calculate(rules, input)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CALCULATION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}
	result.Warnings = append(result.Warnings, warnings...)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// AdhocCalculationRequest carries a self-contained rule set plus input.
type AdhocCalculationRequest struct {
	Rules []models.RoyaltyRule    `json:"rules" binding:"required"`
	Input models.CalculationInput `json:"input" binding:"required"`
}

// Calculate handles POST /api/calculate. The caller supplies the rules
// directly; nothing is read from the database.
func (h *CalculationHandler) Calculate(c *gin.Context) {
	var req AdhocCalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	result, err := engine.Calculate(req.Rules, req.Input)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CALCULATION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
