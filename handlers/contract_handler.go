package handlers

import (
	"net/http"
	"strconv"

	"contractrules-backend/models"
	"contractrules-backend/repository"
	"contractrules-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ContractHandler handles HTTP requests for contracts
type ContractHandler struct {
	contractRepo *repository.ContractRepository
	documents    storage.DocumentStore
}

// NewContractHandler creates a new contract handler
func NewContractHandler(contractRepo *repository.ContractRepository, documents storage.DocumentStore) *ContractHandler {
	return &ContractHandler{
		contractRepo: contractRepo,
		documents:    documents,
	}
}

// CreateContractRequest represents the request body for creating a contract
type CreateContractRequest struct {
	Title string `json:"title" binding:"required"`
	Text  string `json:"text" binding:"required"`
}

// CreateContract handles POST /api/contracts
func (h *ContractHandler) CreateContract(c *gin.Context) {
	var req CreateContractRequest
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

	contract := &models.Contract{
		Title:    req.Title,
		Status:   models.ContractStatusDraft,
		FullText: &req.Text,
	}

	if err := h.contractRepo.Create(c.Request.Context(), contract); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CREATE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	// Keep a durable copy of the raw text; the contract row stays usable
	// even if this fails.
	if h.documents != nil {
		key, err := h.documents.Save(c.Request.Context(), contract.ID, req.Text)
		if err != nil {
			log.WithFields(log.Fields{"contract_id": contract.ID, "error": err}).Warn("failed to store contract document")
		} else if err := h.contractRepo.SetDocumentKey(c.Request.Context(), contract.ID, key); err != nil {
			log.WithFields(log.Fields{"contract_id": contract.ID, "error": err}).Warn("failed to record document key")
		} else {
			contract.DocumentKey = &key
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    contract,
	})
}

// GetContract handles GET /api/contracts/:id
func (h *ContractHandler) GetContract(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
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

	contract, err := h.contractRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Contract not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    contract,
	})
}

// ListContracts handles GET /api/contracts
func (h *ContractHandler) ListContracts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	contracts, err := h.contractRepo.List(c.Request.Context(), limit, offset)
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
		"data":    contracts,
	})
}
