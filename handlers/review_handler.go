package handlers

import (
	"net/http"

	"contractrules-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReviewHandler handles HTTP requests for the review queue
type ReviewHandler struct {
	reviewService *service.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// ListReviews handles GET /api/reviews
func (h *ReviewHandler) ListReviews(c *gin.Context) {
	var assignee *string
	if a := c.Query("assignee"); a != "" {
		assignee = &a
	}

	tasks, err := h.reviewService.ListPending(c.Request.Context(), assignee)
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
		"data":    tasks,
	})
}

// ResolveReviewRequest represents the request body for resolving a task
type ResolveReviewRequest struct {
	Assignee *string `json:"assignee"`
	Notes    *string `json:"notes"`
}

// ApproveReview handles POST /api/reviews/:id/approve
func (h *ReviewHandler) ApproveReview(c *gin.Context) {
	h.resolve(c, true)
}

// RejectReview handles POST /api/reviews/:id/reject
func (h *ReviewHandler) RejectReview(c *gin.Context) {
	h.resolve(c, false)
}

func (h *ReviewHandler) resolve(c *gin.Context, approve bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid review task ID format",
			},
		})
		return
	}

	var req ResolveReviewRequest
	// Body is optional
	_ = c.ShouldBindJSON(&req)

	var task interface{}
	if approve {
		task, err = h.reviewService.Approve(c.Request.Context(), id, req.Assignee, req.Notes)
	} else {
		task, err = h.reviewService.Reject(c.Request.Context(), id, req.Assignee, req.Notes)
	}
	if err != nil {
		status := http.StatusInternalServerError
		code := "RESOLVE_FAILED"
		switch err {
		case service.ErrReviewNotFound:
			status = http.StatusNotFound
			code = "NOT_FOUND"
		case service.ErrReviewResolved:
			status = http.StatusConflict
			code = "ALREADY_RESOLVED"
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

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    task,
	})
}
