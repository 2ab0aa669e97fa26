package handlers

import (
	"net/http"
	"strconv"

	"contractrules-backend/index"

	"github.com/gin-gonic/gin"
)

// SearchHandler handles semantic search over the vector index
type SearchHandler struct {
	index *index.QdrantIndex
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(idx *index.QdrantIndex) *SearchHandler {
	return &SearchHandler{index: idx}
}

// Search handles GET /api/search
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "query parameter q is required",
			},
		})
		return
	}

	collection := index.SegmentCollection
	if c.DefaultQuery("kind", "segments") == "nodes" {
		collection = index.NodeCollection
	}

	limit, err := strconv.ParseUint(c.DefaultQuery("limit", "10"), 10, 64)
	if err != nil || limit == 0 || limit > 50 {
		limit = 10
	}

	hits, err := h.index.Search(c.Request.Context(), collection, query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SEARCH_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    hits,
	})
}
