package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slidekb/search"
)

// SearchRequest is the POST /api/search payload.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

// RegisterSearchRoutes registers the semantic search route.
func (s *Server) RegisterSearchRoutes(r *gin.Engine) {
	r.POST("/api/search", s.handleSearch)
}

func (s *Server) handleSearch(c *gin.Context) {
	if s.Embedder == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured, set COHERE_API_KEY"})
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.K <= 0 {
		req.K = 5
	}

	// The index is immutable once built; load it on first use.
	s.indexOnce.Do(func() {
		idx, err := search.LoadIndex(s.Config.IndexPath())
		if err != nil {
			s.indexErr = err
			return
		}
		s.index = idx
	})
	if s.indexErr != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": s.indexErr.Error()})
		return
	}

	results, err := search.Query(c.Request.Context(), s.index, s.Embedder, req.Query, req.K)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": req.Query, "results": results})
}
