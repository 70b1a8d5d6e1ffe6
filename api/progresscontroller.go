package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterProgressRoutes registers curation progress routes.
func (s *Server) RegisterProgressRoutes(r *gin.Engine) {
	r.GET("/api/progress", s.handleProgressSummary)
	r.GET("/api/progress/:video_id", s.handleProgressVideo)
}

func (s *Server) handleProgressSummary(c *gin.Context) {
	summary := s.Store.Summarize()
	videos := gin.H{}
	for _, id := range s.Store.VideoIDs() {
		videos[id] = s.Store.Get(id)
	}
	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
		"videos":  videos,
	})
}

func (s *Server) handleProgressVideo(c *gin.Context) {
	videoID := c.Param("video_id")
	p := s.Store.Get(videoID)
	c.JSON(http.StatusOK, p)
}
