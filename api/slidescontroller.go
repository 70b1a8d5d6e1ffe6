package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"slidekb/slides"
)

// RegisterSlideRoutes registers slide metadata routes.
func (s *Server) RegisterSlideRoutes(r *gin.Engine) {
	r.GET("/api/videos", s.handleListVideos)
	r.GET("/api/videos/:video_id/slides", s.handleVideoSlides)
}

func (s *Server) handleListVideos(c *gin.Context) {
	ids, err := slides.ListVideoDirs(s.Config.SlidesRoot())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		entry := gin.H{"video_id": id}
		if meta, err := slides.LoadMetadata(s.Config.MetadataPath(id)); err == nil {
			entry["title"] = meta.Title
			entry["stats"] = meta.Stats
			entry["human_reviewed"] = meta.HumanReviewed
			entry["metadata_synced"] = meta.MetadataSynced
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"videos": out})
}

func (s *Server) handleVideoSlides(c *gin.Context) {
	videoID := c.Param("video_id")
	meta, err := slides.LoadMetadata(s.Config.MetadataPath(videoID))
	if err != nil {
		if errors.Is(err, slides.ErrNoMetadata) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no slides extracted for " + videoID})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, meta)
}
