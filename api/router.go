// Package api exposes the knowledge base over HTTP: curation progress,
// slide metadata, and semantic search.
package api

import (
	"sync"

	"github.com/gin-gonic/gin"

	"slidekb/config"
	"slidekb/progress"
	"slidekb/search"
)

// Server carries the dependencies the route handlers need.
type Server struct {
	Config   config.SlideConfig
	Store    *progress.Store
	Embedder search.Embedder

	indexOnce sync.Once
	index     *search.Index
	indexErr  error
}

// NewServer creates an API server over an opened progress store. Embedder
// may be nil, in which case search routes report unavailable.
func NewServer(cfg config.SlideConfig, store *progress.Store, embedder search.Embedder) *Server {
	return &Server{Config: cfg, Store: store, Embedder: embedder}
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	RegisterHealthRoutes(r)
	s.RegisterProgressRoutes(r)
	s.RegisterSlideRoutes(r)
	s.RegisterSearchRoutes(r)
	return r
}
