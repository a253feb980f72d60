// Package server exposes the question answering pipeline as an HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/paperqa/paperqa"
	"github.com/paperqa/paperqa/pkg/config"
	"github.com/paperqa/paperqa/pkg/server/handlers"
	"github.com/paperqa/paperqa/pkg/types"
)

// Service is the pipeline surface the server exposes.
type Service interface {
	paperqa.Indexer
	paperqa.Searcher
	paperqa.Answerer
	paperqa.Maintainer
}

// Server represents the HTTP server.
type Server struct {
	config *config.Config
	router *gin.Engine
	svc    Service
	server *http.Server

	classifier handlers.DocumentClassifier
	applier    handlers.MetadataApplier
	source     paperqa.DocumentSource
	processor  handlers.BatchProcessor
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithClassifier enables the classification endpoint.
func WithClassifier(classifier handlers.DocumentClassifier, applier handlers.MetadataApplier) Option {
	return func(s *Server) {
		s.classifier = classifier
		s.applier = applier
	}
}

// WithDocumentSource lets single-document operations fetch metadata from
// the source.
func WithDocumentSource(source paperqa.DocumentSource) Option {
	return func(s *Server) { s.source = source }
}

// WithProcessor enables the batch classification endpoints.
func WithProcessor(processor handlers.BatchProcessor) Option {
	return func(s *Server) { s.processor = processor }
}

// New creates a new server instance.
func New(cfg *config.Config, svc Service, opts ...Option) *Server {
	s := &Server{
		config: cfg,
		svc:    svc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Setup sets up the server routes and middleware.
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes.
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.svc)
	qaHandler := handlers.NewQAHandler(s.svc, s.svc)
	indexHandler := handlers.NewIndexHandler(s.svc, s.svc, s.source)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)
	s.router.GET("/health/detailed", healthHandler.DetailedHealthCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/ask", qaHandler.Ask)
		v1.POST("/search", qaHandler.Search)
		v1.POST("/index", indexHandler.Index)
		v1.DELETE("/index", indexHandler.Reset)
		v1.DELETE("/documents/:id", indexHandler.DeleteDocument)
		v1.GET("/stats", indexHandler.Stats)

		if s.classifier != nil {
			classifyHandler := handlers.NewClassifyHandler(s.classifier, s.applier, s.source)
			v1.POST("/classify", classifyHandler.Classify)
		}

		if s.processor != nil {
			documentsHandler := handlers.NewDocumentsHandler(s.processor)
			v1.GET("/documents/pending", documentsHandler.Pending)
			v1.POST("/documents/process", documentsHandler.Process)
		}
	}
}

// Handler returns the configured router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// contextMiddleware assigns a request id and tags the request source, so
// telemetry records can be traced back to one API call.
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx = context.WithValue(ctx, types.ContextKeyRequestID, requestID)
		c.Header("X-Request-ID", requestID)

		if sessionID := c.GetHeader("X-Session-ID"); sessionID != "" {
			ctx = context.WithValue(ctx, types.ContextKeySessionID, sessionID)
		}

		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
