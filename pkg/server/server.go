// Package server exposes scenario generation and document preview over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundprediction/synthmem"
	"github.com/soundprediction/synthmem/pkg/config"
	"github.com/soundprediction/synthmem/pkg/export"
	"github.com/soundprediction/synthmem/pkg/nlp"
	"github.com/soundprediction/synthmem/pkg/server/dto"
	"github.com/soundprediction/synthmem/pkg/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	client nlp.Client
	logger *slog.Logger
	router *gin.Engine
	server *http.Server
}

// New creates a new server instance. client may be nil, in which case the
// scenario endpoint reports the service unavailable and only previews work.
func New(cfg *config.Config, client nlp.Client, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	// Set gin mode
	gin.SetMode(s.config.Server.Mode)

	// Create router
	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(requestIDMiddleware())

	// Setup routes
	s.setupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.client != nil)
	previewHandler := handlers.NewPreviewHandler()

	var runner handlers.ScenarioRunner
	if s.client != nil {
		runner = &pipelineRunner{config: s.config, client: s.client, logger: s.logger}
	}
	scenarioHandler := handlers.NewScenarioHandler(runner)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck) // Kubernetes liveness probe

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/scenarios", scenarioHandler.Generate)
		v1.POST("/preview/documents", previewHandler.Documents)
	}
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

// pipelineRunner adapts the generation pipeline to the scenario handler. A
// fresh pipeline is built per request so per-request knobs apply.
type pipelineRunner struct {
	config *config.Config
	client nlp.Client
	logger *slog.Logger
}

func (r *pipelineRunner) RunScenario(ctx context.Context, req *dto.GenerateScenarioRequest) (*dto.GenerateScenarioResponse, error) {
	gen := r.config.Generation
	if req.People > 0 {
		gen.People = req.People
	}
	if req.Entities > 0 {
		gen.Entities = req.Entities
	}
	if req.FocalNodes > 0 {
		gen.FocalNodes = req.FocalNodes
	}
	if req.QueriesPerHop > 0 {
		gen.QueriesPerHop = req.QueriesPerHop
	}
	if req.UpdatesPerNode > 0 {
		gen.UpdatesPerNode = req.UpdatesPerNode
	}
	if req.Seed != 0 {
		gen.Seed = req.Seed
	}

	pipeline := synthmem.New(r.client, synthmem.Options{
		Radius:         gen.Radius,
		QueriesPerHop:  gen.QueriesPerHop,
		UpdatesPerNode: gen.UpdatesPerNode,
		FocalNodes:     gen.FocalNodes,
		Workers:        gen.Workers,
		Seed:           gen.Seed,
		Phrase:         gen.Phrase,
		FocalTimeout:   time.Duration(gen.FocalTimeoutSeconds) * time.Second,
	}, r.logger)

	result, err := pipeline.Run(ctx, req.Description, gen.People, gen.Entities)
	if err != nil {
		return nil, err
	}

	instance, err := export.NewInstance(r.config.Output.BaseDir)
	if err != nil {
		return nil, err
	}
	if err := instance.WriteGraph(result.Graph); err != nil {
		return nil, err
	}
	for _, memory := range result.Memories {
		if err := instance.WriteMemory(memory); err != nil {
			return nil, err
		}
	}

	return &dto.GenerateScenarioResponse{
		InstanceID:   instance.ID,
		InstancePath: instance.Path,
		Nodes:        len(result.Graph.Nodes()),
		Edges:        len(result.Graph.Edges()),
		Reports:      result.Reports,
	}, nil
}

// requestIDMiddleware tags every request with an id for log correlation,
// honoring an id supplied by the caller.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
