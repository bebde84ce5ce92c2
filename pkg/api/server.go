// Package api provides the thin gin HTTP transport wiring every operation
// in pkg/recorder, pkg/storage, pkg/effective, pkg/retrieval,
// pkg/decisions, pkg/capsules, pkg/orchestrator and pkg/handoff to a JSON
// surface. Authentication itself is out of scope (the core assumes
// verified tenant_id/actor on every call) — tenantMiddleware below stands
// in for that assumed upstream layer by reading trusted headers, the same
// role echo's auth middleware plays ahead of the teacher's handlers.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/callin2/agent-memory-sub006/pkg/capsules"
	"github.com/callin2/agent-memory-sub006/pkg/config"
	"github.com/callin2/agent-memory-sub006/pkg/consolidation"
	"github.com/callin2/agent-memory-sub006/pkg/database"
	"github.com/callin2/agent-memory-sub006/pkg/decisions"
	"github.com/callin2/agent-memory-sub006/pkg/handoff"
	"github.com/callin2/agent-memory-sub006/pkg/metrics"
	"github.com/callin2/agent-memory-sub006/pkg/orchestrator"
	"github.com/callin2/agent-memory-sub006/pkg/recorder"
	"github.com/callin2/agent-memory-sub006/pkg/retrieval"
	"github.com/callin2/agent-memory-sub006/pkg/storage"
	"github.com/callin2/agent-memory-sub006/pkg/version"
)

// Server is the HTTP API server. Every collaborator is wired once at
// construction — unlike the teacher's Server, which grows optional
// services via Set* calls as later phases land, this surface is closed:
// every operation it needs exists by the time NewServer runs.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	cfg *config.Config

	dbClient     *database.Client
	store        *storage.Storage
	rec          *recorder.Recorder
	retriever    *retrieval.Retriever
	ledger       *decisions.Ledger
	capsules     *capsules.Service
	orchestrator *orchestrator.Builder
	handoffs     *handoff.Service
	worker       *consolidation.Worker
	metrics      *metrics.Registry
}

// New wires a Server against every collaborator and registers its routes.
func New(
	cfg *config.Config,
	dbClient *database.Client,
	store *storage.Storage,
	rec *recorder.Recorder,
	retriever *retrieval.Retriever,
	ledger *decisions.Ledger,
	capsuleSvc *capsules.Service,
	builder *orchestrator.Builder,
	handoffSvc *handoff.Service,
	worker *consolidation.Worker,
	reg *metrics.Registry,
) *Server {
	gin.SetMode(cfg.GinMode)
	e := gin.New()
	e.Use(gin.Recovery())

	s := &Server{
		engine:       e,
		cfg:          cfg,
		dbClient:     dbClient,
		store:        store,
		rec:          rec,
		retriever:    retriever,
		ledger:       ledger,
		capsules:     capsuleSvc,
		orchestrator: builder,
		handoffs:     handoffSvc,
		worker:       worker,
		metrics:      reg,
	}

	s.setupRoutes()
	return s
}

// Engine exposes the underlying gin engine, e.g. for test harnesses that
// want to drive requests with httptest.NewRecorder without a real listener.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.Use(gin.Logger())

	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/metrics", s.metricsHandler)

	v1 := s.engine.Group("/v1")
	v1.Use(s.tenantMiddleware)

	v1.POST("/events", s.recordEventHandler)
	v1.GET("/events/:id", s.getEventHandler)
	v1.GET("/events", s.listEventsHandler)

	v1.POST("/acb", s.buildACBHandler)

	v1.GET("/chunks", s.getChunksHandler)
	v1.GET("/chunks/search", s.searchChunksHandler)
	v1.GET("/chunks/timeline", s.getTimelineHandler)

	v1.POST("/decisions", s.createDecisionHandler)
	v1.POST("/decisions/:id/supersede", s.supersedeDecisionHandler)
	v1.GET("/decisions/active", s.listActiveDecisionsHandler)

	v1.POST("/tasks", s.createTaskHandler)
	v1.PATCH("/tasks/:id", s.updateTaskHandler)
	v1.GET("/tasks/:id", s.getTaskHandler)
	v1.GET("/tasks", s.listTasksHandler)
	v1.DELETE("/tasks/:id", s.deleteTaskHandler)
	v1.GET("/projects/:id/summary", s.getProjectSummaryHandler)

	v1.POST("/capsules", s.createCapsuleHandler)
	v1.GET("/capsules/:id", s.getCapsuleHandler)
	v1.GET("/capsules", s.listCapsulesHandler)
	v1.POST("/capsules/:id/revoke", s.revokeCapsuleHandler)

	v1.POST("/memory-edits", s.applyMemoryEditHandler)
	v1.GET("/memory-edits", s.listMemoryEditsHandler)
	v1.POST("/memory-edits/:id/approve", s.approveMemoryEditHandler)

	v1.POST("/handoffs", s.createHandoffHandler)
	v1.GET("/handoffs/last", s.getLastHandoffHandler)
	v1.POST("/wake-up", s.wakeUpStratifiedHandler)
}

// Start runs the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// StartWithListener runs the HTTP server on a pre-created listener, the
// same escape hatch the teacher's Server offers test harnesses that bind
// an OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully drains the HTTP server, then stops the
// consolidation worker if one was wired in.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status   string                 `json:"status"`
	Version  string                 `json:"version"`
	Database *database.HealthStatus `json:"database"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(ctx, s.dbClient.DB())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Version: version.Full(), Database: dbHealth})
		return
	}
	c.JSON(http.StatusOK, healthResponse{Status: "healthy", Version: version.Full(), Database: dbHealth})
}

func (s *Server) metricsHandler(c *gin.Context) {
	if s.metrics == nil {
		c.JSON(http.StatusOK, metrics.Snapshot{})
		return
	}
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}
