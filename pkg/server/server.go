// Package server exposes the twin engine over HTTP: REST endpoints for
// triggering simulations and reading derived analytics, a WebSocket stream
// of cascade events, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinel-infra/gridtwin/pkg/api"
	"github.com/sentinel-infra/gridtwin/pkg/cascade"
	"github.com/sentinel-infra/gridtwin/pkg/logger"
	"github.com/sentinel-infra/gridtwin/pkg/riskfield"
	"github.com/sentinel-infra/gridtwin/pkg/stabilize"
	"github.com/sentinel-infra/gridtwin/pkg/twin"
)

// simulateTimeout bounds a single simulate or plan request.
const simulateTimeout = 30 * time.Second

// Config holds the HTTP server settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wires the engine into a gin router.
type Server struct {
	engine *twin.Engine
	router *gin.Engine
	hub    *Hub
	log    logger.Logger
}

// New builds the server and its routes. The returned server must be
// started with Run.
func New(engine *twin.Engine, log logger.Logger) *Server {
	if log == nil {
		log = logger.New()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine: engine,
		router: gin.New(),
		hub:    NewHub(log),
		log:    log,
	}
	s.router.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.engine.Metrics().Registry, promhttp.HandlerOpts{})))
	s.router.GET("/ws/cascade", s.hub.Serve)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/cascade/simulate", s.simulate)
		v1.GET("/cascade/latest", s.latestResult)
		v1.POST("/stabilization/plan", s.generatePlan)
		v1.GET("/stabilization/plans", s.listPlans)
		v1.POST("/stabilization/actions/:id/execute", s.executeAction)
		v1.GET("/resilience", s.resilience)
		v1.GET("/resilience/heatmap", s.heatmap)
		v1.GET("/resilience/:district", s.districtScore)
		v1.GET("/riskfield", s.riskField)
		v1.GET("/topology", s.topology)
		v1.POST("/topology/reset", s.resetTopology)
	}
}

// Handler returns the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until the context is cancelled, forwarding engine results to
// WebSocket subscribers in the background.
func (s *Server) Run(ctx context.Context, cfg Config) error {
	go s.hub.Forward(ctx, s.engine.Subscribe())

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Status:    "ok",
		NodeCount: s.engine.Store().NodeCount(),
	})
}

func (s *Server) simulate(c *gin.Context) {
	var req api.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), simulateTimeout)
	defer cancel()

	result, err := s.engine.Simulate(ctx, req.Trigger())
	if err != nil {
		var verr *cascade.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: verr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) latestResult(c *gin.Context) {
	result := s.engine.LastResult()
	if result == nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "no simulation has completed yet"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) generatePlan(c *gin.Context) {
	var req api.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), simulateTimeout)
	defer cancel()

	plan, err := s.engine.GeneratePlan(ctx, req.Trigger())
	if err != nil {
		var na *stabilize.NotApplicableError
		if errors.As(err, &na) {
			c.JSON(http.StatusOK, api.NotApplicableResponse{
				Status:             "not_applicable",
				CascadeProbability: na.Probability,
				Threshold:          na.Threshold,
			})
			return
		}
		var verr *cascade.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: verr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) listPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": s.engine.ActivePlans()})
}

func (s *Server) executeAction(c *gin.Context) {
	record, err := s.engine.ExecuteAction(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) resilience(c *gin.Context) {
	scores, err := s.engine.Resilience()
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"districts": scores})
}

func (s *Server) districtScore(c *gin.Context) {
	score, err := s.engine.ScoreDistrict(c.Param("district"))
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, score)
}

func (s *Server) heatmap(c *gin.Context) {
	heatmap, err := s.engine.Heatmap()
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, heatmap)
}

func (s *Server) riskField(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.RiskField([]riskfield.Observation{}))
}

func (s *Server) topology(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": s.engine.Store().Snapshot()})
}

func (s *Server) resetTopology(c *gin.Context) {
	s.engine.ResetTopology()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
