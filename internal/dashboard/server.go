// Package dashboard serves the appliance web API: bin levels, manual control
// and a websocket push channel for live events.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"polybin/internal/arbiter"
	"polybin/internal/models"
	"polybin/internal/sensor"
)

// Controller performs a manual disposal through the arbiter
type Controller interface {
	ManualDispose(ctx context.Context, category models.WasteCategory) (arbiter.Outcome, error)
}

// LevelSource provides the latest sensor snapshot
type LevelSource interface {
	Snapshot() sensor.Snapshot
}

// History queries past disposals from the audit store
type History interface {
	RecentDisposals(ctx context.Context, limit int) ([]models.DisposeRecord, error)
	DisposalCounts(ctx context.Context, since time.Time) (map[string]uint64, error)
}

// Config holds dashboard settings
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
}

// Server is the dashboard HTTP server
type Server struct {
	cfg     Config
	router  *gin.Engine
	hub     *Hub
	levels  LevelSource
	control Controller
	history History // nil when no audit store is configured
	status  func() interface{}
}

// NewServer creates the dashboard. history and status may be nil.
func NewServer(cfg Config, hub *Hub, levels LevelSource, control Controller, history History, status func() interface{}) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		router:  gin.New(),
		hub:     hub,
		levels:  levels,
		control: control,
		history: history,
		status:  status,
	}
	s.router.Use(gin.Recovery())
	if cfg.Debug {
		s.router.Use(gin.Logger())
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/sensor_data", s.getSensorData)
	s.router.GET("/status", s.getStatus)
	s.router.GET("/history", s.getHistory)
	s.router.POST("/control", s.postControl)
	s.router.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Dashboard: listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dashboard server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down dashboard: %w", err)
	}
	log.Println("Dashboard: stopped")
	return nil
}

// Handlers

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) getSensorData(c *gin.Context) {
	c.JSON(http.StatusOK, s.levels.Snapshot().Levels.SensorMap())
}

func (s *Server) getStatus(c *gin.Context) {
	snap := s.levels.Snapshot()
	resp := gin.H{
		"levels":     snap.Levels.SensorMap(),
		"updated_at": snap.UpdatedAt,
		"clients":    s.hub.ClientCount(),
	}
	if s.status != nil {
		resp["services"] = s.status()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history not available"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	ctx := c.Request.Context()
	recent, err := s.history.RecentDisposals(ctx, limit)
	if err != nil {
		log.Printf("Dashboard: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	counts, err := s.history.DisposalCounts(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		log.Printf("Dashboard: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	if recent == nil {
		recent = []models.DisposeRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"recent": recent, "last_24h": counts})
}

// ControlRequest is the manual control body
type ControlRequest struct {
	Action string `json:"action" binding:"required"`
}

func (s *Server) postControl(c *gin.Context) {
	var req ControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	category, ok := models.ParseAction(req.Action)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}

	outcome, err := s.control.ManualDispose(c.Request.Context(), category)
	if err != nil {
		log.Printf("Dashboard: manual %s failed: %v", req.Action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "failed", "error": err.Error()})
		return
	}

	log.Printf("Dashboard: manual %s -> %s", req.Action, outcome)
	c.JSON(http.StatusOK, gin.H{"status": ControlStatus(outcome)})
}

// ControlStatus is the status string reported for a manual disposal
func ControlStatus(o arbiter.Outcome) string {
	switch o.Kind {
	case arbiter.Disposed:
		return o.Category.Description()
	case arbiter.RejectedCooldown:
		return "cooldown in effect"
	case arbiter.RejectedFull:
		return "bin full"
	default:
		return "failed"
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	s.hub.Serve(c.Writer, c.Request)
}
