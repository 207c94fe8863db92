package pipelinehttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"polyflow/internal/bus"
	"polyflow/internal/logger"
	"polyflow/internal/monitor"
	"polyflow/internal/risk"
	"polyflow/internal/signal"
	"polyflow/internal/store"
)

// AuditReader exposes the risk decision trail for the API.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]risk.AuditEntry, error)
}

// Server exposes the pipeline's state over HTTP: health, metrics, the
// bounded event history, positions, journaled trades, and memory.
type Server struct {
	addr    string
	bus     *bus.Bus
	gate    *risk.Gate
	signals *signal.Service
	monitor *monitor.Service
	journal store.Journal
	audit   AuditReader
	router  *gin.Engine
}

// Config describes the server's dependencies. Journal and Audit are
// optional; their endpoints answer 404 when disabled.
type Config struct {
	Addr    string
	Bus     *bus.Bus
	Gate    *risk.Gate
	Signals *signal.Service
	Monitor *monitor.Service
	Journal store.Journal
	Audit   AuditReader
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Bus == nil {
		return nil, errors.New("bus cannot be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:    cfg.Addr,
		bus:     cfg.Bus,
		gate:    cfg.Gate,
		signals: cfg.Signals,
		monitor: cfg.Monitor,
		journal: cfg.Journal,
		audit:   cfg.Audit,
		router:  router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/pipeline")
	api.GET("/status", s.handleStatus)
	api.GET("/events", s.handleEvents)
	api.GET("/positions", s.handlePositions)
	api.GET("/trades", s.handleTrades)
	api.GET("/memory", s.handleMemory)
	api.GET("/audit", s.handleAudit)
}

func limitParam(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func (s *Server) handleStatus(c *gin.Context) {
	status := gin.H{"events": s.bus.Len()}
	if s.gate != nil {
		status["exposure"] = s.gate.Exposure()
		status["open_positions"] = len(s.gate.OpenPositions())
	}
	if s.signals != nil {
		status["pending_signals"] = s.signals.PendingCount()
	}
	if s.monitor != nil {
		status["tracked_trades"] = s.monitor.TradeCount()
		status["memory_size"] = s.monitor.Memory().Len()
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleEvents(c *gin.Context) {
	history := s.bus.History()
	limit := limitParam(c, 100)
	if limit < len(history) {
		history = history[len(history)-limit:]
	}
	c.JSON(http.StatusOK, gin.H{"events": history})
}

func (s *Server) handlePositions(c *gin.Context) {
	if s.gate == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "risk gate not wired"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": s.gate.OpenPositions()})
}

func (s *Server) handleTrades(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "journal disabled"})
		return
	}
	trades, err := s.journal.RecentTrades(c.Request.Context(), limitParam(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleMemory(c *gin.Context) {
	if s.monitor == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "monitor not wired"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"memory": s.monitor.Memory().Recent(limitParam(c, 100))})
}

func (s *Server) handleAudit(c *gin.Context) {
	if s.audit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit log disabled"})
		return
	}
	entries, err := s.audit.Recent(c.Request.Context(), limitParam(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Start runs the server until ctx is cancelled or it fails.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("http: listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }
