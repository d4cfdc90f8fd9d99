package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/JEEEEEEHO/currecnyAlert/internal/config"
	"github.com/JEEEEEEHO/currecnyAlert/internal/service"
	"github.com/JEEEEEEHO/currecnyAlert/internal/storage"
)

// RatePipeline is the slice of the service layer the HTTP API needs.
type RatePipeline interface {
	LatestOrLive(ctx context.Context, base, target string) (service.RateQuote, error)
	ComputeStoreAndNotify(ctx context.Context, base, target string) (storage.RateStat, error)
}

// StatHistory reads persisted statistics for the history endpoint.
type StatHistory interface {
	ListRecentStats(ctx context.Context, base, target string, limit int) ([]storage.RateStat, error)
}

// Server exposes the read API over HTTP.
type Server struct {
	cfg           config.ServerConfig
	pipeline      RatePipeline
	history       StatHistory
	defaultBase   string
	defaultTarget string
	logger        zerolog.Logger
	engine        *gin.Engine
}

// New constructs the HTTP server and its routes.
func New(cfg config.ServerConfig, environment string, pipeline RatePipeline, history StatHistory, defaultBase, defaultTarget string, logger zerolog.Logger) *Server {
	if environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:           cfg,
		pipeline:      pipeline,
		history:       history,
		defaultBase:   defaultBase,
		defaultTarget: defaultTarget,
		logger:        logger.With().Str("component", "http_server").Logger(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	{
		api.GET("/rates/latest", s.handleLatest)
		api.GET("/rates/history", s.handleHistory)
		api.POST("/rates/compute", s.handleCompute)
	}

	s.engine = engine
	return s
}

// Router exposes the underlying gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Run serves until the context is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleLatest(c *gin.Context) {
	base := c.Query("base")
	target := c.Query("target")

	quote, err := s.pipeline.LatestOrLive(c.Request.Context(), base, target)
	if err != nil {
		s.logger.Error().Err(err).Str("base", base).Str("target", target).Msg("latest quote failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, quote)
}

type statView struct {
	Base         string    `json:"base"`
	Target       string    `json:"target"`
	CurrentRate  string    `json:"current_rate"`
	Avg3Y        string    `json:"avg_3y"`
	Status       string    `json:"status"`
	CalculatedAt time.Time `json:"calculated_at"`
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence not configured"})
		return
	}

	base := c.Query("base")
	if base == "" {
		base = s.defaultBase
	}
	target := c.Query("target")
	if target == "" {
		target = s.defaultTarget
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	stats, err := s.history.ListRecentStats(c.Request.Context(), base, target, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("history lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]statView, 0, len(stats))
	for _, stat := range stats {
		views = append(views, statView{
			Base:         stat.Base,
			Target:       stat.Target,
			CurrentRate:  stat.CurrentRate.String(),
			Avg3Y:        stat.Avg3Y.String(),
			Status:       stat.Status,
			CalculatedAt: stat.CalculatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": views})
}

func (s *Server) handleCompute(c *gin.Context) {
	base := c.Query("base")
	target := c.Query("target")

	stat, err := s.pipeline.ComputeStoreAndNotify(c.Request.Context(), base, target)
	if err != nil {
		s.logger.Error().Err(err).Str("base", base).Str("target", target).Msg("on-demand computation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, statView{
		Base:         stat.Base,
		Target:       stat.Target,
		CurrentRate:  stat.CurrentRate.String(),
		Avg3Y:        stat.Avg3Y.String(),
		Status:       stat.Status,
		CalculatedAt: stat.CalculatedAt,
	})
}
