package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pfrederiksen/opera-events/internal/config"
	"github.com/pfrederiksen/opera-events/internal/event"
	"github.com/pfrederiksen/opera-events/internal/logger"
	"github.com/pfrederiksen/opera-events/internal/metrics"
	"github.com/pfrederiksen/opera-events/internal/scraper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ShutdownTimeout bounds how long in-flight requests may run after the
// server has been asked to stop.
const ShutdownTimeout = 30 * time.Second

// Searcher is the scraping backend used by the handlers.
// *scraper.Scraper implements it.
type Searcher interface {
	Search(ctx context.Context, q scraper.Query) ([]*event.Event, error)
	Detail(ctx context.Context, detailURL string) (*event.DetailInfo, error)
}

// Options configures a Server. The zero value is usable.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Gatherer backs GET /metrics. The route is not registered when nil.
	Gatherer prometheus.Gatherer
	CORS     CORSConfig
	// DetailHost restricts GET /detail to URLs on this host. Empty allows
	// any host.
	DetailHost string
}

// Server routes API requests to a Searcher
type Server struct {
	searcher   Searcher
	log        *zap.Logger
	router     *gin.Engine
	detailHost string
}

// New creates a Server with all routes and middleware installed
func New(searcher Searcher, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.L()
	}
	cors := opts.CORS
	if len(cors.AllowOrigins) == 0 {
		cors = DefaultCORSConfig()
	}

	s := &Server{
		searcher:   searcher,
		log:        log,
		router:     gin.New(),
		detailHost: opts.DetailHost,
	}

	s.router.Use(
		gin.CustomRecovery(s.recover),
		RequestID(),
		CORS(cors),
		Logger(log),
		Metrics(opts.Metrics),
	)

	s.router.GET("/health", s.health)
	if opts.Gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	events := s.router.Group("/api/v1/events")
	{
		events.GET("/search", s.searchGet)
		events.POST("/search", s.searchPost)
		events.GET("/get_operas", s.getOperas)
		events.GET("/detail", s.detail)
	}

	return s
}

// Handler returns the HTTP handler for the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on cfg.Addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Addr, err)
	}
	return s.Serve(ctx, ln, cfg)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener, cfg config.ServerConfig) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.log.Info("Server exited gracefully")
	return nil
}

func (s *Server) recover(c *gin.Context, recovered any) {
	s.log.Error("Panic recovered",
		zap.String("request_id", GetRequestID(c)),
		zap.Any("panic", recovered),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Detail: "internal server error"})
}
