// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/epgcast/internal/api"
	"github.com/stwalsh4118/epgcast/internal/channel"
	"github.com/stwalsh4118/epgcast/internal/config"
	"github.com/stwalsh4118/epgcast/internal/db"
	"github.com/stwalsh4118/epgcast/internal/guide"
	"github.com/stwalsh4118/epgcast/internal/history"
	"github.com/stwalsh4118/epgcast/internal/logger"
	"github.com/stwalsh4118/epgcast/internal/metrics"
	"github.com/stwalsh4118/epgcast/internal/middleware"
	"github.com/stwalsh4118/epgcast/internal/streaming"
)

// Server represents the HTTP server
type Server struct {
	config   *config.Config
	db       *db.DB
	repos    *db.Repositories
	metrics  *metrics.Metrics
	engine   *streaming.Engine
	history  *history.Recorder
	channels *channel.Service
	router   *gin.Engine
	server   *http.Server

	// cancelling streamCtx ends every open channel stream
	streamCtx     context.Context
	cancelStreams context.CancelFunc
}

// New wires the streaming engine and its collaborators from cfg. A nil
// database disables stream history.
func New(cfg *config.Config, database *db.DB) *Server {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	fetcher := guide.NewFetcher(cfg.FetcherConfig(), nil)
	chain := cfg.UpstreamChain()
	streamCfg := cfg.StreamingConfig()
	assembler := streaming.NewAssembler(streaming.NewFFmpegFactory(streamCfg), streamCfg.ChunkSize)

	opts := []streaming.Option{streaming.WithMetrics(m)}

	var repos *db.Repositories
	var recorder *history.Recorder
	if database != nil {
		repos = db.NewRepositories(database)
		recorder = history.NewRecorder(repos.Sessions)
		opts = append(opts, streaming.WithRecorder(recorder))
	}

	streamCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:        cfg,
		db:            database,
		repos:         repos,
		metrics:       m,
		history:       recorder,
		engine:        streaming.NewEngine(fetcher, chain, assembler, opts...),
		channels:      channel.NewService(fetcher, cfg.Guide.URL),
		streamCtx:     streamCtx,
		cancelStreams: cancel,
	}
	s.setupRouter()
	return s
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(gin.Recovery())
	s.router.Use(cors.Default())
	if s.metrics != nil {
		s.router.Use(middleware.Metrics(s.metrics))
		s.router.GET(s.config.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	apiGroup := s.router.Group("/api")

	// a typed nil *db.DB must not reach the health handler as a non-nil interface
	if s.db != nil {
		api.SetupHealthRoutes(apiGroup, s.db, s.engine.Registry())
		api.SetupSessionRoutes(apiGroup, s.repos.Sessions)
	} else {
		api.SetupHealthRoutes(apiGroup, nil, s.engine.Registry())
	}
	api.SetupChannelRoutes(s.router, apiGroup, s.channels)
	api.SetupStreamRoutes(s.router, apiGroup, s.engine)
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.Server.ReadTimeout,
		ReadTimeout:       s.config.Server.ReadTimeout,
		WriteTimeout:      s.config.Server.WriteTimeout,
		MaxHeaderBytes:    1 << 20, // 1 MB
		BaseContext: func(net.Listener) context.Context {
			return s.streamCtx
		},
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Str("guide_url", s.config.Guide.URL).
		Bool("history", s.db != nil).
		Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown ends open streams, which terminates their ffmpeg processes, and
// then gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().
		Int("active_streams", s.engine.Registry().Len()).
		Msg("Shutting down server gracefully")

	s.cancelStreams()

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	// streams have ended, so no more history writes arrive
	if s.history != nil {
		if err := s.history.Close(ctx); err != nil {
			logger.Log.Warn().Err(err).Msg("Pending stream history was not fully written")
		}
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}
