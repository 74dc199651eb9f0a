// Package web serves the operator API: live sessions, recalibration, emotion
// profiles and offline re-analysis, plus the results and capture WebSockets.
package web

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-affect/internal/log"
	"github.com/teslashibe/go-affect/pkg/emotions"
	"github.com/teslashibe/go-affect/pkg/hub"
	"github.com/teslashibe/go-affect/pkg/ingest"
	"github.com/teslashibe/go-affect/pkg/pipeline"
	"github.com/teslashibe/go-affect/pkg/recording"
	"github.com/teslashibe/go-affect/pkg/replay"
)

// Config wires the server to the rest of the daemon. Store, Ingest and
// StaticDir are optional.
type Config struct {
	Addr      string
	StaticDir string

	Scheduler *pipeline.Scheduler
	Registry  *emotions.Registry
	Results   *hub.Hub
	Ingest    *ingest.Hub
	Store     recording.Store
	Replay    replay.Config
}

// Server is the operator API server.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	// The loaded analysis is replaced wholesale by POST /api/analysis/:label.
	analysisMu sync.Mutex
	analysis   *replay.Analyzer
}

// NewServer creates the server and registers its routes.
func NewServer(cfg Config) *Server {
	s := &Server{
		cfg:    cfg,
		logger: log.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-affect",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// CORS for local development
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/sessions", s.handleListSessions)
	api.Get("/sessions/:id", s.handleGetSession)
	api.Post("/sessions/:id/reset", s.handleReset)
	api.Post("/sessions/:id/recalibrate", s.handleRecalibrate)
	api.Get("/profiles", s.handleListProfiles)
	api.Post("/analysis/:label", s.handleLoadAnalysis)
	api.Get("/analysis/frame/:n", s.handleSeek)
	api.Get("/analysis/summary", s.handleSummary)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/results", websocket.New(s.handleResultsWS))
	if cfg.Ingest != nil {
		cfg.Ingest.RegisterRoutes(app)
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Start blocks serving on the configured address.
func (s *Server) Start() error {
	s.logger.Info("api listening", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("api server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
