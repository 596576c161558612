package api

import (
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/redialhq/redial/pkg/memstore"
	"github.com/redialhq/redial/pkg/profile"
	"github.com/redialhq/redial/pkg/worker"
)

// Enqueuer accepts completion jobs for background processing.
type Enqueuer interface {
	Enqueue(job worker.Job) bool
}

// Server is the webhook gateway for the redial system.
type Server struct {
	config   Config
	profiles profile.Store
	memories memstore.Store
	pool     Enqueuer
	logger   *zap.Logger
	app      *fiber.App
}

// NewServer creates a new gateway server. The profile store and pool are
// injected to allow sharing with the worker side.
func NewServer(config Config, profiles profile.Store, memories memstore.Store, pool Enqueuer, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		profiles: profiles,
		memories: memories,
		pool:     pool,
		logger:   logger,
		app:      app,
	}

	app.Get("/health", s.handleHealth)
	app.Post("/webhook/client-data", s.handleInitiate)
	app.Post("/webhook/search-data", s.handleSearch)
	app.Post("/webhook/post-call", s.handlePostCall)

	return s
}

// MountMCP exposes an MCP handler under /mcp on the gateway listener.
func (s *Server) MountMCP(handler http.Handler) {
	s.app.All("/mcp", adaptor.HTTPHandler(handler))
}

// App exposes the underlying fiber app for handler tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the gateway on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting webhook gateway",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the gateway.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
