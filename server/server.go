// Package server wires the session store, inference client, speech pool, and
// artifact store into parley's HTTP surface. Every collaborator is injected
// and explicitly owned by the caller; the server only orchestrates.
package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/parleylabs/parley/pkg/artifact"
	"github.com/parleylabs/parley/pkg/config"
	"github.com/parleylabs/parley/pkg/inference"
	"github.com/parleylabs/parley/pkg/session"
	"github.com/parleylabs/parley/pkg/speech"
)

// Deps are the injected collaborators the orchestrator runs on. All of them
// are constructed once at process start and shared by reference.
type Deps struct {
	Sessions  *session.Store
	Inference *inference.Client
	Pool      *speech.Pool
	Engine    speech.Engine
	Artifacts artifact.Driver
}

// Server is the relay's HTTP server and per-request orchestrator.
type Server struct {
	static  config.Static
	runtime *config.Holder
	deps    Deps
	logger  *zap.Logger
	app     *fiber.App
}

// NewServer creates the server and registers its routes.
func NewServer(static config.Static, runtime *config.Holder, deps Deps, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	s := &Server{
		static:  static,
		runtime: runtime,
		deps:    deps,
		logger:  logger,
		app:     app,
	}

	app.Get("/", s.handleIndex)
	app.Post("/chat", s.handleChat)
	app.Post("/speak", s.handleSpeak)
	app.Post("/reset", s.handleReset)
	app.Get("/voices", s.handleVoices)
	app.Get("/audio/:id", s.handleAudio)
	app.Get("/health", s.handleHealth)
	app.Get("/config", s.handleGetConfig)
	app.Patch("/config", s.handleSetConfig)

	return s
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting relay server",
		zap.String("listen", s.static.ListenAddr),
	)
	return s.app.Listen(s.static.ListenAddr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
