package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/cuemby/odin/pkg/engine"
	"github.com/cuemby/odin/pkg/log"
	"github.com/cuemby/odin/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"
)

// Server is the HTTP status facade over a running engine
type Server struct {
	engine *engine.Engine
	app    *fiber.App
	guard  *Guard
	logger zerolog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithGuard rate limits and filters command routes
func WithGuard(g *Guard) Option {
	return func(s *Server) { s.guard = g }
}

// NewServer creates the fiber app and registers every route
func NewServer(eng *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine: eng,
		logger: log.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "odin",
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           60 * time.Second,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(s.instrument)
	if s.guard != nil {
		s.app.Use(s.guard.Handler)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.healthHandler)
	s.app.Get("/ready", s.readyHandler)
	s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	v1 := s.app.Group("/v1")

	th := v1.Group("/thermal")
	th.Get("/status", s.thermalStatus)
	th.Get("/forecast", s.thermalForecast)
	th.Post("/actions", s.thermalActions)
	th.Put("/components/:id/temperature", s.updateTemperature)

	pw := v1.Group("/power")
	pw.Get("/status", s.powerStatus)
	pw.Get("/forecast", s.powerForecast)
	pw.Post("/actions", s.powerActions)
	pw.Post("/actions/:id/approve", s.approvePowerAction)
	pw.Get("/banks/:id/health", s.bankHealth)
	pw.Patch("/banks/:id", s.updateBank)

	sc := v1.Group("/schedule")
	sc.Get("/metrics", s.scheduleMetrics)
	sc.Get("/prediction", s.schedulePrediction)
	sc.Get("/conflicts", s.listConflicts)
	sc.Post("/conflicts", s.resolveConflicts)
	sc.Get("/activities", s.listActivities)
	sc.Post("/activities", s.addActivities)
	sc.Post("/activities/:id/status", s.transitionActivity)

	v1.Get("/environment", s.getEnvironment)
	v1.Put("/environment", s.putEnvironment)
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on addr and blocks until Shutdown
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http api listening")
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits up to timeout for in-flight ones
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// instrument counts and times every request by route
func (s *Server) instrument(c *fiber.Ctx) error {
	timer := metrics.NewTimer()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	} else if err != nil {
		status = fiber.StatusInternalServerError
	}

	route := c.Method() + " " + c.Route().Path
	metrics.APIRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	timer.ObserveDurationVec(metrics.APIRequestDuration, route)
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
