package api

import (
	"github.com/cuemby/odin/pkg/metrics"
	"github.com/gofiber/fiber/v2"
)

// healthHandler implements the /health endpoint. It reports unhealthy, with
// 503, when any registered component is unhealthy.
func (s *Server) healthHandler(c *fiber.Ctx) error {
	h := metrics.GetHealth()
	if h.Status != metrics.StatusHealthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(h)
	}
	return c.JSON(h)
}

// readyHandler implements the /ready endpoint. Every critical component,
// storage included, must be registered and healthy.
func (s *Server) readyHandler(c *fiber.Ctx) error {
	r := metrics.GetReadiness()
	if r.Status != metrics.StatusReady {
		return c.Status(fiber.StatusServiceUnavailable).JSON(r)
	}
	return c.JSON(r)
}
