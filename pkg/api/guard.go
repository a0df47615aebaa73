package api

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/cuemby/odin/pkg/config"
	"github.com/cuemby/odin/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// maxLimiters bounds the per-client limiter table
const maxLimiters = 10000

// Guard rate limits and filters clients issuing commands. Reads are never
// guarded so status and forecasts stay available during an incident.
type Guard struct {
	limit    rate.Limit
	burst    int
	allowed  []*net.IPNet
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	logger   zerolog.Logger
}

// NewGuard builds a guard from the api config. Bare addresses in
// AllowedNetworks are treated as single-host networks.
func NewGuard(cfg config.APIConfig) (*Guard, error) {
	g := &Guard{
		limit:    rate.Limit(cfg.RateLimit),
		burst:    cfg.Burst,
		limiters: make(map[string]*rate.Limiter),
		logger:   log.WithComponent("api-guard"),
	}
	for _, cidr := range cfg.AllowedNetworks {
		n, err := parseNetwork(cidr)
		if err != nil {
			return nil, err
		}
		g.allowed = append(g.allowed, n)
	}
	return g, nil
}

func parseNetwork(s string) (*net.IPNet, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		ip := net.ParseIP(s)
		if ip == nil {
			return nil, fmt.Errorf("invalid network %q", s)
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
	}
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		return nil, fmt.Errorf("invalid network %q: %w", s, err)
	}
	return n, nil
}

// Permitted reports whether ip may issue commands
func (g *Guard) Permitted(ip string) bool {
	if len(g.allowed) == 0 {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range g.allowed {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// Allow consumes one token from ip's limiter
func (g *Guard) Allow(ip string) bool {
	if g.limit <= 0 {
		return true
	}

	g.mu.Lock()
	limiter, ok := g.limiters[ip]
	if !ok {
		if len(g.limiters) >= maxLimiters {
			g.logger.Info().Int("count", len(g.limiters)).Msg("clearing rate limiters")
			g.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(g.limit, g.burst)
		g.limiters[ip] = limiter
	}
	g.mu.Unlock()

	return limiter.Allow()
}

// Handler is the fiber middleware applied to every route
func (g *Guard) Handler(c *fiber.Ctx) error {
	switch c.Method() {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
		return c.Next()
	}

	ip := c.IP()
	if !g.Permitted(ip) {
		g.logger.Warn().Str("client", ip).Str("path", c.Path()).Msg("command denied by network filter")
		return fiber.NewError(fiber.StatusForbidden, "client not permitted to issue commands")
	}
	if !g.Allow(ip) {
		g.logger.Warn().Str("client", ip).Msg("rate limit exceeded")
		return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
	}
	return c.Next()
}
