package api

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cuemby/odin/pkg/log"
	"github.com/cuemby/odin/pkg/metrics"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService serves grpc.health.v1.Health. Each registered component
// (thermal, power, mission, storage) is a service name; the empty name
// reflects overall readiness.
type HealthService struct {
	grpc     *grpc.Server
	health   *health.Server
	interval time.Duration
	logger   zerolog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHealthService creates the gRPC server with the health service registered
func NewHealthService(interval time.Duration) *HealthService {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	h := &HealthService{
		grpc:     grpc.NewServer(grpc.UnaryInterceptor(MetricsInterceptor())),
		health:   health.NewServer(),
		interval: interval,
		logger:   log.WithComponent("grpc"),
		stopCh:   make(chan struct{}),
	}
	healthpb.RegisterHealthServer(h.grpc, h.health)
	return h
}

// Sync copies the component health registry into the serving statuses
func (h *HealthService) Sync() {
	for _, name := range metrics.ComponentNames() {
		healthy, _ := metrics.ComponentHealthy(name)
		h.health.SetServingStatus(name, servingStatus(healthy))
	}
	ready := metrics.GetReadiness().Status == metrics.StatusReady
	h.health.SetServingStatus("", servingStatus(ready))
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// Start listens on addr and serves until Stop
func (h *HealthService) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	h.logger.Info().Str("addr", addr).Msg("grpc health listening")
	return h.Serve(lis)
}

// Serve syncs statuses on an interval and serves on lis until Stop
func (h *HealthService) Serve(lis net.Listener) error {
	h.Sync()
	go func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.Sync()
			case <-h.stopCh:
				return
			}
		}
	}()
	return h.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and gracefully stops the server
func (h *HealthService) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		h.health.Shutdown()
		h.grpc.GracefulStop()
	})
}
