package api

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cuemby/odin/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func dialHealth(t *testing.T, h *HealthService) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = h.Serve(lis) }()
	t.Cleanup(h.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestHealthServiceReflectsRegistry(t *testing.T) {
	metrics.RegisterComponent("thermal", true, "nominal")
	metrics.RegisterComponent("power", false, "emergency mode")

	h := NewHealthService(time.Hour)
	client := dialHealth(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tests := []struct {
		service  string
		expected healthpb.HealthCheckResponse_ServingStatus
	}{
		{service: "thermal", expected: healthpb.HealthCheckResponse_SERVING},
		{service: "power", expected: healthpb.HealthCheckResponse_NOT_SERVING},
		{service: "", expected: healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		t.Run("service "+tt.service, func(t *testing.T) {
			resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: tt.service})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resp.Status)
		})
	}

	metrics.UpdateComponent("power", true, "recovered")
	h.Sync()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "power"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestServingStatus(t *testing.T) {
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(true))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(false))
}
