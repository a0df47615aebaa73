package api

import (
	"context"

	"github.com/cuemby/odin/pkg/log"
	"github.com/cuemby/odin/pkg/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// MetricsInterceptor creates a gRPC unary interceptor that counts and times
// every call under the same api metrics as the HTTP facade
func MetricsInterceptor() grpc.UnaryServerInterceptor {
	logger := log.WithComponent("grpc")
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		timer := metrics.NewTimer()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		metrics.APIRequestsTotal.WithLabelValues(info.FullMethod, code.String()).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, info.FullMethod)

		logger.Debug().
			Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", timer.Duration()).
			Msg("grpc call")
		return resp, err
	}
}
