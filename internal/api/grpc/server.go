// Package grpcapi hosts the gRPC endpoint: health checking and reflection
// for the speech translation service.
package grpcapi

import (
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"speech-translate-service/internal/observability"
	"speech-translate-service/internal/observability/metrics"
)

// ServiceName is the health-checked service name.
const ServiceName = "speech.translate.TranslationService"

// Server wraps a grpc.Server with its health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// New creates a gRPC server reporting NOT_SERVING until SetServing(true).
func New(m *metrics.Metrics) *Server {
	g := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor(m)),
		grpc.StreamInterceptor(observability.StreamServerInterceptor(m)),
	)

	// Register gRPC health check service
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, hs)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(g)

	s := &Server{grpc: g, health: hs}
	s.SetServing(false)
	return s
}

// SetServing flips the health status of the server and the service.
func (s *Server) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks serving on lis.
func (s *Server) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("Starting gRPC server")
	return s.grpc.Serve(lis)
}

// GracefulStop marks the server not serving and drains in-flight calls.
func (s *Server) GracefulStop() {
	log.Info().Msg("Shutting down gRPC server")
	s.SetServing(false)
	s.grpc.GracefulStop()
}
