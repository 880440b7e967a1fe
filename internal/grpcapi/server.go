// Package grpcapi serves the standard gRPC health protocol so orchestrators
// can probe the backend.
package grpcapi

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health entry for the access backend. The empty name
// reports overall server health.
const ServiceName = "folio.Access"

type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	logger     logrus.FieldLogger
}

func NewServer(logger logrus.FieldLogger) *Server {
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{grpcServer: gs, health: hs, logger: logger}
	s.SetServing(true)
	return s
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

func (s *Server) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Monitor runs probe every interval and flips the serving status on
// transitions. It returns when ctx is done.
func (s *Server) Monitor(ctx context.Context, interval time.Duration, probe func(context.Context) error) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, interval)
			err := probe(pctx)
			cancel()

			if ok := err == nil; ok != healthy {
				healthy = ok
				s.SetServing(ok)
				if ok {
					s.logger.Info("Health probe recovered, serving")
				} else {
					s.logger.WithError(err).Warn("Health probe failed, not serving")
				}
			}
		}
	}
}

// Shutdown marks every service NOT_SERVING, then stops gracefully.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
