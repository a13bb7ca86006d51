package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ppiankov/wisdomgate/internal/app"
	"github.com/ppiankov/wisdomgate/internal/logging"
	"github.com/ppiankov/wisdomgate/internal/model"
)

// ModuleServicePrefix prefixes per-module health service names.
const ModuleServicePrefix = "wisdomgate.module."

// Config holds gRPC server configuration.
type Config struct {
	Port           int
	HealthInterval time.Duration
}

// Server exposes module health over the standard gRPC health protocol.
type Server struct {
	app    *app.App
	cfg    Config
	logger *zap.Logger

	mu         sync.Mutex
	lastReport model.HealthReport

	health     *health.Server
	grpcServer *grpc.Server
}

// New creates a server reporting the health of a. It does not listen yet.
func New(a *app.App, cfg Config, logger *zap.Logger) *Server {
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = 10 * time.Second
	}
	s := &Server{
		app:        a,
		cfg:        cfg,
		logger:     logging.OrNop(logger),
		health:     health.NewServer(),
		grpcServer: grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler())),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.Refresh()
	return s
}

// Refresh copies the current module health into the gRPC health service.
// The overall service "" is SERVING while the system is healthy or degraded.
func (s *Server) Refresh() model.HealthReport {
	report := s.app.Health()
	s.health.SetServingStatus("", servingStatus(report.Overall != model.Critical))
	for _, m := range report.Modules {
		s.health.SetServingStatus(ModuleServicePrefix+m.Name, servingStatus(m.State == model.StateReady))
	}

	s.mu.Lock()
	prev := s.lastReport.Overall
	s.lastReport = report
	s.mu.Unlock()
	if prev != "" && prev != report.Overall {
		s.logger.Info("overall health changed",
			zap.String("from", string(prev)),
			zap.String("to", string(report.Overall)))
	}
	return report
}

// Reload rebuilds the app's components and refreshes health.
// Called by the hot-reloader on file change.
func (s *Server) Reload(ctx context.Context) error {
	_, err := s.app.Reload(ctx)
	s.Refresh()
	if err != nil {
		return fmt.Errorf("failed to reload components: %w", err)
	}
	return nil
}

// Watch refreshes health every HealthInterval. Blocks until ctx is cancelled.
func (s *Server) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh()
		}
	}
}

// Serve starts the gRPC server on the configured port. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
	}
	return s.ServeOn(lis)
}

// ServeOn starts the gRPC server on the given listener.
func (s *Server) ServeOn(lis net.Listener) error {
	s.logger.Info("health server listening", zap.String("addr", lis.Addr().String()))
	return s.grpcServer.Serve(lis)
}

// GracefulStop marks every service NOT_SERVING and drains connections.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
