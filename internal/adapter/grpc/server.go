package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/coinfolio-bot/internal/domain"
	"github.com/simaogato/coinfolio-bot/internal/logging"
)

// StoreService is the health service name reporting the ledger store
const StoreService = "coinfolio.Store"

const pingTimeout = 5 * time.Second

// Pinger checks that the store answers; *sql.DB satisfies it
type Pinger interface {
	PingContext(ctx context.Context) error
}

// OpsServer exposes process health over gRPC for orchestrators and operators.
// It starts NOT_SERVING and reports SERVING only once MarkReady is called.
type OpsServer struct {
	server *grpc.Server
	health *health.Server
	store  Pinger
	logger *logging.Logger
}

// NewOpsServer creates the server; an empty token disables authentication
func NewOpsServer(store Pinger, token string, logger *logging.Logger) *OpsServer {
	if logger == nil {
		logger = logging.NewSilentLogger()
	}
	logger = logger.WithComponent("ops")

	interceptors := []grpc.UnaryServerInterceptor{LoggingInterceptor(logger)}
	if token != "" {
		interceptors = append(interceptors, AuthInterceptor(token))
	}
	interceptors = append(interceptors, ErrorInterceptor())

	s := &OpsServer{
		server: grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...)),
		health: health.NewServer(),
		store:  store,
		logger: logger,
	}

	healthpb.RegisterHealthServer(s.server, s.health)
	reflection.Register(s.server)

	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Serve accepts connections on lis until Stop is called
func (s *OpsServer) Serve(lis net.Listener) error {
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("Ops server listening")
	if err := s.server.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve ops server: %w", err)
	}
	return nil
}

// MarkReady reports SERVING; call after the schema is in place
func (s *OpsServer) MarkReady() {
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

// CheckStore pings the store, returning ErrStoreUnavailable on failure
func (s *OpsServer) CheckStore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := s.store.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// WatchStore re-checks the store every interval and flips the store
// service status until ctx is cancelled
func (s *OpsServer) WatchStore(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.CheckStore(ctx)
			switch {
			case err != nil && healthy:
				s.logger.Warn().Err(err).Msg("Store check failed")
				s.health.SetServingStatus(StoreService, healthpb.HealthCheckResponse_NOT_SERVING)
			case err == nil && !healthy:
				s.logger.Info().Msg("Store reachable again")
				s.health.SetServingStatus(StoreService, healthpb.HealthCheckResponse_SERVING)
			}
			healthy = err == nil
		}
	}
}

// Stop reports NOT_SERVING and drains in-flight calls
func (s *OpsServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
	s.logger.Info().Msg("Ops server stopped")
}

func (s *OpsServer) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(StoreService, st)
}
