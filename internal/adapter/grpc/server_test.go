package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/simaogato/coinfolio-bot/internal/domain"
)

type fakeStore struct {
	down atomic.Bool
}

func (s *fakeStore) PingContext(ctx context.Context) error {
	if s.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func startOps(t *testing.T, store Pinger, token string) (*OpsServer, healthpb.HealthClient) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ops := NewOpsServer(store, token, nil)
	go func() { _ = ops.Serve(lis) }()
	t.Cleanup(ops.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return ops, healthpb.NewHealthClient(conn)
}

func check(ctx context.Context, t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestOpsServer_NotServingUntilReady(t *testing.T) {
	ops, client := startOps(t, &fakeStore{}, "")
	ctx := context.Background()

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(ctx, t, client, ""))

	ops.MarkReady()

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(ctx, t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(ctx, t, client, StoreService))
}

func TestOpsServer_RequiresToken(t *testing.T) {
	ops, client := startOps(t, &fakeStore{}, "ops-secret")
	ops.MarkReady()

	_, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "ops-secret")
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(ctx, t, client, ""))
}

func TestOpsServer_UnknownService(t *testing.T) {
	_, client := startOps(t, &fakeStore{}, "")

	_, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "nope"})

	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestOpsServer_WatchStoreFlipsStatus(t *testing.T) {
	store := &fakeStore{}
	ops, client := startOps(t, store, "")
	ops.MarkReady()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ops.WatchStore(ctx, 10*time.Millisecond)

	store.down.Store(true)
	assert.Eventually(t, func() bool {
		return check(context.Background(), t, client, StoreService) == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 10*time.Millisecond)

	store.down.Store(false)
	assert.Eventually(t, func() bool {
		return check(context.Background(), t, client, StoreService) == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 10*time.Millisecond)
}

func TestOpsServer_CheckStore(t *testing.T) {
	store := &fakeStore{}
	ops := NewOpsServer(store, "", nil)

	assert.NoError(t, ops.CheckStore(context.Background()))

	store.down.Store(true)
	err := ops.CheckStore(context.Background())
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	assert.Equal(t, codes.Unavailable, status.Code(mapError(err)))
}
