package grpcx

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
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
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/cwrk-planet/dealer-chat/pkg/logger"
)

type flakyDep struct{ down atomic.Bool }

func (f *flakyDep) Ping(context.Context) error {
	if f.down.Load() {
		return errors.New("down")
	}
	return nil
}

func TestHealth(t *testing.T) {
	dep := &flakyDep{}
	s := NewServer(map[string]Pinger{"postgres": dep})

	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(func() { s.Stop(context.Background()) })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, s.Refresh(ctx))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check())

	dep.down.Store(true)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, s.Refresh(ctx))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "unknown"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestUnaryInterceptorRecovers(t *testing.T) {
	icpt := UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Panic"}

	_, err := icpt(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))

	resp, err := icpt(context.Background(), nil, info, func(context.Context, any) (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestUnaryInterceptorScopesLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := logger.WithCtx(context.Background(), base)

	icpt := UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	_, err := icpt(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
		logger.FromCtx(ctx).Info("inside")
		return nil, status.Error(codes.FailedPrecondition, "nope")
	})
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg=inside grpc_kind=unary method=/grpc.health.v1.Health/Check`)
	assert.Contains(t, out, "level=WARN msg=\"grpc call\"")
	assert.Contains(t, out, "code=FailedPrecondition")
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, levelFor(codes.OK))
	assert.Equal(t, slog.LevelDebug, levelFor(codes.Canceled))
	assert.Equal(t, slog.LevelError, levelFor(codes.Unavailable))
	assert.Equal(t, slog.LevelWarn, levelFor(codes.NotFound))
}
