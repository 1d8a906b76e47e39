package api

import (
	"context"
	"net"
	"testing"
	"time"

	"coworking/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newGRPCClient(t *testing.T, env *testEnv, cfg config.APIConfig) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	s, err := NewGRPCServerWithListener(cfg, lis, env.bookings, env.logger)
	require.NoError(t, err)
	go func() { _ = s.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, in map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := new(structpb.Struct)
	err = conn.Invoke(ctx, "/"+bookingServiceName+"/"+method, req, out)
	return out, err
}

func TestGRPC_GetAvailability(t *testing.T) {
	env := newTestEnv(t)
	env.seedMorning(t)
	conn := newGRPCClient(t, env, config.APIConfig{})

	out, err := invoke(t, conn, "GetAvailability", map[string]any{"space_id": "room-1", "date": "2024-06-01"})
	require.NoError(t, err)

	m := out.AsMap()
	assert.Equal(t, true, m["bookable"])
	assert.Equal(t, []any{9.0, 10.0, 11.0}, m["occupied"])

	available := m["available"].([]any)
	assert.Len(t, available, 21)
	first := available[0].(map[string]any)
	assert.Equal(t, 0.0, first["hour"])
	assert.Equal(t, false, first["peak"])
}

func TestGRPC_GetAvailabilityErrors(t *testing.T) {
	env := newTestEnv(t)
	conn := newGRPCClient(t, env, config.APIConfig{})

	_, err := invoke(t, conn, "GetAvailability", map[string]any{"space_id": "room-1"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(t, conn, "GetAvailability", map[string]any{"space_id": "room-1", "date": "tomorrow"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(t, conn, "GetAvailability", map[string]any{"space_id": "nope", "date": "2024-06-01"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPC_Quote(t *testing.T) {
	env := newTestEnv(t)
	conn := newGRPCClient(t, env, config.APIConfig{})

	out, err := invoke(t, conn, "Quote", map[string]any{
		"space_id":   "room-1",
		"duration":   "hourly",
		"start_hour": 16,
		"hour_count": 3,
		"resources":  []any{"projector", "unknown"},
	})
	require.NoError(t, err)

	m := out.AsMap()
	assert.Equal(t, 2.0, m["peak_hours"])
	assert.InDelta(t, 25*1.3*2+25+15, m["total"].(float64), 0.001)
	assert.Len(t, m["addons"].([]any), 2)

	_, err = invoke(t, conn, "Quote", map[string]any{"duration": "hourly"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPC_QuoteRejectsOutOfRangeInput(t *testing.T) {
	env := newTestEnv(t)
	conn := newGRPCClient(t, env, config.APIConfig{})

	tests := []struct {
		name string
		in   map[string]any
	}{
		{"huge hour count", map[string]any{"space_id": "desk-1", "duration": "hourly", "hour_count": 1e18}},
		{"fractional hour count", map[string]any{"space_id": "desk-1", "duration": "hourly", "hour_count": 1.5}},
		{"start past midnight", map[string]any{"space_id": "desk-1", "duration": "hourly", "hour_count": 1, "start_hour": 30}},
		{"unknown duration", map[string]any{"space_id": "desk-1", "duration": "weekly"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := invoke(t, conn, "Quote", tt.in)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}

	out, err := invoke(t, conn, "Quote", map[string]any{"space_id": "desk-1", "duration": " Daily "})
	require.NoError(t, err)
	assert.Equal(t, "daily", out.AsMap()["duration"])
}

func TestGRPC_RateLimit(t *testing.T) {
	env := newTestEnv(t)
	conn := newGRPCClient(t, env, config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 0.001, Burst: 1}})

	_, err := invoke(t, conn, "Quote", map[string]any{"category": "desk", "duration": "daily"})
	require.NoError(t, err)

	_, err = invoke(t, conn, "Quote", map[string]any{"category": "desk", "duration": "daily"})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestBuildTLSConfig(t *testing.T) {
	t.Run("EmptyPaths", func(t *testing.T) {
		_, err := buildTLSConfig(config.APITLSConfig{Enabled: true})
		assert.Error(t, err)
	})

	t.Run("InvalidCert", func(t *testing.T) {
		_, err := buildTLSConfig(config.APITLSConfig{
			Enabled:  true,
			CertFile: "/nonexistent",
			KeyFile:  "/nonexistent",
		})
		assert.Error(t, err)
	})
}

func TestNewGRPCServer_TLSMisconfigured(t *testing.T) {
	env := newTestEnv(t)
	cfg := config.APIConfig{GRPC: config.APIGRPCConfig{Port: 0, TLS: config.APITLSConfig{Enabled: true}}}

	_, err := NewGRPCServer(cfg, env.bookings, env.logger)
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	unlimited := newRateLimiter(config.APIRateLimitConfig{})
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.Allow("a"))
	}

	limited := newRateLimiter(config.APIRateLimitConfig{RPS: 0.001, Burst: 2})
	assert.True(t, limited.Allow("a"))
	assert.True(t, limited.Allow("a"))
	assert.False(t, limited.Allow("a"))
	assert.True(t, limited.Allow("b"))
}
