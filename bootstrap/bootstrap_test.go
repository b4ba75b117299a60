package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/lookback/bridge"
	"github.com/wyfcoding/lookback/config"
	"github.com/wyfcoding/lookback/health"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Engine.Workers = 2
	cfg.Engine.DefaultPaths = 2_000
	cfg.Greeks.Policy = "fixed"
	cfg.Greeks.FixedPaths = 2_000
	cfg.Snowflake.Type = "sequence"
	cfg.Log.Level = "error"
	return &cfg
}

func params() bridge.Params {
	return bridge.Params{
		Spot:         100,
		ValueDate:    "01-01-2024",
		MaturityDate: "01-01-2025",
		Sigma:        0.2,
		Rate:         0.05,
		Kind:         'c',
		Step:         0.01,
		Convention:   4,
	}
}

func TestNewGoroutineStack(t *testing.T) {
	s, err := New(testConfig(), "lookback-test")
	require.NoError(t, err)
	defer func() { assert.NoError(t, s.Close(context.Background())) }()

	assert.Nil(t, s.Pool)
	assert.Nil(t, s.Cache)
	assert.Len(t, s.EngineOptions(), 9)

	h, e, err := s.Registry.Open(params())
	require.NoError(t, err)
	assert.Equal(t, int64(1), int64(h))
	assert.Equal(t, 2, e.Workers())
	assert.Equal(t, 2_000, e.DefaultPaths())
	assert.Equal(t, 50_000_000, e.MaxPaths())
	assert.Equal(t, 10_000, e.MaxGraphPoints())
	assert.Equal(t, config.DefaultSeed, e.Seed())
}

func TestNewPoolStackWithCache(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.Executor = "pool"
	cfg.Engine.PoolSize = 2
	cfg.Cache.Enabled = true
	cfg.Cache.TTL = time.Minute

	s, err := New(cfg, "lookback-test")
	require.NoError(t, err)
	require.NotNil(t, s.Pool)
	require.NotNil(t, s.Cache)
	assert.Equal(t, 2, s.Pool.Size())

	_, e, err := s.Registry.Open(params())
	require.NoError(t, err)
	ctx := context.Background()
	a, err := e.Price(ctx, 100, 0.2, 0.05, 1, 1_000)
	require.NoError(t, err)
	b, err := e.Price(ctx, 100, 0.2, 0.05, 1, 1_000)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	assert.Equal(t, health.StatusUp, s.Health.Check(ctx).Status)
	require.NoError(t, s.Close(ctx))
	assert.True(t, s.Pool.Closed())
	report := s.Health.Check(ctx)
	assert.Equal(t, health.StatusDown, report.Status)
	assert.Equal(t, ErrPoolStopped.Error(), report.Checks["executor"])
}

func TestNewRejectsBadIDConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Snowflake.Type = "uuid"
	_, err := New(cfg, "lookback-test")
	require.Error(t, err)
}

func TestStackEngineMatchesRegistry(t *testing.T) {
	s, err := New(testConfig(), "lookback-test")
	require.NoError(t, err)
	defer s.Close(context.Background())

	_, viaRegistry, err := s.Registry.Open(params())
	require.NoError(t, err)
	direct := s.NewEngine(viaRegistry.Contract())

	ctx := context.Background()
	p1, err := viaRegistry.Value(ctx)
	require.NoError(t, err)
	p2, err := direct.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}
