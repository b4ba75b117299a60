package lookback

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/lookback/algorithm/sim"
	"github.com/wyfcoding/lookback/cache"
	"github.com/wyfcoding/lookback/metrics"
	"github.com/wyfcoding/lookback/worker"
	"github.com/wyfcoding/lookback/xerrors"
)

const testPaths = 40_000

func newTestEngine(t *testing.T, kind OptionKind, opts ...Option) *Engine {
	t.Helper()
	spec := baseSpec()
	spec.Kind = kind
	c, err := NewContract(spec)
	require.NoError(t, err)
	base := []Option{
		WithWorkers(4),
		WithPolicy(Fixed{N: testPaths}),
		WithDefaultPaths(testPaths),
	}
	return NewEngine(c, append(base, opts...)...)
}

func TestPriceDeterministic(t *testing.T) {
	ctx := context.Background()
	a := newTestEngine(t, Call)
	b := newTestEngine(t, Call)

	pa, err := a.Price(ctx, 100, 0.2, 0.05, 1, 10_000)
	require.NoError(t, err)
	pb, err := b.Price(ctx, 100, 0.2, 0.05, 1, 10_000)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)

	other := newTestEngine(t, Call, WithSeed(1))
	pc, err := other.Price(ctx, 100, 0.2, 0.05, 1, 10_000)
	require.NoError(t, err)
	assert.NotEqual(t, pa, pc)
}

func TestPriceIndependentOfExecutor(t *testing.T) {
	ctx := context.Background()
	pool := worker.NewPool(worker.WithSize(3))
	defer pool.Stop()

	var prices []float64
	for _, exec := range []sim.Executor{sim.GoExecutor{}, sim.SerialExecutor{}, pool} {
		e := newTestEngine(t, Put, WithExecutor(exec))
		p, err := e.Price(ctx, 100, 0.2, 0.05, 1, 9_999)
		require.NoError(t, err)
		prices = append(prices, p)
	}
	assert.Equal(t, prices[0], prices[1])
	assert.Equal(t, prices[0], prices[2])
}

func TestPriceZeroSpot(t *testing.T) {
	e := newTestEngine(t, Call)
	p, err := e.Price(context.Background(), 0, 0.2, 0.05, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
}

func TestPriceRejectsInvalidArguments(t *testing.T) {
	e := newTestEngine(t, Call)
	ctx := context.Background()
	tests := []struct {
		name             string
		s, sigma, r, ttm float64
		n                int
		want             error
	}{
		{"zero paths", 100, 0.2, 0.05, 1, 0, xerrors.ErrInvalidPathCount},
		{"negative spot", -1, 0.2, 0.05, 1, 10, xerrors.ErrInvalidPriceArgument},
		{"zero sigma", 100, 0, 0.05, 1, 10, xerrors.ErrInvalidPriceArgument},
		{"negative rate", 100, 0.2, -0.05, 1, 10, xerrors.ErrInvalidPriceArgument},
		{"negative ttm", 100, 0.2, 0.05, -1, 10, xerrors.ErrInvalidPriceArgument},
		{"NaN spot", math.NaN(), 0.2, 0.05, 1, 10, xerrors.ErrInvalidPriceArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Price(ctx, tt.s, tt.sigma, tt.r, tt.ttm, tt.n)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestPriceConvergesToClosedForm(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []OptionKind{Call, Put} {
		e := newTestEngine(t, kind)
		exact, err := e.Analytic()
		require.NoError(t, err)

		est, err := e.Estimate(ctx, 200_000)
		require.NoError(t, err)
		assert.Greater(t, est.StdErr, 0.0)
		assert.InDelta(t, exact, est.Price, 4*est.StdErr, kind.String())
	}
}

func TestStdErrShrinksWithPaths(t *testing.T) {
	e := newTestEngine(t, Call)
	small, err := e.Estimate(context.Background(), 20_000)
	require.NoError(t, err)
	large, err := e.Estimate(context.Background(), 80_000)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, small.StdErr/large.StdErr, 0.3)
}

func TestEstimateMatchesPrice(t *testing.T) {
	e := newTestEngine(t, Call)
	est, err := e.Estimate(context.Background(), 5_000)
	require.NoError(t, err)
	p, err := e.Price(context.Background(), 100, 0.2, 0.05, 1, 5_000)
	require.NoError(t, err)
	assert.Equal(t, p, est.Price)
}

func TestEngineMetrics(t *testing.T) {
	m := metrics.NewMetrics("test")
	e := newTestEngine(t, Call, WithMetrics(m))

	_, err := e.Price(context.Background(), 100, 0.2, 0.05, 1, 1_000)
	require.NoError(t, err)
	_, err = e.Vega(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(e.instr.priceCalls.WithLabelValues("call")))
	assert.Equal(t, float64(1_000+2*testPaths), testutil.ToFloat64(e.instr.pathsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.instr.greekCalls.WithLabelValues("vega")))
}

func TestCachedPricerMatchesUncached(t *testing.T) {
	store, err := cache.NewBigCache(cache.Options{TTL: time.Minute, Shards: 16})
	require.NoError(t, err)
	pc := cache.NewPriceCache(store, nil, nil)
	defer pc.Close()

	ctx := context.Background()
	plain := newTestEngine(t, Call)
	cached := newTestEngine(t, Call, WithCache(pc))

	want, err := plain.Price(ctx, 101, 0.2, 0.05, 1, 3_000)
	require.NoError(t, err)
	for range 2 {
		got, err := cached.Price(ctx, 101, 0.2, 0.05, 1, 3_000)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = cached.Price(ctx, 101, 0.2, 0.05, 1, 0)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidPathCount))
}

func TestExecutorPanicPropagates(t *testing.T) {
	e := newTestEngine(t, Call, WithExecutor(panicExecutor{}))
	_, err := e.Price(context.Background(), 100, 0.2, 0.05, 1, 10)
	assert.True(t, errors.Is(err, xerrors.ErrSimulationPanic))
}

type panicExecutor struct{}

func (panicExecutor) Execute(ctx context.Context, tasks int, fn func(context.Context, int)) error {
	return sim.SerialExecutor{}.Execute(ctx, tasks, func(context.Context, int) { panic("injected") })
}

func TestPriceRejectsPathsAboveLimit(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, Call, WithMaxPaths(10_000))
	assert.Equal(t, 10_000, e.MaxPaths())

	_, err := e.Price(ctx, 100, 0.2, 0.05, 1, 10_001)
	assert.True(t, errors.Is(err, xerrors.ErrTooManyPaths))
	assert.True(t, errors.Is(err, xerrors.ErrInvalidPathCount))
	_, err = e.Estimate(ctx, 100_000)
	assert.True(t, errors.Is(err, xerrors.ErrTooManyPaths))

	_, err = e.Price(ctx, 100, 0.2, 0.05, 1, 10_000)
	assert.NoError(t, err)
}

func TestGreekPolicyIgnoresCallerPathLimit(t *testing.T) {
	e := newTestEngine(t, Call, WithMaxPaths(100), WithPolicy(Fixed{N: 2_000}))
	_, err := e.Vega(context.Background())
	assert.NoError(t, err)
}

func TestNewEngineDefaultLimits(t *testing.T) {
	e := newTestEngine(t, Call, WithMaxPaths(0), WithMaxGraphPoints(-1))
	assert.Equal(t, DefaultMaxPaths, e.MaxPaths())
	assert.Equal(t, DefaultMaxGraphPoints, e.MaxGraphPoints())
}
