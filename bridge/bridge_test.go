package bridge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/lookback/lookback"
	"github.com/wyfcoding/lookback/metrics"
	"github.com/wyfcoding/lookback/xerrors"
)

func testParams() Params {
	return Params{
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

func newTestFacade() *Facade {
	reg := NewRegistry(nil, nil,
		lookback.WithWorkers(2),
		lookback.WithPolicy(lookback.Fixed{N: 2_000}),
		lookback.WithDefaultPaths(2_000),
	)
	return NewFacade(reg, nil)
}

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry(nil, nil)

	h1, e1, err := reg.Open(testParams())
	require.NoError(t, err)
	require.NotNil(t, e1)
	h2, _, err := reg.Open(testParams())
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.Positive(t, int64(h1))
	assert.Equal(t, 2, reg.Len())

	got, err := reg.Engine(h1)
	require.NoError(t, err)
	assert.Same(t, e1, got)

	require.NoError(t, reg.Close(h1))
	_, err = reg.Engine(h1)
	assert.True(t, errors.Is(err, xerrors.ErrUnknownHandle))
	assert.True(t, errors.Is(reg.Close(h1), xerrors.ErrUnknownHandle))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryOpenFailureLeavesNoEntry(t *testing.T) {
	reg := NewRegistry(nil, nil)
	p := testParams()
	p.Sigma = 0

	h, e, err := reg.Open(p)
	assert.Zero(t, h)
	assert.Nil(t, e)
	assert.True(t, errors.Is(err, xerrors.ErrVolatilityNotPositive))
	assert.Zero(t, reg.Len())
}

func TestConventionFromCode(t *testing.T) {
	for code := 0; code <= 4; code++ {
		dc, err := ConventionFromCode(code)
		require.NoError(t, err)
		assert.Equal(t, code, int(dc))
	}
	_, err := ConventionFromCode(5)
	assert.True(t, errors.Is(err, xerrors.ErrUnknownConvention))
	_, err = ConventionFromCode(-1)
	assert.True(t, errors.Is(err, xerrors.ErrUnknownConvention))
}

func TestParamsSpec(t *testing.T) {
	p := testParams()
	p.Kind = 'P'
	spec, err := p.Spec()
	require.NoError(t, err)
	assert.Equal(t, lookback.Put, spec.Kind)
	assert.Equal(t, 2024, spec.ValueDate.Year())
	assert.Equal(t, 2025, spec.MaturityDate.Year())

	p.ValueDate = "2024-01-01"
	_, err = p.Spec()
	assert.True(t, errors.Is(err, xerrors.ErrMalformedDate))
}

func TestFacadeCreateFailure(t *testing.T) {
	f := newTestFacade()
	var ec ErrorContext
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Params)
		want   string
	}{
		{"spot", func(p *Params) { p.Spot = -1 }, "Create: S0 must be positive"},
		{"kind", func(p *Params) { p.Kind = 'x' }, "Create: option type can only be 'c' (call) or 'p' (put)"},
		{"rate", func(p *Params) { p.Rate = -0.01 }, "Create: interest rate must be non-negative"},
		{"dates", func(p *Params) { p.MaturityDate = "01-01-2023" }, "Create: maturity date is before value date"},
		{"small step", func(p *Params) { p.Step = 0.001 }, "Create: h must be at least 0.005"},
		{"convention", func(p *Params) { p.Convention = 9 }, "Create: unknown day count convention"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mutate(&p)
			h := f.Create(ctx, &ec, p)
			assert.Zero(t, h)
			assert.True(t, strings.HasPrefix(ec.Last(), tt.want), ec.Last())
		})
	}
	assert.Zero(t, f.Registry().Len())
}

func TestFacadeSuccessClearsError(t *testing.T) {
	f := newTestFacade()
	var ec ErrorContext
	ctx := context.Background()

	assert.Zero(t, f.Price(ctx, &ec, 42, 100, 0.2, 0.05, 1, 100))
	assert.True(t, strings.HasPrefix(ec.Last(), "Price: unknown pricer handle"), ec.Last())

	h := f.Create(ctx, &ec, testParams())
	require.NotZero(t, h)
	assert.Empty(t, ec.Last())

	p := f.Price(ctx, &ec, h, 100, 0.2, 0.05, 1, 1_000)
	assert.Empty(t, ec.Last())
	assert.Greater(t, p, 0.0)

	f.Destroy(ctx, &ec, h)
	assert.Empty(t, ec.Last())
	f.Destroy(ctx, &ec, h)
	assert.True(t, strings.HasPrefix(ec.Last(), "Destroy: unknown pricer handle"), ec.Last())
}

func TestFacadeGreeks(t *testing.T) {
	f := newTestFacade()
	var ec ErrorContext
	ctx := context.Background()
	h := f.Create(ctx, &ec, testParams())
	require.NotZero(t, h)

	price := f.Price(ctx, &ec, h, 100, 0.2, 0.05, 1, 2_000)
	require.Empty(t, ec.Last())

	delta := f.Delta(ctx, &ec, h, 100)
	require.Empty(t, ec.Last())
	assert.InDelta(t, price/100, delta, 1e-9)

	assert.InDelta(t, 0, f.Gamma(ctx, &ec, h), 1e-6)
	require.Empty(t, ec.Last())
	assert.Greater(t, f.Vega(ctx, &ec, h), 0.0)
	require.Empty(t, ec.Last())
	assert.Greater(t, f.Rho(ctx, &ec, h), 0.0)
	require.Empty(t, ec.Last())
	assert.Less(t, f.Theta(ctx, &ec, h), 0.0)
	require.Empty(t, ec.Last())

	f.Destroy(ctx, &ec, h)
	assert.Zero(t, f.Vega(ctx, &ec, h))
	assert.True(t, strings.HasPrefix(ec.Last(), "Vega: "), ec.Last())
}

func TestFacadePriceInvalidArguments(t *testing.T) {
	f := newTestFacade()
	var ec ErrorContext
	ctx := context.Background()
	h := f.Create(ctx, &ec, testParams())
	require.NotZero(t, h)

	assert.Zero(t, f.Price(ctx, &ec, h, 100, 0.2, 0.05, 1, 0))
	assert.True(t, strings.HasPrefix(ec.Last(), "Price: path count must be positive"), ec.Last())
}

func TestFacadeGraphicBuffers(t *testing.T) {
	f := newTestFacade()
	var ec ErrorContext
	ctx := context.Background()
	h := f.Create(ctx, &ec, testParams())
	require.NotZero(t, h)

	n := f.GraphicPrice(ctx, &ec, h, 0.5, nil, nil)
	require.Empty(t, ec.Last())
	assert.Equal(t, 4, n)

	xs := make([]float64, 2)
	ys := make([]float64, 2)
	k := f.GraphicPrice(ctx, &ec, h, 0.5, xs, ys)
	assert.Equal(t, 2, k)
	assert.Equal(t, []float64{0, 50}, xs)
	assert.Equal(t, 0.0, ys[0])
	assert.Greater(t, ys[1], 0.0)

	xs = make([]float64, 10)
	ys = make([]float64, 10)
	k = f.GraphicDelta(ctx, &ec, h, 0.5, xs, ys)
	require.Empty(t, ec.Last())
	assert.Equal(t, 4, k)
	assert.Equal(t, 150.0, xs[3])

	assert.Zero(t, f.GraphicPrice(ctx, &ec, h, 0, xs, ys))
	assert.True(t, strings.HasPrefix(ec.Last(), "GraphicPrice: graph step must be positive"), ec.Last())

	// 点数查询同样受上限约束且不定价.
	assert.Zero(t, f.GraphicPrice(ctx, &ec, h, 1e-7, nil, nil))
	assert.True(t, strings.HasPrefix(ec.Last(), "GraphicPrice: graph step yields too many points"), ec.Last())
	assert.Zero(t, f.GraphicDelta(ctx, &ec, h, 1e-7, xs, ys))
	assert.True(t, strings.HasPrefix(ec.Last(), "GraphicDelta: graph step yields too many points"), ec.Last())
}

func TestFacadeGraphicPricesOnlyBufferCapacity(t *testing.T) {
	m := metrics.NewMetrics("bridge")
	reg := NewRegistry(nil, nil,
		lookback.WithWorkers(2),
		lookback.WithDefaultPaths(2_000),
		lookback.WithMetrics(m),
	)
	f := NewFacade(reg, nil)
	var ec ErrorContext
	ctx := context.Background()
	h := f.Create(ctx, &ec, testParams())
	require.NotZero(t, h)
	// 相同描述重复注册时返回引擎已注册的计数器.
	calls := m.NewCounterVec(&prometheus.CounterOpts{
		Name: "lookback_price_calls_total",
		Help: "Number of Monte Carlo price evaluations",
	}, []string{"kind"})

	assert.Equal(t, 40, f.GraphicPrice(ctx, &ec, h, 0.05, nil, nil))
	assert.Zero(t, testutil.ToFloat64(calls.WithLabelValues("call")))

	xs := make([]float64, 3)
	ys := make([]float64, 2)
	require.Equal(t, 2, f.GraphicPrice(ctx, &ec, h, 0.05, xs, ys))
	require.Empty(t, ec.Last())
	assert.Equal(t, []float64{0, 5, 0}, xs)
	assert.Equal(t, 2.0, testutil.ToFloat64(calls.WithLabelValues("call")))
}

func TestFacadeYearFraction(t *testing.T) {
	f := newTestFacade()
	var ec ErrorContext
	ctx := context.Background()

	assert.InDelta(t, 1.0, f.YearFraction(ctx, &ec, "01-01-2024", "01-01-2025", 4), 1e-12)
	assert.Empty(t, ec.Last())
	assert.InDelta(t, 366.0/360.0, f.YearFraction(ctx, &ec, "01-01-2024", "01-01-2025", 0), 1e-12)

	assert.Zero(t, f.YearFraction(ctx, &ec, "31-02-2024", "01-01-2025", 4))
	assert.True(t, strings.HasPrefix(ec.Last(), "YearFraction: malformed date"), ec.Last())

	assert.Zero(t, f.YearFraction(ctx, &ec, "01-01-2024", "01-01-2025", 7))
	assert.True(t, strings.HasPrefix(ec.Last(), "YearFraction: unknown day count convention"), ec.Last())
}

func TestFacadeNilErrorContext(t *testing.T) {
	f := newTestFacade()
	assert.Zero(t, f.Delta(context.Background(), nil, 99, 100))
}

func TestErrorContextCopyTo(t *testing.T) {
	var ec ErrorContext
	assert.Equal(t, 1, ec.CopyTo(nil))

	ec.Set("Price", xerrors.ErrInvalidPathCount)
	msg := "Price: path count must be positive"
	assert.Equal(t, msg, ec.Last())
	assert.Equal(t, len(msg)+1, ec.CopyTo(nil))

	buf := make([]byte, 64)
	n := ec.CopyTo(buf)
	assert.Equal(t, len(msg)+1, n)
	assert.Equal(t, msg, string(buf[:n-1]))
	assert.Zero(t, buf[n-1])

	small := make([]byte, 6)
	n = ec.CopyTo(small)
	assert.Equal(t, 6, n)
	assert.Equal(t, "Price", string(small[:5]))
	assert.Zero(t, small[5])

	ec.Clear()
	assert.Empty(t, ec.Last())
	assert.Equal(t, 1, ec.CopyTo(buf))
	assert.Zero(t, buf[0])
}

func TestFacadeLastError(t *testing.T) {
	f := newTestFacade()
	var ec ErrorContext
	ctx := context.Background()

	assert.Zero(t, f.Price(ctx, &ec, 42, 100, 0.2, 0.05, 1, 10))
	want := ec.Last()
	require.True(t, strings.HasPrefix(want, "Price: "), want)

	buf := make([]byte, 128)
	n := f.LastError(&ec, buf)
	assert.Equal(t, want, string(buf[:n-1]))

	f.ClearLastError(&ec)
	assert.Equal(t, 1, f.LastError(&ec, nil))

	buf[0] = 'x'
	assert.Equal(t, 1, f.LastError(nil, buf))
	assert.Zero(t, buf[0])
	f.ClearLastError(nil)
}
