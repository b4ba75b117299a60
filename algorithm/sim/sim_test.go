package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/lookback/xerrors"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		workers int
		want    []Chunk
	}{
		{"even", 8, 4, []Chunk{{0, 2}, {2, 2}, {4, 2}, {6, 2}}},
		{"remainder", 10, 4, []Chunk{{0, 3}, {3, 3}, {6, 2}, {8, 2}}},
		{"more workers than draws", 3, 8, []Chunk{{0, 1}, {1, 1}, {2, 1}}},
		{"zero workers", 5, 0, []Chunk{{0, 5}}},
		{"empty", 0, 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Partition(tt.n, tt.workers))
		})
	}
}

func TestStreamDeterministic(t *testing.T) {
	a, b := NewStream(42, 3), NewStream(42, 3)
	for range 100 {
		require.Equal(t, a.Normal(), b.Normal())
		require.Equal(t, a.Uniform(), b.Uniform())
	}
	c := NewStream(42, 4)
	assert.NotEqual(t, NewStream(42, 3).Normal(), c.Normal())
}

func TestClampUniform(t *testing.T) {
	assert.Equal(t, UniformFloor, ClampUniform(0))
	assert.Equal(t, UniformCeil, ClampUniform(1))
	assert.Equal(t, 0.5, ClampUniform(0.5))
}

func meanKernel(s *Stream, count int) Partial {
	var p Partial
	for range count {
		x := s.Normal()
		p.Sum += x
		p.SumSq += x * x
		p.Count++
	}
	return p
}

func TestReduceIndependentOfExecutor(t *testing.T) {
	ctx := context.Background()
	goRes, err := Reduce(ctx, GoExecutor{}, 10_001, 7, 99, meanKernel)
	require.NoError(t, err)
	serialRes, err := Reduce(ctx, SerialExecutor{}, 10_001, 7, 99, meanKernel)
	require.NoError(t, err)

	assert.Equal(t, goRes, serialRes)
	assert.Equal(t, 10_001, goRes.Count)
	assert.InDelta(t, 1.0, goRes.SumSq/float64(goRes.Count), 0.05)
}

func TestExecutorPanicBecomesError(t *testing.T) {
	for _, exec := range []Executor{GoExecutor{}, SerialExecutor{}} {
		err := exec.Execute(context.Background(), 3, func(_ context.Context, i int) {
			if i == 1 {
				panic("bad draw")
			}
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, xerrors.ErrSimulationPanic))
	}
}
