package lookback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	e := newTestEngine(t, Call, WithPolicy(Fixed{N: 5_000}), WithDefaultPaths(5_000))
	r, err := e.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5_000, r.Paths)
	assert.LessOrEqual(t, -r.Price.Exponent(), int32(ReportPrecision))
	assert.True(t, r.Price.IsPositive())
	assert.True(t, r.Delta.IsPositive())
	assert.True(t, r.Vega.IsPositive())
	assert.True(t, r.Theta.IsNegative())
	assert.Equal(t, "1", r.TTM.String())
	assert.Contains(t, r.String(), "Price: ")
	assert.Contains(t, r.String(), "Gamma: ")
}
