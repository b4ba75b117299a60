package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/lookback/bootstrap"
	"github.com/wyfcoding/lookback/config"
	"github.com/wyfcoding/lookback/datetime"
	"github.com/wyfcoding/lookback/lookback"
)

func TestParseFlagsDefaults(t *testing.T) {
	o, err := parseFlags(nil)
	require.NoError(t, err)
	assert.False(t, o.serve)
	assert.Equal(t, "01-01-2022", o.valueDate)
	assert.Equal(t, "01-01-2030", o.maturity)
	assert.Equal(t, 100.0, o.spot)
	assert.Equal(t, "c", o.kind)
	assert.Equal(t, "4", o.convention)
}

func TestContractSpecConvention(t *testing.T) {
	o, err := parseFlags([]string{"-convention", "ACT/365F", "-kind", "p"})
	require.NoError(t, err)
	spec, err := contractSpec(o)
	require.NoError(t, err)
	assert.Equal(t, datetime.ACT365F, spec.Convention)
	assert.Equal(t, lookback.Put, spec.Kind)

	o.convention = "9"
	_, err = contractSpec(o)
	assert.Error(t, err)

	o.convention = "4"
	o.valueDate = "2022-01-01"
	_, err = contractSpec(o)
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.DefaultPaths = 2000
	cfg.Engine.Workers = 2
	cfg.Greeks.Policy = "fixed"
	cfg.Greeks.FixedPaths = 2000
	cfg.Metrics.Enabled = false
	cfg.Cache.Enabled = false

	stack, err := bootstrap.New(&cfg, serviceName)
	require.NoError(t, err)
	defer stack.Close(context.Background())

	o, err := parseFlags([]string{"-analytic"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, report(&out, o, stack))
	for _, want := range []string{"Option: call", "TTM: ", "Price: ", "Gamma: ", "Closed form: "} {
		assert.Contains(t, out.String(), want)
	}
}
