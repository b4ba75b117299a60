package lookback

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/lookback/datetime"
	"github.com/wyfcoding/lookback/xerrors"
)

func baseSpec() ContractSpec {
	return ContractSpec{
		Spot:         100,
		ValueDate:    datetime.MustParse("01-01-2024"),
		MaturityDate: datetime.MustParse("01-01-2025"),
		Sigma:        0.2,
		Rate:         0.05,
		Kind:         Call,
		Step:         0.01,
		Convention:   datetime.ActActISDA,
	}
}

func TestNewContract(t *testing.T) {
	c, err := NewContract(baseSpec())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, c.TTM(), 1e-12)
	assert.Equal(t, 100.0, c.Spot())
	assert.Equal(t, 0.2, c.Sigma())
	assert.Equal(t, 0.05, c.Rate())
	assert.Equal(t, 0.01, c.Step())
	assert.Equal(t, Call, c.Kind())
	assert.Equal(t, datetime.ActActISDA, c.Convention())
	assert.Equal(t, "01-01-2025", c.MaturityDate().String())
}

func TestNewContractLowercasesKind(t *testing.T) {
	spec := baseSpec()
	spec.Kind = 'P'
	c, err := NewContract(spec)
	require.NoError(t, err)
	assert.Equal(t, Put, c.Kind())
}

func TestNewContractRejectsInvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ContractSpec)
		want   error
	}{
		{"zero spot", func(s *ContractSpec) { s.Spot = 0 }, xerrors.ErrSpotNotPositive},
		{"negative sigma", func(s *ContractSpec) { s.Sigma = -1 }, xerrors.ErrVolatilityNotPositive},
		{"unknown kind", func(s *ContractSpec) { s.Kind = 'x' }, xerrors.ErrUnknownOptionKind},
		{"negative rate", func(s *ContractSpec) { s.Rate = -0.01 }, xerrors.ErrNegativeRate},
		{"maturity before value date", func(s *ContractSpec) {
			s.MaturityDate = datetime.MustParse("01-06-2023")
		}, xerrors.ErrMaturityBeforeValue},
		{"zero step", func(s *ContractSpec) { s.Step = 0 }, xerrors.ErrStepTooSmall},
		{"step of one", func(s *ContractSpec) { s.Step = 1 }, xerrors.ErrStepTooLarge},
		{"NaN sigma", func(s *ContractSpec) { s.Sigma = math.NaN() }, xerrors.ErrVolatilityNotPositive},
	}

	reasons := map[string]string{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := baseSpec()
			tt.mutate(&spec)
			_, err := NewContract(spec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, errors.Is(err, xerrors.ErrInvalidParameter))
			reasons[tt.name] = xerrors.Reason(tt.want)
		})
	}

	seen := map[string]bool{}
	for name, reason := range reasons {
		if name == "NaN sigma" {
			continue
		}
		assert.False(t, seen[reason], "reason %q is not distinct", reason)
		seen[reason] = true
	}
}

func TestValidateOrder(t *testing.T) {
	err := Validate(0, -1, -1, 'x', -1, 0)
	assert.True(t, errors.Is(err, xerrors.ErrSpotNotPositive))

	err = Validate(1, 0.2, -1, 'x', -1, 0)
	assert.True(t, errors.Is(err, xerrors.ErrUnknownOptionKind))
}

func TestNewContractUnknownConvention(t *testing.T) {
	spec := baseSpec()
	spec.Convention = datetime.DayCount(9)
	_, err := NewContract(spec)
	assert.True(t, errors.Is(err, xerrors.ErrUnknownConvention))
}

func TestParseOptionKind(t *testing.T) {
	for in, want := range map[string]OptionKind{"c": Call, "C": Call, "call": Call, "p": Put, " P ": Put} {
		got, err := ParseOptionKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseOptionKind("x")
	assert.True(t, errors.Is(err, xerrors.ErrUnknownOptionKind))
}
