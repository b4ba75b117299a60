package lookback

import (
	"github.com/wyfcoding/lookback/xerrors"
)

// 差分步长的允许区间 [MinStep, MaxStep).
const (
	MinStep = 0.005
	MaxStep = 1.0
)

// Validate 按固定顺序检查合约参数，返回第一条不满足的规则.
// 所有返回的错误都可以用 errors.Is 匹配到 xerrors.ErrInvalidParameter。NaN 视为不满足。
func Validate(spot, sigma, rate float64, kind OptionKind, ttm, h float64) error {
	switch {
	case !(spot > 0):
		return xerrors.ErrSpotNotPositive.WithDetail("S0=%g", spot)
	case !(sigma > 0):
		return xerrors.ErrVolatilityNotPositive.WithDetail("sigma=%g", sigma)
	case !kind.Valid():
		return xerrors.ErrUnknownOptionKind.WithDetail("got %q", rune(kind))
	case !(rate >= 0):
		return xerrors.ErrNegativeRate.WithDetail("r=%g", rate)
	case !(ttm >= 0):
		return xerrors.ErrMaturityBeforeValue.WithDetail("ttm=%g", ttm)
	case !(h >= MinStep):
		return xerrors.ErrStepTooSmall.WithDetail("h=%g", h)
	case !(h < MaxStep):
		return xerrors.ErrStepTooLarge.WithDetail("h=%g", h)
	}
	return nil
}
