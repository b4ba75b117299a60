package lookback

import (
	"math"

	"github.com/wyfcoding/lookback/xerrors"
)

// AnalyticPrice 返回连续监测的浮动行权价回望期权闭式解（Goldman–Sosin–Gatto），
// 极值从当前现货开始记录. 要求 r > 0 且 T > 0.
func AnalyticPrice(kind OptionKind, s, sigma, r, t float64) (float64, error) {
	switch {
	case !kind.Valid():
		return 0, xerrors.ErrUnknownOptionKind.WithDetail("got %q", rune(kind))
	case !(s >= 0) || !(sigma > 0):
		return 0, xerrors.ErrInvalidPriceArgument.WithDetail("S=%g sigma=%g", s, sigma)
	case !(r > 0) || !(t > 0):
		return 0, xerrors.ErrAnalyticDomain.WithDetail("r=%g T=%g", r, t)
	}

	sqrtT := math.Sqrt(t)
	a1 := (r + 0.5*sigma*sigma) * sqrtT / sigma
	a2 := a1 - sigma*sqrtT
	disc := math.Exp(-r * t)
	ratio := sigma * sigma / (2 * r)

	if kind == Call {
		return s*normCDF(a1) -
			s*disc*normCDF(a2) -
			s*ratio*normCDF(-a1) +
			s*disc*ratio*normCDF(-a1+2*r*sqrtT/sigma), nil
	}
	return s*disc*(1-ratio)*normCDF(-a2) +
		s*ratio*normCDF(a1) -
		s*normCDF(-a1), nil
}

func normCDF(x float64) float64 {
	return (1.0 + math.Erf(x/math.Sqrt2)) / 2.0
}
