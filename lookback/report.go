package lookback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReportPrecision 是报告中数值保留的小数位数.
const ReportPrecision = 6

// Report 是价格与全部希腊值的汇总，数值按 ReportPrecision 四舍五入.
type Report struct {
	Price   decimal.Decimal `json:"price"`
	Delta   decimal.Decimal `json:"delta"`
	Gamma   decimal.Decimal `json:"gamma"`
	Vega    decimal.Decimal `json:"vega"`
	Rho     decimal.Decimal `json:"rho"`
	Theta   decimal.Decimal `json:"theta"`
	TTM     decimal.Decimal `json:"ttm"`
	Paths   int             `json:"paths"`
	Elapsed time.Duration   `json:"elapsed_ns"`
}

// Report 以默认路径数定价，并在 S0 处计算全部希腊值. 希腊值依次顺序计算.
func (e *Engine) Report(ctx context.Context) (Report, error) {
	start := time.Now()

	price, err := e.Value(ctx)
	if err != nil {
		return Report{}, err
	}
	delta, err := e.Delta(ctx, e.contract.spot)
	if err != nil {
		return Report{}, err
	}
	rho, err := e.Rho(ctx)
	if err != nil {
		return Report{}, err
	}
	vega, err := e.Vega(ctx)
	if err != nil {
		return Report{}, err
	}
	theta, err := e.Theta(ctx)
	if err != nil {
		return Report{}, err
	}
	gamma, err := e.Gamma(ctx)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Price:   round(price),
		Delta:   round(delta),
		Gamma:   round(gamma),
		Vega:    round(vega),
		Rho:     round(rho),
		Theta:   round(theta),
		TTM:     round(e.contract.ttm),
		Paths:   e.defaultPaths,
		Elapsed: time.Since(start),
	}, nil
}

// String 按行输出报告.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Price: %s\n", r.Price)
	fmt.Fprintf(&b, "Delta: %s\n", r.Delta)
	fmt.Fprintf(&b, "Rho: %s\n", r.Rho)
	fmt.Fprintf(&b, "Vega: %s\n", r.Vega)
	fmt.Fprintf(&b, "Theta: %s\n", r.Theta)
	fmt.Fprintf(&b, "Gamma: %s\n", r.Gamma)
	fmt.Fprintf(&b, "Elapsed: %.3f s\n", r.Elapsed.Seconds())
	return b.String()
}

func round(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(ReportPrecision)
}
