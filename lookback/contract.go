// Package lookback 以蒙特卡洛方法为浮动行权价回望期权定价，并通过有限差分计算希腊值.
//
// 标的服从几何布朗运动。每次抽样取一个正态变量构成对偶的两个终值，再用布朗桥
// 在两端固定的条件下精确抽取路径极值，因此不存在时间离散化偏差。
package lookback

import (
	"strings"

	"github.com/wyfcoding/lookback/datetime"
	"github.com/wyfcoding/lookback/xerrors"
)

// OptionKind 期权方向.
type OptionKind byte

const (
	// Call 收益为 S_T - min(S).
	Call OptionKind = 'c'
	// Put 收益为 max(S) - S_T.
	Put OptionKind = 'p'
)

// ParseOptionKind 解析单字符期权类型，大小写不敏感.
func ParseOptionKind(s string) (OptionKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "c", "call":
		return Call, nil
	case "p", "put":
		return Put, nil
	}
	return 0, xerrors.ErrUnknownOptionKind.WithDetail("got %q", s)
}

// KindFromByte 把外部传入的字符代码转换为 OptionKind，不做合法性检查.
func KindFromByte(b byte) OptionKind {
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	return OptionKind(b)
}

// Valid 报告是否为 Call 或 Put.
func (k OptionKind) Valid() bool {
	return k == Call || k == Put
}

func (k OptionKind) String() string {
	switch k {
	case Call:
		return "call"
	case Put:
		return "put"
	default:
		return "unknown"
	}
}

// ContractSpec 是构造 Contract 的输入.
type ContractSpec struct {
	Spot         float64
	ValueDate    datetime.Date
	MaturityDate datetime.Date
	Sigma        float64
	Rate         float64
	Kind         OptionKind
	Step         float64 // 有限差分步长 h
	Convention   datetime.DayCount
}

// Contract 是经过校验的不可变合约参数，可以按值复制并被多个 goroutine 并发读取.
type Contract struct {
	spot       float64
	sigma      float64
	rate       float64
	ttm        float64
	step       float64
	kind       OptionKind
	valueDate  datetime.Date
	maturity   datetime.Date
	convention datetime.DayCount
}

// NewContract 计算到期期限并校验全部参数，任何一条规则失败都不会返回半成品.
func NewContract(spec ContractSpec) (Contract, error) {
	ttm, err := datetime.YearFraction(spec.ValueDate, spec.MaturityDate, spec.Convention)
	if err != nil {
		return Contract{}, err
	}
	kind := KindFromByte(byte(spec.Kind))
	if err := Validate(spec.Spot, spec.Sigma, spec.Rate, kind, ttm, spec.Step); err != nil {
		return Contract{}, err
	}
	return Contract{
		spot:       spec.Spot,
		sigma:      spec.Sigma,
		rate:       spec.Rate,
		ttm:        ttm,
		step:       spec.Step,
		kind:       kind,
		valueDate:  spec.ValueDate,
		maturity:   spec.MaturityDate,
		convention: spec.Convention,
	}, nil
}

func (c Contract) Spot() float64                 { return c.spot }
func (c Contract) Sigma() float64                { return c.sigma }
func (c Contract) Rate() float64                 { return c.rate }
func (c Contract) TTM() float64                  { return c.ttm }
func (c Contract) Step() float64                 { return c.step }
func (c Contract) Kind() OptionKind              { return c.kind }
func (c Contract) ValueDate() datetime.Date      { return c.valueDate }
func (c Contract) MaturityDate() datetime.Date   { return c.maturity }
func (c Contract) Convention() datetime.DayCount { return c.convention }
