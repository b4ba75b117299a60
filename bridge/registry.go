// Package bridge 把定价引擎适配给不使用 Go 错误约定的调用方：
// 以整数句柄管理引擎生命周期，失败时返回哨兵值并把原因写入调用方持有的 ErrorContext。
package bridge

import (
	"log/slog"
	"sync"

	"github.com/wyfcoding/lookback/datetime"
	"github.com/wyfcoding/lookback/idgen"
	"github.com/wyfcoding/lookback/lookback"
	"github.com/wyfcoding/lookback/xerrors"
)

// Handle 标识一个已创建的定价引擎，0 永远不是有效句柄。
type Handle int64

// Params 是创建引擎的外部输入，日期格式为 dd-mm-yyyy，Convention 为 0..4 的整数编码。
type Params struct {
	Spot         float64 `json:"spot"`
	ValueDate    string  `json:"value_date"`
	MaturityDate string  `json:"maturity_date"`
	Sigma        float64 `json:"sigma"`
	Rate         float64 `json:"rate"`
	Kind         byte    `json:"kind"`
	Step         float64 `json:"h"`
	Convention   int     `json:"convention"`
}

// ConventionFromCode 把整数编码映射为日计数约定，越界编码返回 ErrUnknownConvention。
func ConventionFromCode(code int) (datetime.DayCount, error) {
	dc := datetime.DayCount(code)
	if !dc.Valid() {
		return 0, xerrors.ErrUnknownConvention.WithDetail("code %d", code)
	}
	return dc, nil
}

// Spec 解析外部输入，得到构造合约所需的 ContractSpec。
func (p Params) Spec() (lookback.ContractSpec, error) {
	value, err := datetime.ParseDate(p.ValueDate)
	if err != nil {
		return lookback.ContractSpec{}, err
	}
	maturity, err := datetime.ParseDate(p.MaturityDate)
	if err != nil {
		return lookback.ContractSpec{}, err
	}
	dc, err := ConventionFromCode(p.Convention)
	if err != nil {
		return lookback.ContractSpec{}, err
	}
	return lookback.ContractSpec{
		Spot:         p.Spot,
		ValueDate:    value,
		MaturityDate: maturity,
		Sigma:        p.Sigma,
		Rate:         p.Rate,
		Kind:         lookback.KindFromByte(p.Kind),
		Step:         p.Step,
		Convention:   dc,
	}, nil
}

// Registry 保存句柄到引擎的映射，可被多个 goroutine 并发使用。
type Registry struct {
	mu      sync.RWMutex
	engines map[Handle]*lookback.Engine
	ids     idgen.Generator
	opts    []lookback.Option
	logger  *slog.Logger
}

// NewRegistry 创建注册表，opts 应用于每个新建的引擎。
func NewRegistry(ids idgen.Generator, logger *slog.Logger, opts ...lookback.Option) *Registry {
	if ids == nil {
		ids = new(idgen.Sequence)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		engines: make(map[Handle]*lookback.Engine),
		ids:     ids,
		opts:    opts,
		logger:  logger,
	}
}

// Open 校验参数并创建引擎。任何失败都不会留下注册项。
func (r *Registry) Open(p Params) (Handle, *lookback.Engine, error) {
	spec, err := p.Spec()
	if err != nil {
		return 0, nil, err
	}
	return r.OpenSpec(spec)
}

// OpenSpec 以已解析的合约参数创建引擎。
func (r *Registry) OpenSpec(spec lookback.ContractSpec) (Handle, *lookback.Engine, error) {
	contract, err := lookback.NewContract(spec)
	if err != nil {
		return 0, nil, err
	}

	id := Handle(r.ids.Generate())
	if id <= 0 {
		return 0, nil, xerrors.Internal("handle id generation failed", nil)
	}
	engine := lookback.NewEngine(contract, r.opts...)

	r.mu.Lock()
	r.engines[id] = engine
	r.mu.Unlock()

	r.logger.Info("pricer opened", "handle", int64(id), "kind", contract.Kind().String(), "ttm", contract.TTM())
	return id, engine, nil
}

// Engine 返回句柄对应的引擎。
func (r *Registry) Engine(h Handle) (*lookback.Engine, error) {
	r.mu.RLock()
	e, ok := r.engines[h]
	r.mu.RUnlock()
	if !ok {
		return nil, xerrors.ErrUnknownHandle.WithDetail("handle %d", int64(h))
	}
	return e, nil
}

// Close 销毁句柄。未知句柄返回 ErrUnknownHandle。
func (r *Registry) Close(h Handle) error {
	r.mu.Lock()
	_, ok := r.engines[h]
	delete(r.engines, h)
	r.mu.Unlock()
	if !ok {
		return xerrors.ErrUnknownHandle.WithDetail("handle %d", int64(h))
	}
	r.logger.Info("pricer closed", "handle", int64(h))
	return nil
}

// Len 返回存活的句柄数。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}
