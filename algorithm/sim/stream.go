// Package sim 提供蒙特卡洛模拟的并行基础设施：每个工作单元独立且可复现的随机流、
// 连续区间划分以及按工作单元顺序归约的并行求和。
package sim

import (
	"math/rand/v2"

	"github.com/wyfcoding/lookback/cast"
)

// UniformFloor 与 UniformCeil 是均匀分布抽样的夹取边界，保证 ln(u) 与 ln(1-u) 有限.
const (
	UniformFloor = 1e-15
	UniformCeil  = 1 - 1e-15
)

// Stream 是单个工作单元独占的伪随机数流，不可并发使用.
type Stream struct {
	rng *rand.Rand
}

// NewStream 由全局种子与工作单元序号派生 PCG 流. 相同的 (seed, worker) 永远得到相同的序列.
func NewStream(seed uint64, worker int) *Stream {
	mixed := seed ^ cast.IntToUint64(worker)
	hi := splitmix64(mixed)
	lo := splitmix64(hi ^ mixed)
	return &Stream{rng: rand.New(rand.NewPCG(hi, lo))}
}

// Normal 返回一个标准正态分布样本.
func (s *Stream) Normal() float64 {
	return s.rng.NormFloat64()
}

// Uniform 返回夹取到 [UniformFloor, UniformCeil] 的 (0,1) 均匀样本.
func (s *Stream) Uniform() float64 {
	return ClampUniform(s.rng.Float64())
}

// ClampUniform 将 u 夹取到 [UniformFloor, UniformCeil].
func ClampUniform(u float64) float64 {
	if u < UniformFloor {
		return UniformFloor
	}
	if u > UniformCeil {
		return UniformCeil
	}
	return u
}

// splitmix64 打散相邻种子，避免序号相近的工作单元得到相关的初始状态.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
