package sim

import (
	"context"
)

// Chunk 是分配给单个工作单元的连续抽样区间.
type Chunk struct {
	Start int
	Count int
}

// Partition 把 n 次抽样划分为至多 workers 个连续区间，前 n%workers 个区间多分一次.
// workers 不超过 n；n <= 0 时返回 nil.
func Partition(n, workers int) []Chunk {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	chunks := make([]Chunk, workers)
	base, rem := n/workers, n%workers
	start := 0
	for w := range chunks {
		count := base
		if w < rem {
			count++
		}
		chunks[w] = Chunk{Start: start, Count: count}
		start += count
	}
	return chunks
}

// Partial 是一个工作单元的累加结果.
type Partial struct {
	Sum   float64
	SumSq float64
	Count int
}

// Add 合并另一个部分和.
func (p *Partial) Add(o Partial) {
	p.Sum += o.Sum
	p.SumSq += o.SumSq
	p.Count += o.Count
}

// Kernel 在给定随机流上完成 count 次抽样并返回部分和.
type Kernel func(stream *Stream, count int) Partial

// Reduce 并行执行 kernel 并按工作单元序号顺序合并部分和.
// 对固定的 (n, workers, seed)，结果与执行器及调度顺序无关，逐位一致.
func Reduce(ctx context.Context, exec Executor, n, workers int, seed uint64, kernel Kernel) (Partial, error) {
	chunks := Partition(n, workers)
	if len(chunks) == 0 {
		return Partial{}, nil
	}
	if exec == nil {
		exec = GoExecutor{}
	}

	slots := make([]Partial, len(chunks))
	err := exec.Execute(ctx, len(chunks), func(_ context.Context, w int) {
		slots[w] = kernel(NewStream(seed, w), chunks[w].Count)
	})
	if err != nil {
		return Partial{}, err
	}

	var total Partial
	for _, p := range slots {
		total.Add(p)
	}
	return total, nil
}
