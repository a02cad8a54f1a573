package devfs

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// scratchPool hands out transient regions for a single read or write.
// When a limit is set, the bytes held by in-flight operations never
// exceed it; a request that does not fit fails at once with ErrNoMemory
// instead of waiting.
type scratchPool struct {
	budget *semaphore.Weighted // nil means unlimited
	pool   sync.Pool
}

func newScratchPool(limit int64) *scratchPool {
	p := &scratchPool{}
	if limit > 0 {
		p.budget = semaphore.NewWeighted(limit)
	}
	return p
}

// acquire returns a region of exactly n bytes. Every successful acquire
// must be paired with release.
func (p *scratchPool) acquire(n int) ([]byte, error) {
	if p.budget != nil && !p.budget.TryAcquire(int64(n)) {
		return nil, ErrNoMemory
	}

	if v, ok := p.pool.Get().(*[]byte); ok && cap(*v) >= n {
		return (*v)[:n], nil
	}
	return make([]byte, n), nil
}

// release wipes the region and returns it to the pool
func (p *scratchPool) release(buf []byte) {
	clear(buf)
	if p.budget != nil {
		p.budget.Release(int64(len(buf)))
	}
	if cap(buf) > 0 {
		p.pool.Put(&buf)
	}
}
