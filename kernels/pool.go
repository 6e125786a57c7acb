// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"runtime"
	"sync"
)

// Pool is the compute backend's worker pool. Kernels dispatch slices of work
// through Go/ParallelFor and the backend drains the pool with Sync after
// every kernel, the synchronization barrier that keeps kernel-level reads
// and writes strictly ordered.
type Pool struct {
	maxWorkers int
	sem        chan struct{}
	wg         sync.WaitGroup
}

// NewPool returns a pool running at most maxWorkers goroutines at once.
// A non-positive maxWorkers uses the number of CPUs.
func NewPool(maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &Pool{
		maxWorkers: maxWorkers,
		sem:        make(chan struct{}, maxWorkers),
	}
}

// Go schedules fn on the pool. It blocks while all workers are busy.
func (p *Pool) Go(fn func()) {
	p.wg.Add(1)
	p.sem <- struct{}{}
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
		}()
		fn()
	}()
}

// ParallelFor splits [0, n) into roughly even chunks, one per worker, and
// schedules fn on each chunk.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	chunk := (n + p.maxWorkers - 1) / p.maxWorkers
	for start := 0; start < n; start += chunk {
		start := start
		end := min(start+chunk, n)
		p.Go(func() { fn(start, end) })
	}
}

// Sync blocks until every scheduled unit of work has finished.
func (p *Pool) Sync() { p.wg.Wait() }
