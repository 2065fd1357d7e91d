package service

import (
	"context"
	"sync"
)

// WorkerPool bounds how many background jobs run at once. Ticks and
// checkpoints share one pool.
type WorkerPool struct {
	sem chan struct{}
}

func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = DefaultWorkerPoolSize
	}
	return &WorkerPool{sem: make(chan struct{}, size)}
}

// Run executes fn once a slot is free, or returns ctx's error if it is
// cancelled first.
func (p *WorkerPool) Run(ctx context.Context, fn func(ctx context.Context)) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()
	fn(ctx)
	return nil
}

// RunAll runs every job through the pool and waits for all of them.
func (p *WorkerPool) RunAll(ctx context.Context, jobs []func(ctx context.Context)) {
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job func(ctx context.Context)) {
			defer wg.Done()
			_ = p.Run(ctx, job)
		}(job)
	}
	wg.Wait()
}
