// Package dispatch runs asynchronous cache operations on a bounded set of
// goroutines and tracks them for graceful shutdown.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/LavishGent/larder/internal/config"
	"github.com/LavishGent/larder/internal/types"
)

const defaultMaxConcurrent = 8

// Pool admits at most MaxConcurrent tasks at a time. Tasks beyond that wait
// for a slot; Submit itself never blocks.
type Pool struct {
	sem             *semaphore.Weighted
	logger          *slog.Logger
	maxConcurrent   int
	shutdownTimeout time.Duration

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed atomic.Bool

	active   atomic.Int32
	queued   atomic.Int32
	executed atomic.Int64
	panics   atomic.Int64
}

// NewPool creates a pool from config. A non-positive MaxConcurrent falls back
// to 8 and a non-positive ShutdownTimeout to DefaultShutdownTimeout.
func NewPool(cfg config.DispatchConfig, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	shutdownTimeout := cfg.ShutdownTimeout.Duration
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &Pool{
		sem:             semaphore.NewWeighted(int64(maxConcurrent)),
		logger:          logger.With("component", "dispatch"),
		maxConcurrent:   maxConcurrent,
		shutdownTimeout: shutdownTimeout,
	}
}

// Submit schedules fn. It returns ErrPoolClosed once Close has started.
func (p *Pool) Submit(fn func()) error {
	// Hold mu while checking closed and adding to the WaitGroup so Add never
	// races with Wait in CloseWithTimeout.
	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		return types.ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	p.queued.Add(1)
	go func() {
		defer p.wg.Done()

		// Background context: queued work drains even during shutdown.
		_ = p.sem.Acquire(context.Background(), 1)
		p.queued.Add(-1)
		defer p.sem.Release(1)

		p.run(fn)
	}()
	return nil
}

// Go runs fn on the pool, or inline on the caller when the pool is closed.
func (p *Pool) Go(fn func()) {
	if err := p.Submit(fn); err != nil {
		p.logger.Debug("Pool closed, running task inline")
		fn()
	}
}

func (p *Pool) run(fn func()) {
	p.active.Add(1)
	defer p.active.Add(-1)
	defer p.executed.Add(1)
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			p.logger.Error("Recovered from panic in async task", "panic", r)
		}
	}()
	fn()
}

// Close waits for in-flight tasks using the configured shutdown timeout.
func (p *Pool) Close() error {
	return p.CloseWithTimeout(p.shutdownTimeout)
}

// ShutdownTimeout returns the bound Close waits for queued tasks.
func (p *Pool) ShutdownTimeout() time.Duration {
	return p.shutdownTimeout
}

// DefaultShutdownTimeout bounds how long Close waits for queued tasks.
const DefaultShutdownTimeout = 30 * time.Second

// CloseWithTimeout stops accepting work and waits for queued tasks. It
// returns ErrShutdownTimeout if they do not finish in time.
func (p *Pool) CloseWithTimeout(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed.Swap(true) {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		p.logger.Warn("Shutdown timeout exceeded with tasks still running",
			"timeout", timeout,
			"active", p.active.Load(),
			"queued", p.queued.Load(),
		)
		return types.ErrShutdownTimeout
	}
}

// Stats returns pool statistics.
func (p *Pool) Stats() Stats {
	return Stats{
		MaxConcurrent: p.maxConcurrent,
		Active:        int(p.active.Load()),
		Queued:        int(p.queued.Load()),
		Executed:      p.executed.Load(),
		Panics:        p.panics.Load(),
		Closed:        p.closed.Load(),
	}
}

// Stats contains pool statistics.
type Stats struct {
	MaxConcurrent int
	Active        int
	Queued        int
	Executed      int64
	Panics        int64
	Closed        bool
}
