package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// sweeper runs a disk sweep at a fixed interval until stopped.
type sweeper struct {
	sweep    func()
	logger   *slog.Logger
	cancel   context.CancelFunc
	ctx      context.Context
	wg       sync.WaitGroup
	interval time.Duration
	once     sync.Once
}

func newSweeper(interval time.Duration, sweep func(), logger *slog.Logger) *sweeper {
	return &sweeper{
		sweep:    sweep,
		interval: interval,
		logger:   logger,
	}
}

// start begins the sweep loop. The context controls the goroutine lifetime.
func (s *sweeper) start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()
	s.logger.Debug("Disk sweeper started", "interval", s.interval)
}

// stop cancels the loop and waits for an in-flight sweep to finish.
func (s *sweeper) stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.logger.Debug("Disk sweeper stopped")
	})
}

func (s *sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *sweeper) runOnce() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic in disk sweep", "panic", r)
		}
	}()
	s.sweep()
}
