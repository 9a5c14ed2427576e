package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LavishGent/larder/internal/config"
	"github.com/LavishGent/larder/internal/types"
)

func TestNewPool(t *testing.T) {
	t.Run("creates with config values", func(t *testing.T) {
		p := NewPool(config.DispatchConfig{MaxConcurrent: 3}, nil)
		defer p.Close()

		if p.Stats().MaxConcurrent != 3 {
			t.Errorf("MaxConcurrent = %d, want 3", p.Stats().MaxConcurrent)
		}
	})

	t.Run("applies defaults for zero values", func(t *testing.T) {
		p := NewPool(config.DispatchConfig{}, nil)
		defer p.Close()

		if p.Stats().MaxConcurrent != 8 {
			t.Errorf("MaxConcurrent = %d, want 8", p.Stats().MaxConcurrent)
		}
		if p.ShutdownTimeout() != DefaultShutdownTimeout {
			t.Errorf("ShutdownTimeout() = %v, want %v", p.ShutdownTimeout(), DefaultShutdownTimeout)
		}
	})
}

func TestPoolSubmit(t *testing.T) {
	t.Run("runs every task", func(t *testing.T) {
		p := NewPool(config.DispatchConfig{MaxConcurrent: 4}, nil)

		var ran atomic.Int32
		for i := 0; i < 50; i++ {
			if err := p.Submit(func() { ran.Add(1) }); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
		}
		if err := p.CloseWithTimeout(5 * time.Second); err != nil {
			t.Fatalf("CloseWithTimeout() error = %v", err)
		}
		if ran.Load() != 50 {
			t.Errorf("ran = %d, want 50", ran.Load())
		}
		if p.Stats().Executed != 50 {
			t.Errorf("Executed = %d, want 50", p.Stats().Executed)
		}
	})

	t.Run("bounds concurrency", func(t *testing.T) {
		p := NewPool(config.DispatchConfig{MaxConcurrent: 2}, nil)

		var current, peak atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			_ = p.Submit(func() {
				defer wg.Done()
				n := current.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				current.Add(-1)
			})
		}
		wg.Wait()
		_ = p.Close()

		if peak.Load() > 2 {
			t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
		}
	})

	t.Run("rejects after close", func(t *testing.T) {
		p := NewPool(config.DispatchConfig{MaxConcurrent: 1}, nil)
		_ = p.Close()

		err := p.Submit(func() {})
		if !errors.Is(err, types.ErrPoolClosed) {
			t.Errorf("Submit() error = %v, want ErrPoolClosed", err)
		}
	})

	t.Run("recovers panics", func(t *testing.T) {
		p := NewPool(config.DispatchConfig{MaxConcurrent: 1}, nil)
		_ = p.Submit(func() { panic("boom") })
		_ = p.Close()

		if p.Stats().Panics != 1 {
			t.Errorf("Panics = %d, want 1", p.Stats().Panics)
		}
	})
}

func TestPoolGo(t *testing.T) {
	p := NewPool(config.DispatchConfig{MaxConcurrent: 1}, nil)
	_ = p.Close()

	ran := false
	p.Go(func() { ran = true })
	if !ran {
		t.Error("Go() on closed pool did not run task inline")
	}
}

func TestPoolCloseTimeout(t *testing.T) {
	p := NewPool(config.DispatchConfig{MaxConcurrent: 1}, nil)

	release := make(chan struct{})
	_ = p.Submit(func() { <-release })

	err := p.CloseWithTimeout(20 * time.Millisecond)
	if !errors.Is(err, types.ErrShutdownTimeout) {
		t.Errorf("CloseWithTimeout() error = %v, want ErrShutdownTimeout", err)
	}
	close(release)

	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}

func TestPoolCloseUsesConfiguredTimeout(t *testing.T) {
	p := NewPool(config.DispatchConfig{
		MaxConcurrent:   1,
		ShutdownTimeout: config.Duration{Duration: 20 * time.Millisecond},
	}, nil)

	release := make(chan struct{})
	defer close(release)
	_ = p.Submit(func() { <-release })

	start := time.Now()
	err := p.Close()
	if !errors.Is(err, types.ErrShutdownTimeout) {
		t.Errorf("Close() error = %v, want ErrShutdownTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Close() took %v, want about 20ms", elapsed)
	}
}
