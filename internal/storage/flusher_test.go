package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingFlushable struct {
	calls atomic.Int32
	err   error
}

func (c *countingFlushable) Flush() error {
	c.calls.Add(1)
	return c.err
}

func TestFlusher_Run(t *testing.T) {
	t.Run("flushes on interval and on shutdown", func(t *testing.T) {
		target := &countingFlushable{}
		f := NewFlusher(target, 10*time.Millisecond, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			f.Run(ctx)
			close(done)
		}()

		time.Sleep(55 * time.Millisecond)
		cancel()
		<-done

		if n := target.calls.Load(); n < 2 {
			t.Errorf("Expected at least 2 flushes, got %d", n)
		}
	})

	t.Run("keeps running after flush errors", func(t *testing.T) {
		target := &countingFlushable{err: errors.New("disk full")}
		f := NewFlusher(target, 5*time.Millisecond, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		f.Run(ctx)

		if n := target.calls.Load(); n < 2 {
			t.Errorf("Expected repeated flush attempts, got %d", n)
		}
	})

	t.Run("defaults zero interval", func(t *testing.T) {
		f := NewFlusher(&countingFlushable{}, 0, nil)
		if f.interval != DefaultFlushInterval {
			t.Errorf("Expected default interval, got %v", f.interval)
		}
	})
}
