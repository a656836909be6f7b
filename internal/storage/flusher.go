package storage

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultFlushInterval is used when a Flusher is created with a zero interval.
const DefaultFlushInterval = 5 * time.Second

// Flusher periodically flushes a write-buffered store.
type Flusher struct {
	store    Flushable
	interval time.Duration
	logger   *zap.Logger
}

// NewFlusher creates a Flusher for store.
func NewFlusher(store Flushable, interval time.Duration, logger *zap.Logger) *Flusher {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flusher{
		store:    store,
		interval: interval,
		logger:   logger.Named("flusher"),
	}
}

// Run flushes on every tick until ctx is done, then flushes a final time.
func (f *Flusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := f.store.Flush(); err != nil {
				f.logger.Error("flush failed", zap.Error(err))
			}
		case <-ctx.Done():
			if err := f.store.Flush(); err != nil {
				f.logger.Error("final flush failed", zap.Error(err))
			}
			return
		}
	}
}
