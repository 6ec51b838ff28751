package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pool refreshes stale entries in the background. Each worker wakes up on its
// ticker, claims one entry that was read while stale, and refetches it.
type Pool struct {
	cache    *TaskCache
	logger   *zap.Logger
	count    int
	interval time.Duration
	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

func NewPool(cache *TaskCache, logger *zap.Logger, count int, interval time.Duration) *Pool {
	if count < 1 {
		count = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Pool{
		cache:    cache,
		logger:   logger,
		count:    count,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting revalidation pool", zap.Int("workers", p.count))

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping revalidation pool...")
		close(p.stop)
	})
	p.wg.Wait()
	p.logger.Info("Revalidation pool stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processNext(ctx, id)
		}
	}
}

// processNext reports whether an entry was claimed.
func (p *Pool) processNext(ctx context.Context, workerID int) bool {
	userID, ok := p.cache.claimStale()
	if !ok {
		return false
	}

	start := time.Now()
	if err := p.cache.Revalidate(ctx, userID); err != nil {
		p.logger.Error("revalidation failed",
			zap.Int("worker", workerID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return true
	}
	p.logger.Debug("revalidated",
		zap.Int("worker", workerID),
		zap.String("user_id", userID),
		zap.Duration("took", time.Since(start)),
	)
	return true
}
