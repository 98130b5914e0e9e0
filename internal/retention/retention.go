// Package retention runs a periodic prune that keeps a store at a bounded size.
package retention

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrDisabled is returned by Start when the interval is not positive.
var ErrDisabled = errors.New("retention loop disabled")

// Pruner is the store operation the policy drives.
type Pruner interface {
	Prune(ctx context.Context, maxItems int) (int, error)
}

// Policy prunes a store to MaxItems every Interval.
type Policy struct {
	pruner   Pruner
	maxItems int
	interval time.Duration
	logger   *zap.Logger
	onPrune  func(removed int)

	mu       sync.Mutex
	started  bool
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithLogger sets a logger for prune results and failures.
func WithLogger(l *zap.Logger) PolicyOption {
	return func(p *Policy) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPruneCallback registers f to be called after every tick with the number removed.
func WithPruneCallback(f func(removed int)) PolicyOption {
	return func(p *Policy) { p.onPrune = f }
}

// NewPolicy creates a policy. It does nothing until Start.
func NewPolicy(pruner Pruner, maxItems int, interval time.Duration, opts ...PolicyOption) *Policy {
	if maxItems < 0 {
		maxItems = 0
	}
	p := &Policy{
		pruner:   pruner,
		maxItems: maxItems,
		interval: interval,
		logger:   zap.NewNop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunOnce prunes immediately.
func (p *Policy) RunOnce(ctx context.Context) (int, error) {
	removed, err := p.pruner.Prune(ctx, p.maxItems)
	if err != nil {
		p.logger.Warn("retention prune failed", zap.Error(err))
		return 0, err
	}
	if removed > 0 {
		p.logger.Info("retention pruned items", zap.Int("removed", removed), zap.Int("max_items", p.maxItems))
	}
	if p.onPrune != nil {
		p.onPrune(removed)
	}
	return removed, nil
}

// Start launches the loop. It runs until ctx is cancelled or Stop is called.
// Calling Start twice is a no-op.
func (p *Policy) Start(ctx context.Context) error {
	if p.interval <= 0 {
		return ErrDisabled
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	p.started = true
	p.logger.Debug("retention loop starting", zap.Duration("interval", p.interval), zap.Int("max_items", p.maxItems))
	p.wg.Add(1)
	go p.run(ctx)
	return nil
}

func (p *Policy) run(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			_, _ = p.RunOnce(ctx)
		}
	}
}

// Stop ends the loop and waits for an in-progress prune to finish.
func (p *Policy) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}
