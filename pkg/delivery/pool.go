package delivery

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pool runs several workers over the same queue. Correctness does not depend on the
// worker count: the queue never hands one task to two workers.
type Pool struct {
	workers []*Worker
	queue   Queue
	opts    PoolOptions
	m       *metrics
}

func NewPool(queue Queue, issues IssueSource, sender Sender, opts PoolOptions) (*Pool, error) {
	if opts.Workers < 0 {
		return nil, invalidConfig("workers must not be negative, got %d", opts.Workers)
	}
	opts.setDefaults()

	p := &Pool{queue: queue, opts: opts, m: getMetrics()}
	for i := 0; i < opts.Workers; i++ {
		wopts := opts.Worker
		wopts.Logger = opts.Worker.Logger.WithField("worker", i)
		w, err := NewWorker(queue, issues, sender, wopts)
		if err != nil {
			return nil, err
		}
		p.workers = append(p.workers, w)
	}
	return p, nil
}

func (p *Pool) Name() string {
	return "delivery"
}

func (p *Pool) Size() int {
	return len(p.workers)
}

// Run blocks until ctx is cancelled and every worker has returned. Cancellation is not an error.
func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, w := range p.workers {
		g.Go(func() error {
			return ignoreCanceled(w.Run(gctx))
		})
	}

	if pc, ok := p.queue.(pendingCounter); ok {
		g.Go(func() error {
			p.observePending(gctx, pc)
			return nil
		})
	}

	p.opts.Worker.Logger.WithField("workers", len(p.workers)).Info("delivery: pool started")
	err := g.Wait()
	p.opts.Worker.Logger.Info("delivery: pool stopped")
	return err
}

func (p *Pool) observePending(ctx context.Context, pc pendingCounter) {
	for {
		n, err := pc.Pending(ctx)
		if err == nil {
			p.m.pending.WithLabelValues(pc.TableLabel()).Set(float64(n))
		} else if ctx.Err() == nil {
			p.opts.Worker.Logger.WithError(err).Debug("delivery: observe pending failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.opts.ObservePendingEvery):
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
