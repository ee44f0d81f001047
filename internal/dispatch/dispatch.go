// Package dispatch runs one worker goroutine per key so jobs for the
// same key execute strictly in order while different keys proceed in
// parallel, bounded by a shared semaphore.
//
// Workers and their map entries are never reclaimed: an idle key keeps
// one parked goroutine and a buffered channel until the dispatcher
// context ends. That holds the per-key ordering guarantee with no
// drain/restart races and stays cheap at the scale of one worker per
// active user.
package dispatch

import (
	"context"
	"sync"
)

const (
	defaultMaxInFlight = 8
	defaultQueueSize   = 16
)

type Options[J any] struct {
	// Ctx stops every worker when done.
	Ctx context.Context
	// MaxInFlight bounds how many handlers run at once across all keys.
	MaxInFlight int
	// QueueSize is the per-key job buffer; Enqueue blocks (up to its
	// context) once a key's buffer is full.
	QueueSize int
	Handle    func(ctx context.Context, job J)
}

type Dispatcher[J any] struct {
	opts Options[J]
	sem  chan struct{}

	mu      sync.Mutex
	workers map[string]chan J
}

func New[J any](opts Options[J]) *Dispatcher[J] {
	if opts.Ctx == nil {
		opts.Ctx = context.Background()
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = defaultMaxInFlight
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	return &Dispatcher[J]{
		opts:    opts,
		sem:     make(chan struct{}, opts.MaxInFlight),
		workers: make(map[string]chan J),
	}
}

// Enqueue hands job to key's worker, starting it on first use. It
// returns the context error if ctx or the dispatcher context ends
// before the job is accepted.
func (d *Dispatcher[J]) Enqueue(ctx context.Context, key string, job J) error {
	if ctx == nil {
		ctx = d.opts.Ctx
	}
	jobs := d.workerFor(key)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.opts.Ctx.Done():
		return d.opts.Ctx.Err()
	case jobs <- job:
		return nil
	}
}

// QueueLen reports how many jobs are waiting for key, for health
// reporting.
func (d *Dispatcher[J]) QueueLen(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if jobs, ok := d.workers[key]; ok {
		return len(jobs)
	}
	return 0
}

func (d *Dispatcher[J]) workerFor(key string) chan J {
	d.mu.Lock()
	defer d.mu.Unlock()
	if jobs, ok := d.workers[key]; ok {
		return jobs
	}
	jobs := make(chan J, d.opts.QueueSize)
	d.workers[key] = jobs
	go d.run(jobs)
	return jobs
}

func (d *Dispatcher[J]) run(jobs <-chan J) {
	for {
		select {
		case <-d.opts.Ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			select {
			case d.sem <- struct{}{}:
			case <-d.opts.Ctx.Done():
				return
			}
			func() {
				defer func() { <-d.sem }()
				d.opts.Handle(d.opts.Ctx, job)
			}()
		}
	}
}
