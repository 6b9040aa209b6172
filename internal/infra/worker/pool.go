// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/TSHgroup/hh25-backend/internal/infra/metrics"
)

// A very small worker pool for fire-and-forget background work (outgoing mail).

type Task func(ctx context.Context) error

type job struct {
	kind string
	run  Task
}

var ErrQueueFull = errors.New("worker queue full")

type Pool struct {
	wg   sync.WaitGroup
	jobs chan job
	quit chan struct{}
	once sync.Once
	n    int
	log  *zerolog.Logger
}

func NewPool(workers int, log *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	l := log.With().Str("component", "workerPool").Logger()
	return &Pool{jobs: make(chan job, workers*4), quit: make(chan struct{}), n: workers, log: &l}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					p.drain(ctx, id)
					return
				case j := <-p.jobs:
					p.run(ctx, id, j)
				}
			}
		}(i)
	}
}

// drain runs whatever is still queued when Stop is called.
func (p *Pool) drain(ctx context.Context, id int) {
	for {
		select {
		case j := <-p.jobs:
			p.run(ctx, id, j)
		default:
			return
		}
	}
}

func (p *Pool) run(ctx context.Context, id int, j job) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncJob(j.kind, "failed")
			p.log.Error().Interface("panic", r).Int("worker", id).Str("kind", j.kind).Msg("task panicked")
		}
	}()
	if err := j.run(ctx); err != nil {
		metrics.IncJob(j.kind, "failed")
		p.log.Error().Err(err).Int("worker", id).Str("kind", j.kind).Msg("task error")
		return
	}
	metrics.IncJob(j.kind, "completed")
}

// Stop lets workers finish queued tasks and waits for them. Safe to call more than once.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pool) Submit(kind string, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- job{kind: kind, run: task}:
		return nil
	default:
		// drop when saturated rather than block the request path
		metrics.IncJob(kind, "dropped")
		return ErrQueueFull
	}
}
