// Package workerpool wraps ants with submission accounting for
// background maintenance jobs.
package workerpool

import (
	"errors"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/telefiles/filedepot/internal/pkg/logger"
	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Pool runs submitted tasks on a bounded set of workers.
type Pool struct {
	pool   *ants.Pool
	logger *logger.Logger

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// New creates a pool with the given number of workers.
func New(workers int, log *logger.Logger) (*Pool, error) {
	if workers <= 0 {
		workers = 4
	}
	p, err := ants.NewPool(workers, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	return &Pool{pool: p, logger: log}, nil
}

// Submit schedules fn for execution. A panic inside fn is recovered and
// counted as a failure.
func (p *Pool) Submit(name string, fn func() error) error {
	if p.pool.IsClosed() {
		return ErrPoolClosed
	}

	p.submitted.Add(1)
	return p.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				p.failed.Add(1)
				p.logger.Error("background task panicked",
					zap.String("task", name),
					zap.Any("panic", r),
				)
			}
		}()

		if err := fn(); err != nil {
			p.failed.Add(1)
			p.logger.Error("background task failed",
				zap.String("task", name),
				zap.Error(err),
			)
			return
		}
		p.completed.Add(1)
	})
}

// Stats reports submission counters.
func (p *Pool) Stats() (submitted, completed, failed int64) {
	return p.submitted.Load(), p.completed.Load(), p.failed.Load()
}

// Running reports the number of currently executing tasks.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Release stops the pool, waiting for running tasks to finish.
func (p *Pool) Release() {
	p.pool.Release()
}
