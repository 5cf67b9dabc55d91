package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrBusy is returned when every task slot is taken.
var ErrBusy = errors.New("task limit reached")

// Runner launches background tasks on demand, one goroutine per task,
// bounded by the limiter. There is no queue: a trigger that finds no free
// slot fails immediately with ErrBusy.
type Runner struct {
	limiter *Limiter
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewRunner(limit int) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		limiter: NewLimiter(limit),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Run starts a task in the background if a slot is free. The returned
// channel closes when the task finishes.
func (r *Runner) Run(task TaskInterface) (<-chan struct{}, error) {
	if !r.limiter.TryAcquire() {
		return nil, ErrBusy
	}

	done := make(chan struct{})
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(done)
		defer r.limiter.Release()

		task.Start()
		slog.Debug("Task started", "id", task.GetID(), "type", task.GetType())

		if err := r.ctx.Err(); err != nil {
			return
		}
		if err := task.Execute(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Task failed", "id", task.GetID(), "type", task.GetType(), "error", err)
		}
	}()

	return done, nil
}

// Busy reports whether any task is currently running.
func (r *Runner) Busy() bool {
	return r.limiter.Active() > 0
}

func (r *Runner) Active() int {
	return r.limiter.Active()
}

func (r *Runner) Limit() int {
	return r.limiter.Limit()
}

// Stop cancels running tasks and waits for them to return.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
}
