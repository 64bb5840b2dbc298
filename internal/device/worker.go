package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/g2ctl/internal/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrClosed    = errors.New("device: worker closed")
	ErrQueueFull = errors.New("device: worker queue full")
)

// TaskFunc runs on the worker goroutine. ctx carries the task deadline.
type TaskFunc func(ctx context.Context) error

type task struct {
	id     string
	name   string
	ctx    context.Context
	fn     TaskFunc
	result chan error
}

// Worker runs tasks one at a time in submission order.
type Worker struct {
	tasks   chan *task
	done    chan struct{}
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewWorker starts the worker goroutine.
func NewWorker(depth int, timeout time.Duration) *Worker {
	w := &Worker{
		tasks:   make(chan *task, depth),
		done:    make(chan struct{}),
		timeout: timeout,
		log:     log.With().Str("component", "worker").Logger(),
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	defer close(w.done)
	for t := range w.tasks {
		w.runTask(t)
	}
}

func (w *Worker) runTask(t *task) {
	ctx := t.ctx
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		w.log.Warn().Str("task", t.name).Str("id", t.id).Err(err).Msg("task expired in queue")
		w.finish(t, err)
		return
	}
	start := time.Now()
	err := w.call(ctx, t)
	elapsed := time.Since(start)
	observability.RecordTask(t.name, elapsed, err == nil)
	ev := w.log.Debug()
	if err != nil {
		ev = w.log.Warn().Err(err)
	}
	ev.Str("task", t.name).Str("id", t.id).Dur("elapsed", elapsed).Msg("task done")
	w.finish(t, err)
}

func (w *Worker) call(ctx context.Context, t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("device: task %s panicked: %v", t.name, r)
		}
	}()
	return t.fn(ctx)
}

func (w *Worker) finish(t *task, err error) {
	if t.result != nil {
		t.result <- err
	}
}

// Invoke runs fn on the worker and waits for its result. The wait ends
// early when ctx or the task timeout expires; a task that has not started
// by then is skipped.
func (w *Worker) Invoke(ctx context.Context, name string, fn TaskFunc) error {
	return w.invoke(ctx, name, w.timeout, fn)
}

func (w *Worker) invoke(ctx context.Context, name string, timeout time.Duration, fn TaskFunc) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	t := &task{id: uuid.NewString(), name: name, ctx: ctx, fn: fn, result: make(chan error, 1)}
	if err := w.enqueue(ctx, t); err != nil {
		return err
	}
	select {
	case err := <-t.result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("device: task %s: %w", name, ctx.Err())
	}
}

// Execute queues fn without waiting. Its error is only logged.
func (w *Worker) Execute(name string, fn TaskFunc) error {
	t := &task{id: uuid.NewString(), name: name, fn: fn}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.tasks <- t:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, name)
	}
}

func (w *Worker) enqueue(ctx context.Context, t *task) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.tasks <- t:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("device: enqueue %s: %w", t.name, ctx.Err())
	}
}

// Close stops accepting tasks, runs the ones already queued and waits for
// the goroutine to exit.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.tasks)
	}
	w.mu.Unlock()
	<-w.done
}
