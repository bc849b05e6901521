package loop

import (
	"context"
	"errors"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("event loop stopped")

// Loop runs submitted closures one at a time on a single goroutine.
// Everything that touches the archive goes through it.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

func New() *Loop {
	return &Loop{
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

// Run executes tasks until ctx is done. Tasks still queued at that point are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn without waiting for it. It is a no-op after the loop exits.
func (l *Loop) Post(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	task := func() { result <- fn() }

	select {
	case l.tasks <- task:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-l.done:
		// the task may have run just before exit
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
