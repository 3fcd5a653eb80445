package tasks

import (
	"context"
	"sync"
)

// Dispatcher runs delivery callbacks on the context that started a task.
// Post returns false when fn will never run.
type Dispatcher interface {
	Post(fn func()) bool
}

type inlineDispatcher struct{}

func (inlineDispatcher) Post(fn func()) bool {
	fn()
	return true
}

// Inline runs callbacks immediately on the posting goroutine.
var Inline Dispatcher = inlineDispatcher{}

// Loop is a single goroutine event loop. Callbacks posted to it run one at a
// time, in posting order, on the goroutine that calls Run.
type Loop struct {
	queue    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

var _ Dispatcher = (*Loop)(nil)

func NewLoop(size int) *Loop {
	return &Loop{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run processes callbacks until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.queue:
			fn()
		}
	}
}

func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}
