package schedule

import "context"

// Loop is a serial task queue. Posted tasks run one at a time, in order, on
// the goroutine calling Run.
type Loop struct {
	tasks chan func()
}

// NewLoop returns a loop with the given queue capacity.
func NewLoop(capacity int) *Loop {
	if capacity <= 0 {
		capacity = 64
	}
	return &Loop{tasks: make(chan func(), capacity)}
}

// Post enqueues fn. It blocks while the queue is full.
func (l *Loop) Post(fn func()) {
	l.tasks <- fn
}

// Run executes tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}
