package realtime

import (
	"context"
	"sync"
	"time"
)

// Task runs a function on a fixed interval until stopped
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Every starts fn immediately and then once per interval until ctx is done
// or Stop is called. Runs never overlap.
func Every(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fn(ctx)
		for {
			select {
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	return t
}

// Stop cancels the task and waits for a running fn to return. After Stop
// returns fn is never called again. Safe to call more than once.
func (t *Task) Stop() {
	t.once.Do(t.cancel)
	<-t.done
}

// Done is closed once the task has exited
func (t *Task) Done() <-chan struct{} {
	return t.done
}
