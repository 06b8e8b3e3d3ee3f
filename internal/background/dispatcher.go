// Package background runs fire-and-forget work dispatched by request
// handlers. The non-blocking contract is explicit in the type: Dispatch
// returns immediately, failures flow to a logging drain, and nothing is
// retried inline or surfaced to the caller.
package background

import (
	"context"
	"fmt"
	"log"
)

type failure struct {
	task string
	err  error
}

// Dispatcher decouples background tasks from the request path that
// triggered them.
type Dispatcher struct {
	failures chan failure
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{failures: make(chan failure, 64)}
	go d.drain()
	return d
}

// Dispatch runs fn on its own goroutine with a context detached from the
// triggering request, so a finished response cannot cancel the task. Errors
// and panics are logged and dropped.
func (d *Dispatcher) Dispatch(task string, fn func(ctx context.Context) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.failures <- failure{task: task, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		if err := fn(context.Background()); err != nil {
			d.failures <- failure{task: task, err: err}
		}
	}()
}

func (d *Dispatcher) drain() {
	for f := range d.failures {
		log.Printf("background task %q failed: %v", f.task, f.err)
	}
}
