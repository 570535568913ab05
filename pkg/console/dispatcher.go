package console

import (
	"context"
	"fmt"
	"sync"
)

// Dispatcher runs tasks one at a time, in submission order, on a single
// goroutine. It plays the role of a UI thread: everything that touches the
// buffer or caret is funneled through it.
//
// The queue is unbounded so a task may enqueue follow-up work without
// deadlocking. InvokeAndWait must not be called from a task.
type Dispatcher struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []func()
	running  bool
	stopping bool
	done     chan struct{}
}

// NewDispatcher creates a dispatcher. Call Start before submitting work.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Start launches the dispatch goroutine.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return fmt.Errorf("dispatcher already running")
	}
	if d.stopping {
		return ErrDispatcherStopped
	}
	d.running = true
	go d.loop()
	return nil
}

// Stop runs the tasks already queued, then stops the goroutine.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return nil
	}
	d.stopping = true
	running := d.running
	d.cond.Broadcast()
	d.mu.Unlock()

	if running {
		<-d.done
	}
	return nil
}

// Invoke queues fn and returns immediately.
func (d *Dispatcher) Invoke(fn func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopping {
		return ErrDispatcherStopped
	}
	d.queue = append(d.queue, fn)
	d.cond.Signal()
	return nil
}

// InvokeAndWait queues fn and waits until it has run. If ctx ends first the
// task still runs later, but the caller stops waiting.
func (d *Dispatcher) InvokeAndWait(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := d.Invoke(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.stopping {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		fn()
	}
}
