// Package pool provides a fixed/growable worker pool over one shared FIFO
// task queue. Tasks can be submitted either as futures or with an inline
// continuation that runs on the worker goroutine right after the task.
package pool

import (
	"sync"
	"sync/atomic"

	"gitlab.com/tozd/go/errors"
)

// ErrClosed is returned by submissions that arrive after Shutdown.
var ErrClosed = errors.New("worker pool is shut down")

// Pool is a bounded set of persistent worker goroutines pulling from one
// FIFO queue. The zero value is not usable; call New.
type Pool struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []func()
	stop  bool

	wg      sync.WaitGroup
	workers int
	active  atomic.Int64
}

// New creates a pool with n workers. n <= 0 is treated as 1.
func New(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	p.spawn(n)
	return p
}

// Scaling grows the pool to at least n workers. The pool never shrinks.
func (p *Pool) Scaling(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop || n <= p.workers {
		return
	}
	p.spawn(n - p.workers)
}

// spawn starts extra workers. Callers hold p.mu, except New.
func (p *Pool) spawn(n int) {
	p.workers += n
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
}

// Workers returns the current worker count.
func (p *Pool) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}

// Idle returns the number of workers not currently running a task. It is a
// snapshot: dependent components use it only to opportunistically batch
// work onto spare capacity.
func (p *Pool) Idle() int {
	p.mu.Lock()
	workers := p.workers
	stopped := p.stop
	p.mu.Unlock()

	if stopped {
		return 0
	}
	idle := workers - int(p.active.Load())
	if idle < 0 {
		idle = 0
	}
	return idle
}

// enqueue appends a wrapped task, failing once the pool is shut down.
func (p *Pool) enqueue(run func()) error {
	p.mu.Lock()
	if p.stop {
		p.mu.Unlock()
		return errors.Errorf("submitting task: %w", ErrClosed)
	}
	p.queue = append(p.queue, run)
	p.mu.Unlock()

	p.cond.Signal()
	return nil
}

// Shutdown stops the pool, wakes all workers and waits for them to drain
// the queue and exit. It is idempotent. Tasks already queued still run.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.stop {
		p.mu.Unlock()
		return
	}
	p.stop = true
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stop {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.stop {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.active.Add(1)
		task()
		p.active.Add(-1)
	}
}

// Run enqueues a plain task with no result channel. A panic inside fn is
// recovered and discarded, matching the pool's swallow policy for
// fire-and-forget work.
func (p *Pool) Run(fn func()) error {
	return p.enqueue(func() {
		var err error
		defer catch(&err)
		fn()
	})
}

// Future holds the eventual result of a submitted task.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Wait blocks until the task finished and returns its result.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.value, f.err
}

// Submit enqueues fn and returns a future for its result. A panic inside
// fn is recovered into the future's error.
func Submit[T any](p *Pool, fn func() (T, error)) (*Future[T], error) {
	f := &Future[T]{done: make(chan struct{})}

	err := p.enqueue(func() {
		defer close(f.done)
		defer catch(&f.err)
		f.value, f.err = fn()
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// SubmitFunc enqueues fn and arranges for cb to run with its result on the
// same worker goroutine, immediately after fn completes. When fn returns an
// error (or panics) the callback is not invoked; the error is swallowed
// apart from the recovery. Callers that need the failure must surface it
// through fn itself.
func SubmitFunc[T any](p *Pool, fn func() (T, error), cb func(T)) error {
	return p.enqueue(func() {
		var err error
		defer catch(&err)

		v, err := fn()
		if err != nil {
			return
		}
		cb(v)
	})
}

// catch converts a panic into an error so one bad task cannot kill a
// persistent worker.
func catch(errp *error) {
	if r := recover(); r != nil {
		*errp = errors.Errorf("task panicked: %v", r)
	}
}
