package delivery

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"discobridge/pkg/models"
)

// DefaultQueueCapacity bounds the dispatch queue when none is configured.
const DefaultQueueCapacity = 256

// DefaultDispatchTimeout bounds how long an HTTP caller waits for the
// platform worker to report a result.
const DefaultDispatchTimeout = 10 * time.Second

// ErrQueueFull is returned when the dispatch queue is at capacity.
var ErrQueueFull = errors.New("dispatch queue full")

// ErrQueueClosed is returned when submitting after the dispatcher closed.
var ErrQueueClosed = errors.New("dispatch queue closed")

// ErrDispatchTimeout is returned when the caller's wait for the worker
// expires. It is distinct from delivery failures: the task itself keeps
// running and its result is still recorded.
var ErrDispatchTimeout = errors.New("dispatch timed out waiting for platform worker")

type taskResult struct {
	sent models.SentMessage
	err  error
}

type task struct {
	run func() (models.SentMessage, error)
	// done is buffered so the worker never blocks on an abandoned waiter.
	done chan taskResult
}

// Dispatcher is a threadsafe, fixed-size queue of platform write tasks
// consumed by a single worker goroutine. The platform session must not be
// driven from arbitrary request goroutines; every write funnels through
// here.
type Dispatcher struct {
	ch       chan *task
	capacity int
	timeout  time.Duration
	closed   int32
	dropped  uint64
	total    uint64
}

// NewDispatcher creates a bounded Dispatcher. capacity <= 0 and timeout <= 0
// fall back to defaults.
func NewDispatcher(capacity int, timeout time.Duration) *Dispatcher {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &Dispatcher{ch: make(chan *task, capacity), capacity: capacity, timeout: timeout}
}

// Submit enqueues fn for the platform worker and blocks until the worker
// reports a result, the dispatch timeout elapses, or ctx is done. On
// timeout or cancellation the task is not withdrawn; its eventual result is
// still processed by the worker (fire-and-forget once dispatched).
func (d *Dispatcher) Submit(ctx context.Context, fn func() (models.SentMessage, error)) (models.SentMessage, error) {
	atomic.AddUint64(&d.total, 1)
	if atomic.LoadInt32(&d.closed) == 1 {
		return models.SentMessage{}, ErrQueueClosed
	}

	t := &task{run: fn, done: make(chan taskResult, 1)}
	select {
	case d.ch <- t:
		metricQueueDepth.Set(float64(len(d.ch)))
	default:
		atomic.AddUint64(&d.dropped, 1)
		return models.SentMessage{}, ErrQueueFull
	}

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()
	select {
	case res := <-t.done:
		return res.sent, res.err
	case <-timer.C:
		metricDispatchTimeouts.Inc()
		return models.SentMessage{}, ErrDispatchTimeout
	case <-ctx.Done():
		return models.SentMessage{}, ctx.Err()
	}
}

// RunWorker executes queued tasks one at a time until stop closes. Run it
// from exactly one goroutine.
func (d *Dispatcher) RunWorker(stop <-chan struct{}) {
	for {
		select {
		case t, ok := <-d.ch:
			if !ok {
				return
			}
			metricQueueDepth.Set(float64(len(d.ch)))
			sent, err := t.run()
			t.done <- taskResult{sent: sent, err: err}
		case <-stop:
			return
		}
	}
}

// Close marks the dispatcher closed and drains pending tasks, failing their
// waiters with ErrQueueClosed.
func (d *Dispatcher) Close() {
	if !atomic.CompareAndSwapInt32(&d.closed, 0, 1) {
		return
	}
	close(d.ch)
	for t := range d.ch {
		t.done <- taskResult{err: ErrQueueClosed}
	}
}

// Len returns the number of queued tasks.
func (d *Dispatcher) Len() int { return len(d.ch) }

// Cap returns the configured capacity.
func (d *Dispatcher) Cap() int { return d.capacity }

// Dropped returns how many submissions were rejected on a full queue.
func (d *Dispatcher) Dropped() uint64 { return atomic.LoadUint64(&d.dropped) }
