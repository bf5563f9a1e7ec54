package msgbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// workQueue is a fixed set of goroutines draining a buffered channel.
// Offer never blocks: items are dropped when the buffer is full.
type workQueue[T any] struct {
	ch        chan T
	workers   int
	handle    func(T)
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex // guards the closed transition against in-flight offers
	closed    atomic.Bool
	dropped   atomic.Uint64
	processed atomic.Uint64
}

func newWorkQueue[T any](ctx context.Context, workers, bufferSize int, handle func(T)) *workQueue[T] {
	if workers < 1 {
		workers = 4
	}
	if bufferSize < 1 {
		bufferSize = 1000
	}

	qctx, cancel := context.WithCancel(ctx)
	q := &workQueue[T]{
		ch:      make(chan T, bufferSize),
		workers: workers,
		handle:  handle,
		ctx:     qctx,
		cancel:  cancel,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// offer enqueues item; it reports false when the queue is closed or full.
func (q *workQueue[T]) offer(item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed.Load() {
		return false
	}
	select {
	case q.ch <- item:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

func (q *workQueue[T]) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			// Drain what was accepted before shutdown.
			for {
				select {
				case item := <-q.ch:
					q.run(item)
				default:
					return
				}
			}
		case item := <-q.ch:
			q.run(item)
		}
	}
}

func (q *workQueue[T]) run(item T) {
	defer func() {
		// A panicking item must not take a worker down.
		_ = recover()
	}()
	q.handle(item)
	q.processed.Add(1)
}

// close stops the workers after the queue is drained, waiting at most timeout.
func (q *workQueue[T]) close(timeout time.Duration) bool {
	q.mu.Lock()
	if q.closed.Swap(true) {
		q.mu.Unlock()
		return true
	}
	q.mu.Unlock()
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (q *workQueue[T]) stats() PoolStats {
	return PoolStats{
		Dropped:      q.dropped.Load(),
		Processed:    q.processed.Load(),
		ActiveEvents: len(q.ch),
		Workers:      q.workers,
		BufferSize:   cap(q.ch),
	}
}

// ObserverPool manages asynchronous event dispatching to observers.
// Prevents slow observers from blocking the send path; drops events if the buffer is full.
type ObserverPool struct {
	q *workQueue[*Event]
}

// NewObserverPool creates a pool for async observer notification.
// workers: number of dispatch goroutines (default 4)
// bufferSize: capacity of event channel (default 1000)
func NewObserverPool(ctx context.Context, workers, bufferSize int) *ObserverPool {
	return &ObserverPool{q: newWorkQueue(ctx, workers, bufferSize, dispatchEvent)}
}

// Notify queues e for the given observers. Non-blocking: a full buffer drops
// the event. It reports false only when the pool is closed, leaving delivery
// to the caller.
func (op *ObserverPool) Notify(e Event, observers []Observer) bool {
	if len(observers) == 0 {
		return true
	}
	e.observers = make([]Observer, len(observers))
	copy(e.observers, observers)
	if op.q.offer(&e) {
		return true
	}
	return !op.q.closed.Load()
}

// dispatchEvent calls all observers for a single event, isolating panics per observer.
func dispatchEvent(e *Event) {
	for _, obs := range e.observers {
		if obs == nil {
			continue
		}
		func() {
			defer func() { _ = recover() }()
			obs.OnEvent(*e)
		}()
	}
}

// Close gracefully shuts down the observer pool.
func (op *ObserverPool) Close(timeout time.Duration) error {
	if !op.q.close(timeout) {
		return ErrObserverPoolShutdownTimeout
	}
	return nil
}

// Stats returns current pool statistics.
func (op *ObserverPool) Stats() PoolStats {
	return op.q.stats()
}
