package codec

import (
	"sync"
	"sync/atomic"
)

// controlQueue is a FIFO of controlMessage with a mutex+condvar wake model.
// push never blocks; pop waits until a message is available or shutdown is
// requested. running is the one additional wake predicate alongside
// non-empty: the predicate flip and the enqueue both happen under mu, which
// popBlocking re-checks under the same lock, so no wakeup between "predicate
// becomes true" and "waiter starts waiting" is lost. The flushing flag is
// not set or consulted anywhere; popBlocking does not wake on it.
type controlQueue struct {
	mu   sync.Mutex
	cond *sync.Cond
	msgs []*controlMessage

	running  atomic.Bool
	flushing atomic.Bool

	// processing counts messages popped but not yet finished, so waitIdle
	// can wait for "queue empty" and "no task in flight" together.
	processing  int
	idleWaiters []chan struct{}
}

func newControlQueue() *controlQueue {
	q := &controlQueue{}
	q.cond = sync.NewCond(&q.mu)
	q.running.Store(true)
	return q
}

// push enqueues msg and wakes one waiter. Push never fails; the hard
// backpressure ceiling is enforced by the facade, not the queue.
func (q *controlQueue) push(msg *controlMessage) {
	q.mu.Lock()
	q.msgs = append(q.msgs, msg)
	q.mu.Unlock()
	q.cond.Signal()
}

// popBlocking waits until a message is available or the queue has been
// stopped, and returns (nil, false) in the latter case. On success it
// increments the processing counter; the caller must call finishProcessing
// when done handling the message.
func (q *controlQueue) popBlocking() (*controlMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.msgs) == 0 && q.running.Load() {
		q.cond.Wait()
	}
	if len(q.msgs) == 0 {
		return nil, false
	}
	msg := q.msgs[0]
	q.msgs = q.msgs[1:]
	q.processing++
	return msg, true
}

// finishProcessing marks the most recently popped message as done and, if
// the queue is now empty and idle, wakes any flush waiters.
func (q *controlQueue) finishProcessing() {
	q.mu.Lock()
	q.processing--
	idle := len(q.msgs) == 0 && q.processing == 0
	var waiters []chan struct{}
	if idle {
		waiters = q.idleWaiters
		q.idleWaiters = nil
	}
	q.mu.Unlock()
	for _, w := range waiters {
		close(w)
	}
}

// waitIdle blocks until the queue is empty and no message is being
// processed. The worker's flush handling does not call it (it runs on the
// worker goroutine itself, where processing is never zero).
func (q *controlQueue) waitIdle() {
	q.mu.Lock()
	if len(q.msgs) == 0 && q.processing == 0 {
		q.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	q.idleWaiters = append(q.idleWaiters, ch)
	q.mu.Unlock()
	<-ch
}

// clearAndDrop atomically empties the queue, dropping owned payloads (no
// explicit free needed in Go; dropping the slice releases them to the GC).
// It returns the dropped messages so callers can reject any flush tokens
// they carried.
func (q *controlQueue) clearAndDrop() []*controlMessage {
	q.mu.Lock()
	dropped := q.msgs
	q.msgs = nil
	q.mu.Unlock()
	return dropped
}

// size returns the number of messages currently queued (not counting the one
// in flight), taking the lock for an exact count.
func (q *controlQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

// stop flips running to false and wakes every waiter so popBlocking returns
// (nil, false) for all of them.
func (q *controlQueue) stop() {
	q.mu.Lock()
	q.running.Store(false)
	q.mu.Unlock()
	q.cond.Broadcast()
}
