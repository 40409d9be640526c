package msgqueue

import "sync"

// Linkable is implemented by payloads that can be threaded through a Queue's
// intrusive singly-linked lists. It is the idiomatic substitute for the
// byte-offset "link_off" mechanism a language with raw pointer arithmetic
// would use: instead of telling the queue where a link field lives inside
// an opaque payload, the payload exposes it directly.
type Linkable interface {
	// Next returns the next linked entry, or nil if this is the last one.
	Next() Linkable
	// SetNext sets the next linked entry.
	SetNext(next Linkable)
}

// Queue is a bounded (or unbounded, when maxLen is 0) FIFO. Producers and
// consumers contend on separate mutexes; the only place they meet is the
// brief swap that reparents the producer-side list onto the consumer side.
//
// The zero value is not usable; construct with New.
type Queue struct {
	maxLen int // soft bound on outstanding messages; 0 means unbounded

	getMu   sync.Mutex
	getHead Linkable // head of the consumer-side list

	putMu   sync.Mutex
	getCond *sync.Cond // associated with putMu; swap waits on it with getMu held
	putCond *sync.Cond // associated with putMu
	putHead Linkable
	putTail Linkable
	count   int // producer-side count, guarded by putMu

	nonblock bool // guarded by putMu
}

// New creates a Queue with the given soft bound on outstanding messages.
// A maxLen of 0 means unbounded: Put never waits on capacity.
func New(maxLen int) *Queue {
	q := &Queue{maxLen: maxLen}
	q.getCond = sync.NewCond(&q.putMu)
	q.putCond = sync.NewCond(&q.putMu)
	return q
}

// Put enqueues msg, blocking while the queue is at capacity and not in
// nonblock mode. msg's link is overwritten; the caller must not reuse it
// concurrently once Put is called.
func (q *Queue) Put(msg Linkable) {
	msg.SetNext(nil)

	q.putMu.Lock()
	for q.maxLen > 0 && q.count > q.maxLen-1 && !q.nonblock {
		q.putCond.Wait()
	}

	if q.putTail == nil {
		q.putHead = msg
	} else {
		q.putTail.SetNext(msg)
	}
	q.putTail = msg
	q.count++
	q.putMu.Unlock()

	q.getCond.Signal()
}

// Get removes and returns the head of the queue, blocking while it is empty
// and not in nonblock mode. It returns nil only when the queue is in
// nonblock mode and has nothing left to deliver.
func (q *Queue) Get() Linkable {
	q.getMu.Lock()
	defer q.getMu.Unlock()

	if q.getHead == nil {
		if q.swap() == 0 {
			return nil
		}
	}

	msg := q.getHead
	q.getHead = msg.Next()
	msg.SetNext(nil)
	return msg
}

// swap reparents the producer-side list onto the (empty) consumer side.
// Must be called with getMu held; takes putMu internally.
func (q *Queue) swap() int {
	q.putMu.Lock()
	for q.count == 0 && !q.nonblock {
		q.getCond.Wait()
	}

	n := q.count
	if q.maxLen > 0 && n >= q.maxLen {
		q.putCond.Broadcast()
	}

	q.getHead = q.putHead
	q.putHead = nil
	q.putTail = nil
	q.count = 0
	q.putMu.Unlock()

	return n
}

// SetNonblock switches the queue to nonblock mode: Put and Get return
// immediately instead of waiting on capacity or availability. Waiters
// blocked in either operation are woken to re-evaluate their predicate.
//
// Only putMu is taken: nonblock is guarded by putMu, and a Get parked in
// swap holds getMu for as long as it waits.
func (q *Queue) SetNonblock() {
	q.putMu.Lock()
	q.nonblock = true
	q.getCond.Broadcast()
	q.putCond.Broadcast()
	q.putMu.Unlock()
}

// SetBlock restores blocking semantics after SetNonblock.
func (q *Queue) SetBlock() {
	q.getMu.Lock()
	q.putMu.Lock()
	q.nonblock = false
	q.putMu.Unlock()
	q.getMu.Unlock()
}

// Close drops the queue's own references to any remaining entries so they
// become collectible. The caller must have already quiesced the queue: no
// concurrent Put or Get may be in flight.
func (q *Queue) Close() {
	q.getMu.Lock()
	q.putMu.Lock()
	q.getHead = nil
	q.putHead = nil
	q.putTail = nil
	q.count = 0
	q.putMu.Unlock()
	q.getMu.Unlock()
}

// Len returns the approximate number of messages currently queued, summing
// both internal lists. It is a snapshot and may be stale the instant it
// returns under concurrent use; intended for backlog-driven policies such
// as autoscale.Watcher, not for synchronization. Len never waits on a Get:
// while a Get holds getMu, the consumer-side list is not counted.
func (q *Queue) Len() int {
	n := 0
	if q.getMu.TryLock() {
		for e := q.getHead; e != nil; e = e.Next() {
			n++
		}
		q.getMu.Unlock()
	}

	q.putMu.Lock()
	n += q.count
	q.putMu.Unlock()

	return n
}
