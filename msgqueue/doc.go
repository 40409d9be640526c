// Package msgqueue implements a dual-headed FIFO message queue: a bounded
// or unbounded multi-producer/multi-consumer queue with separate producer
// and consumer locks, amortising cross-goroutine contention by flipping two
// singly-linked lists under a single critical section instead of contending
// a single lock on every Put and Get.
//
// Payloads are linked intrusively: a caller-owned value implements Linkable
// to expose the link slot the queue threads through, avoiding a second
// allocation per enqueued item.
//
//	q := msgqueue.New(0) // 0 == unbounded
//	q.Put(entry)
//	msg := q.Get() // blocks until available, or nonblock+empty returns nil
//
// Calling SetNonblock switches both Put and Get to return immediately
// instead of waiting, which is how a caller drains the queue during
// shutdown without a goroutine getting stuck waiting for work that will
// never arrive.
package msgqueue
