package qpool

import "sync/atomic"

// Stats holds a snapshot of pool activity. Submitted, Completed and
// Panicked are read via atomics; Workers is read under the pool mutex and
// Queued from msgqueue.Queue.Len.
type Stats struct {
	Workers   int64 // current number of workers owned by the pool
	Submitted int64 // total tasks scheduled
	Completed int64 // tasks whose Routine returned normally
	Panicked  int64 // tasks whose Routine panicked
	Queued    int   // approximate backlog, see msgqueue.Queue.Len
}

// statsStore is the atomic counter block embedded in Pool.
type statsStore struct {
	submitted int64
	completed int64
	panicked  int64
}

func (s *statsStore) addSubmitted() { atomic.AddInt64(&s.submitted, 1) }
func (s *statsStore) addCompleted() { atomic.AddInt64(&s.completed, 1) }
func (s *statsStore) addPanicked()  { atomic.AddInt64(&s.panicked, 1) }

// get returns a snapshot of the counters. Workers and Queued are left zero;
// the caller overlays those from state get does not own.
func (s *statsStore) get() Stats {
	return Stats{
		Submitted: atomic.LoadInt64(&s.submitted),
		Completed: atomic.LoadInt64(&s.completed),
		Panicked:  atomic.LoadInt64(&s.panicked),
	}
}
