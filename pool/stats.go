package pool

import "sync/atomic"

// Stats holds pool statistics. Workers reflects the underlying qpool.Pool's
// worker count; the rest are tracked by this layer since qpool itself has
// no notion of a job's return value.
type Stats struct {
	Workers   int64 // Current number of qpool workers backing this Pool.
	Running   int64 // Currently executing jobs.
	Submitted int64 // Total submitted jobs.
	Completed int64 // Successfully completed jobs.
	Failed    int64 // Failed jobs (returned an error or panicked).
}

// StatsStore provides thread-safe access to statistics.
type StatsStore struct {
	submitted int64
	running   int64
	completed int64
	failed    int64
}

func (s *StatsStore) addSubmitted(n int64) { atomic.AddInt64(&s.submitted, n) }
func (s *StatsStore) addRunning(n int64)   { atomic.AddInt64(&s.running, n) }
func (s *StatsStore) addCompleted(n int64) { atomic.AddInt64(&s.completed, n) }
func (s *StatsStore) addFailed(n int64)    { atomic.AddInt64(&s.failed, n) }

func (s *StatsStore) get() Stats {
	return Stats{
		Submitted: atomic.LoadInt64(&s.submitted),
		Running:   atomic.LoadInt64(&s.running),
		Completed: atomic.LoadInt64(&s.completed),
		Failed:    atomic.LoadInt64(&s.failed),
	}
}
