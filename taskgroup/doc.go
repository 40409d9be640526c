// Package taskgroup batches related qpool.Task submissions and aggregates
// their outcomes, the way golang.org/x/sync/errgroup batches goroutines.
// Unlike errgroup, a Group does not own goroutines directly: every unit of
// work runs as a Task on a caller-supplied qpool.Pool,
// so a Group's fan-out shares the same worker budget and shutdown protocol
// as everything else scheduled on that pool.
//
// Each Task's outcome is recorded on a bounded lock-free completion queue
// rather than behind a mutex, so many workers finishing concurrently never
// contend on a single lock; a background goroutine drains it while Tasks
// run, and Wait collects what it gathered once every submitted Task has run.
package taskgroup
