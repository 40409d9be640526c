package qpool

import (
	"context"
	"runtime/debug"
)

// worker is one long-running goroutine consuming tasks from the pool's
// queue. Its identity (a pointer) is what Pool.lastExiter chains together
// during shutdown.
type worker struct {
	id   int
	pool *Pool

	// done is closed exactly once, after this worker has waited on its
	// predecessor in the join chain. It is the channel-close substitute for
	// pthread_join: the next worker to leave (or the terminator) receives
	// from it to know this worker has fully exited.
	done chan struct{}
}

func newWorker(id int, p *Pool) *worker {
	return &worker{id: id, pool: p, done: make(chan struct{})}
}

// run is the worker's main loop: pull tasks until the queue reports
// end-of-stream (nonblock and empty), then perform the exit protocol.
func (w *worker) run() {
	if w.pool.config.OnWorkerStart != nil {
		w.pool.config.OnWorkerStart(w.id)
	}

	for {
		w.pool.mu.Lock()
		destroying := w.pool.destroying
		w.pool.mu.Unlock()
		if destroying {
			break
		}

		m := w.pool.queue.Get()
		if m == nil {
			break
		}

		entry := m.(*taskEntry)
		task := entry.task
		entry.next = nil

		selfDestructed := w.execute(task)
		if selfDestructed {
			// The task destroyed this pool from the inside; Destroy already
			// performed this worker's exit bookkeeping and join-chain wait
			// on its behalf. Running the ordinary exit protocol again would
			// double-count nThreads and double-close w.done.
			if w.pool.config.OnWorkerStop != nil {
				w.pool.config.OnWorkerStop(w.id)
			}
			return
		}
	}

	if w.pool.config.OnWorkerStop != nil {
		w.pool.config.OnWorkerStop(w.id)
	}
	w.exit()
}

// execute runs a single task with panic recovery and reports whether the
// task caused this worker's pool to self-destruct.
func (w *worker) execute(task Task) (selfDestructed bool) {
	ctx := w.pool.wrapContext(context.Background(), task.Payload, w)

	defer func() {
		if r := recover(); r != nil {
			w.pool.stats.addPanicked()
			pe := &PanicError{Value: r, Stack: string(debug.Stack())}
			if h := w.pool.config.PanicHandler; h != nil {
				h(pe)
			}
			return
		}
		w.pool.stats.addCompleted()
	}()

	task.Routine(ctx)

	w.pool.mu.Lock()
	selfDestructed = w.pool.destroyedBy == w
	w.pool.mu.Unlock()
	return selfDestructed
}

// exit runs the join-chain exit protocol for a worker that reached
// end-of-stream on its own, i.e. was not the one that called Destroy.
func (w *worker) exit() {
	p := w.pool

	p.mu.Lock()
	prev := p.lastExiter
	p.lastExiter = w
	p.nThreads--
	if p.nThreads == 0 && p.terminate != nil {
		p.terminate.Signal()
	}
	p.mu.Unlock()

	if prev != nil {
		<-prev.done
	}
	close(w.done)
}
