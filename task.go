package qpool

import (
	"context"

	"github.com/tahsin716/qpool/msgqueue"
)

// Routine is the function a Task invokes exactly once. ctx carries the
// task's Payload (retrievable via Payload) and, while running inside a
// worker, this pool's own identity (used by InPool and by a worker that
// wants to destroy its own pool).
type Routine func(ctx context.Context)

// Task is an opaque (Routine, Payload) pair submitted to a Pool. The pool
// never inspects Payload; it is retrievable from within Routine via
// Payload(ctx).
type Task struct {
	Routine Routine
	Payload any
}

type payloadKey struct{}
type poolKey struct{}
type currentWorkerKey struct{}

// Payload retrieves the Task.Payload value carried on ctx, or nil if ctx
// was not produced by a Pool invoking a Task.
func Payload(ctx context.Context) any {
	return ctx.Value(payloadKey{})
}

// InPool reports whether ctx was produced by p invoking a Task, i.e.
// whether the calling code is running inside one of p's own workers. This
// is the context-carried substitute for a thread-local slot: Go goroutines
// have no addressable per-goroutine storage, so the pool's identity rides
// along on the context it hands each Routine instead.
func InPool(ctx context.Context, p *Pool) bool {
	v, ok := ctx.Value(poolKey{}).(*Pool)
	return ok && v == p
}

// wrapContext builds the context a worker passes to a Task's Routine,
// carrying the opaque payload, this pool's identity, and the identity of
// the worker goroutine currently running the task — the Go substitute for
// installing a thread-local slot pointing back at the owning pool.
func (p *Pool) wrapContext(parent context.Context, payload any, w *worker) context.Context {
	ctx := context.WithValue(parent, payloadKey{}, payload)
	ctx = context.WithValue(ctx, poolKey{}, p)
	return context.WithValue(ctx, currentWorkerKey{}, w)
}

// taskEntry is the internal queue node bundling a Task with the link field
// msgqueue.Queue threads through. It implements msgqueue.Linkable.
type taskEntry struct {
	task Task
	next msgqueue.Linkable
}

func (e *taskEntry) Next() msgqueue.Linkable     { return e.next }
func (e *taskEntry) SetNext(n msgqueue.Linkable) { e.next = n }
