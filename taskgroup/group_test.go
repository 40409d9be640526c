package taskgroup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tahsin716/qpool"
)

func newTestPool(t *testing.T) *qpool.Pool {
	t.Helper()
	p, err := qpool.New(4)
	if err != nil {
		t.Fatalf("qpool.New: %v", err)
	}
	t.Cleanup(func() { p.Destroy(context.Background(), nil) })
	return p
}

func TestGroup_CollectAllDefault(t *testing.T) {
	p := newTestPool(t)
	g := New(p)

	if g.config.errorMode != CollectAll {
		t.Errorf("default error mode = %v, want CollectAll", g.config.errorMode)
	}

	boom := errors.New("boom")
	g.Go(func(context.Context) error { return nil })
	g.Go(func(context.Context) error { return boom })
	g.Go(func(context.Context) error { return nil })

	err := g.Wait()
	var agg *AggregateError
	if !errors.As(err, &agg) {
		t.Fatalf("Wait() = %v, want *AggregateError", err)
	}
	if len(agg.Errors) != 1 || !errors.Is(agg.Errors[0], boom) {
		t.Fatalf("aggregated errors = %v, want [%v]", agg.Errors, boom)
	}
}

func TestGroup_FailFastCancelsContext(t *testing.T) {
	p := newTestPool(t)
	g := New(p, WithErrorMode(FailFast))

	boom := errors.New("boom")
	started := make(chan struct{})
	g.Go(func(ctx context.Context) error {
		close(started)
		return boom
	})

	<-started

	var sawCancel int64
	g.Go(func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			atomic.StoreInt64(&sawCancel, 1)
		case <-time.After(time.Second):
		}
		return nil
	})

	if err := g.Wait(); !errors.Is(err, boom) {
		t.Fatalf("Wait() = %v, want %v", err, boom)
	}
	if atomic.LoadInt64(&sawCancel) != 1 {
		t.Fatal("second task never observed context cancellation")
	}
}

func TestGroup_IgnoreErrors(t *testing.T) {
	p := newTestPool(t)
	g := New(p, WithErrorMode(IgnoreErrors))

	g.Go(func(context.Context) error { return errors.New("boom") })
	g.Go(func(context.Context) error { return errors.New("boom2") })

	if err := g.Wait(); err != nil {
		t.Fatalf("Wait() = %v, want nil", err)
	}
}

func TestGroup_PanicIsRecoveredAndReported(t *testing.T) {
	p := newTestPool(t)
	g := New(p)

	g.Go(func(context.Context) error {
		panic("kaboom")
	})

	err := g.Wait()
	var agg *AggregateError
	if !errors.As(err, &agg) || len(agg.Errors) != 1 {
		t.Fatalf("Wait() = %v, want one aggregated PanicError", err)
	}
	var pe *PanicError
	if !errors.As(agg.Errors[0], &pe) {
		t.Fatalf("aggregated error = %v, want *PanicError", agg.Errors[0])
	}
}

func TestGroup_HighFanOutBeyondCompletionCapacity(t *testing.T) {
	p, err := qpool.New(8)
	if err != nil {
		t.Fatalf("qpool.New: %v", err)
	}
	defer p.Destroy(context.Background(), nil)

	// Capacity smaller than the number of tasks exercises the continuous
	// drain loop: producers must not deadlock waiting for Wait to start
	// consuming.
	g := New(p, WithCompletionCapacity(4))

	const n = 500
	var ran int64
	for i := 0; i < n; i++ {
		g.Go(func(context.Context) error {
			atomic.AddInt64(&ran, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("Wait() = %v, want nil", err)
	}
	if got := atomic.LoadInt64(&ran); got != n {
		t.Fatalf("ran = %d, want %d", got, n)
	}
}
