package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tahsin716/qpool"
)

func newQPool(t *testing.T) (*qpool.Pool, error) {
	t.Helper()
	return qpool.New(2)
}

func TestPool_SubmitAndReadResult(t *testing.T) {
	p, err := New[int](WithWorkers(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(context.Background(), nil)

	if err := p.Submit(func(ctx context.Context) (int, error) {
		return 42, nil
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case r := <-p.Results():
		if r.Error != nil || r.Value != 42 {
			t.Fatalf("Result = %+v, want {42 nil}", r)
		}
	case <-time.After(time.Second):
		t.Fatal("job never produced a result")
	}
}

func TestPool_JobError(t *testing.T) {
	p, err := New[string](WithWorkers(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(context.Background(), nil)

	boom := errors.New("boom")
	p.Submit(func(ctx context.Context) (string, error) {
		return "", boom
	})

	select {
	case r := <-p.Results():
		if !errors.Is(r.Error, boom) {
			t.Fatalf("Result.Error = %v, want %v", r.Error, boom)
		}
	case <-time.After(time.Second):
		t.Fatal("job never produced a result")
	}

	if stats := p.Stats(); stats.Failed != 1 {
		t.Fatalf("stats.Failed = %d, want 1", stats.Failed)
	}
}

func TestPool_JobPanicBecomesResultError(t *testing.T) {
	p, err := New[int](WithWorkers(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(context.Background(), nil)

	p.Submit(func(ctx context.Context) (int, error) {
		panic("kaboom")
	})

	select {
	case r := <-p.Results():
		var pe *PanicError
		if !errors.As(r.Error, &pe) {
			t.Fatalf("Result.Error = %v, want *PanicError", r.Error)
		}
	case <-time.After(time.Second):
		t.Fatal("job never produced a result")
	}
}

func TestPool_CloseDrainsPending(t *testing.T) {
	p, err := New[int](WithWorkers(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	block := make(chan struct{})
	started := make(chan struct{})
	p.Submit(func(ctx context.Context) (int, error) {
		close(started)
		<-block
		return 0, nil
	})
	<-started

	p.Submit(func(ctx context.Context) (int, error) { return 1, nil })
	p.Submit(func(ctx context.Context) (int, error) { return 2, nil })

	var drained int
	done := make(chan struct{})
	go func() {
		p.Close(context.Background(), func(Job[int]) { drained++ })
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	close(block)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not complete")
	}

	if drained != 2 {
		t.Fatalf("drained = %d, want 2", drained)
	}

	if err := p.Submit(func(ctx context.Context) (int, error) { return 0, nil }); err != ErrPoolClosed {
		t.Fatalf("Submit after Close: got %v, want ErrPoolClosed", err)
	}
}

func TestPool_MaxInFlightBoundsConcurrency(t *testing.T) {
	p, err := New[int](WithWorkers(8), WithMaxInFlight(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(context.Background(), nil)

	var current, peak int64
	release := make(chan struct{})

	// Submit blocks once two jobs hold the in-flight slots, so submit from
	// a separate goroutine until release lets the held jobs finish.
	const n = 6
	go func() {
		for i := 0; i < n; i++ {
			p.Submit(func(ctx context.Context) (int, error) {
				c := atomic.AddInt64(&current, 1)
				for {
					p := atomic.LoadInt64(&peak)
					if c <= p || atomic.CompareAndSwapInt64(&peak, p, c) {
						break
					}
				}
				<-release
				atomic.AddInt64(&current, -1)
				return 0, nil
			})
		}
	}()

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt64(&peak); got > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", got)
	}
	close(release)

	for i := 0; i < n; i++ {
		select {
		case <-p.Results():
		case <-time.After(2 * time.Second):
			t.Fatal("job never produced a result")
		}
	}
}

func TestWrap_SharesUnderlyingPool(t *testing.T) {
	qp, err := newQPool(t)
	if err != nil {
		t.Fatalf("newQPool: %v", err)
	}
	defer qp.Destroy(context.Background(), nil)

	p := Wrap[int](qp)
	defer p.Close(context.Background(), nil)

	p.Submit(func(ctx context.Context) (int, error) { return 7, nil })

	select {
	case r := <-p.Results():
		if r.Value != 7 {
			t.Fatalf("Result.Value = %d, want 7", r.Value)
		}
	case <-time.After(time.Second):
		t.Fatal("job never produced a result")
	}
}
