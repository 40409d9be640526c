package autoscale

import (
	"sync"
	"time"

	"github.com/tahsin716/qpool"
)

// Config holds Watcher tuning parameters.
type Config struct {
	// Interval is how often Watcher samples the pool's backlog.
	Interval time.Duration
	// BacklogPerWorker is the queued-task threshold, per current worker,
	// above which Watcher grows the pool. A backlog of exactly 3x the worker
	// count with BacklogPerWorker=3 does not trigger growth; one more does.
	BacklogPerWorker int64
	// GrowBy is how many workers Watcher adds per growth step.
	GrowBy int
	// MaxWorkers caps how large Watcher will ever grow the pool. Zero means
	// unlimited.
	MaxWorkers int64
}

// Option configures a Watcher.
type Option func(*Config)

// DefaultConfig returns sensible defaults: check every second, grow by one
// worker whenever backlog exceeds 4 tasks per current worker.
func DefaultConfig() Config {
	return Config{
		Interval:         time.Second,
		BacklogPerWorker: 4,
		GrowBy:           1,
	}
}

// WithInterval sets how often Watcher samples backlog.
func WithInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Interval = d
		}
	}
}

// WithBacklogPerWorker sets the per-worker backlog threshold that triggers
// growth.
func WithBacklogPerWorker(n int64) Option {
	return func(c *Config) {
		if n > 0 {
			c.BacklogPerWorker = n
		}
	}
}

// WithGrowBy sets how many workers are added per growth step.
func WithGrowBy(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.GrowBy = n
		}
	}
}

// WithMaxWorkers caps the pool's worker count. Zero means unlimited.
func WithMaxWorkers(n int64) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxWorkers = n
		}
	}
}

// Watcher periodically grows a qpool.Pool in response to backlog. It never
// shrinks the pool: qpool workers only exit via Destroy or self-destruction.
type Watcher struct {
	pool   *qpool.Pool
	config Config

	stopCh chan struct{}
	wg     sync.WaitGroup

	stopOnce sync.Once

	// events counts how many times Watcher has called Increase, for
	// tests and diagnostics.
	mu     sync.Mutex
	events int
}

// New starts a Watcher that grows pool on its own goroutine. Call Stop to
// end it; Stop does not destroy pool.
func New(pool *qpool.Pool, opts ...Option) *Watcher {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	w := &Watcher{
		pool:   pool,
		config: config,
		stopCh: make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) check() {
	stats := w.pool.Stats()
	if stats.Workers == 0 {
		return
	}
	if w.config.MaxWorkers > 0 && stats.Workers >= w.config.MaxWorkers {
		return
	}

	threshold := stats.Workers * w.config.BacklogPerWorker
	if int64(stats.Queued) <= threshold {
		return
	}

	grow := w.config.GrowBy
	if w.config.MaxWorkers > 0 {
		if room := w.config.MaxWorkers - stats.Workers; room < int64(grow) {
			grow = int(room)
		}
	}
	if grow <= 0 {
		return
	}

	if err := w.pool.Increase(grow); err != nil {
		// ErrPoolClosed is the only realistic failure once running; the
		// pool being destroyed underneath a live Watcher is not this
		// package's concern to report further than declining to grow it.
		return
	}

	w.mu.Lock()
	w.events++
	w.mu.Unlock()
}

// Events returns how many growth steps Watcher has performed.
func (w *Watcher) Events() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.events
}

// Stop ends the Watcher's background goroutine. It does not touch the
// pool's workers already added.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}
