package pool

import "runtime"

// Option configures a Pool.
type Option func(*Config)

// Config holds construction options for a Pool.
type Config struct {
	// Workers is the number of qpool workers a New-constructed Pool starts
	// with. Ignored by Wrap, which reuses an already-running qpool.Pool.
	Workers int
	// ResultBuffer is the size of the buffered Results channel.
	ResultBuffer int
	// MaxInFlight bounds the number of jobs this Pool will run
	// concurrently, independent of the underlying qpool's worker count.
	// Zero (the default) means unbounded: every job is scheduled as soon
	// as Submit is called.
	MaxInFlight int
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:      runtime.GOMAXPROCS(0),
		ResultBuffer: 100,
	}
}

// WithWorkers sets the number of workers a New-constructed Pool starts with.
func WithWorkers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Workers = n
		}
	}
}

// WithResultBuffer sets the buffer size for the results channel.
func WithResultBuffer(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.ResultBuffer = size
		}
	}
}

// WithMaxInFlight bounds concurrently-running jobs to n, using a weighted
// semaphore independent of the underlying qpool's own worker count.
func WithMaxInFlight(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxInFlight = n
		}
	}
}
