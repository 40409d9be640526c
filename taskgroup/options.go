package taskgroup

// ErrorMode controls how a Group reacts to a Task returning an error.
type ErrorMode int

const (
	// CollectAll runs every submitted Task to completion regardless of
	// earlier errors and returns them all from Wait as an *AggregateError.
	CollectAll ErrorMode = iota
	// FailFast cancels the Group's context on the first error and returns
	// only that error from Wait. Tasks already running are not interrupted;
	// they are expected to check ctx.Err().
	FailFast
	// IgnoreErrors discards every error returned by a Task.
	IgnoreErrors
)

// Config holds Group construction options.
type Config struct {
	errorMode ErrorMode
	// completionCapacity bounds the completion queue backing Wait's error
	// aggregation. It is rounded up to the next power of two. Producers
	// (workers finishing a Task) never block permanently on a full queue —
	// they spin until the Group's drain goroutine frees a slot — so this is
	// a tuning knob, not a correctness limit.
	completionCapacity int
}

// Option configures a Group.
type Option func(*Config)

// DefaultConfig returns a Group's default configuration: collect every
// error and size the completion queue for 256 outstanding Tasks.
func DefaultConfig() Config {
	return Config{
		errorMode:          CollectAll,
		completionCapacity: 256,
	}
}

// WithErrorMode sets how the Group reacts to Task errors.
func WithErrorMode(mode ErrorMode) Option {
	return func(c *Config) { c.errorMode = mode }
}

// WithCompletionCapacity sets the completion queue's capacity hint.
func WithCompletionCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.completionCapacity = n
		}
	}
}
