package identity

import (
	"context"
	"time"
)

type options struct {
	logger   Logger
	clock    func() time.Time
	activity ActivitySink
}

// Option customizes the workflows.
type Option func(*options)

// WithLogger sets the logger, nil keeps the default.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithActivitySink forwards audit events to sink.
func WithActivitySink(sink ActivitySink) Option {
	return func(o *options) {
		o.activity = sink
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: defLogger{},
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	o.activity = normalizeActivitySink(o.activity)
	return o
}

func (o options) recorder() activityRecorder {
	return activityRecorder{sink: o.activity, logger: o.logger, clock: o.clock}
}

type noopNotifier struct{}

func (noopNotifier) NotifyRegistration(context.Context, *Account) error      { return nil }
func (noopNotifier) NotifyApproval(context.Context, *Account) error          { return nil }
func (noopNotifier) NotifyRejection(context.Context, *Account, string) error { return nil }

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
