package ethlink

import "io"

// Option configures optional behavior of a Link.
type Option func(*options)

type options struct {
	logger       Logger
	eventHandler EventHandler
	plugins      []Plugin
	traceOut     io.Writer
	traceFormat  TraceFormat
}

// WithLogger sets a logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for link events. Frame events are called
// synchronously from the clock domain that produced them.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the link starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithTrace records every transmitted beat to w. The caller owns w and
// closes it after the link has stopped.
func WithTrace(w io.Writer, format TraceFormat) Option {
	return func(o *options) {
		o.traceOut = w
		o.traceFormat = format
	}
}
