package textpage

import (
	"log/slog"

	"github.com/tsawler/textpage/dispatch"
	"github.com/tsawler/textpage/engine"
)

// config holds the configuration of a Core.
type config struct {
	engine     engine.Engine
	engineOpts []engine.Option
	dispatcher dispatch.Dispatcher
	logger     *slog.Logger
}

// defaultConfig returns the default configuration: a Native engine created
// by NewCore, work run on the calling goroutine, and the package logger.
func defaultConfig() config {
	return config{
		engine:     nil, // engine.NewNative
		dispatcher: dispatch.Unconfined(),
		logger:     nil, // logging.Logger()
	}
}

// clone creates a deep copy of config.
func (c config) clone() config {
	out := c
	if c.engineOpts != nil {
		out.engineOpts = make([]engine.Option, len(c.engineOpts))
		copy(out.engineOpts, c.engineOpts)
	}
	return out
}

// Option configures a Core.
type Option func(*config)

// WithEngine sets the engine documents are loaded with. The caller keeps
// ownership of e.
func WithEngine(e engine.Engine) Option {
	return func(c *config) {
		c.engine = e
	}
}

// WithEngineOptions passes options to the Native engine that NewCore
// creates. They are ignored when WithEngine is used.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, opts...)
	}
}

// WithDispatcher sets where engine calls run. The default,
// dispatch.Unconfined(), runs them on the calling goroutine.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(c *config) {
		if d != nil {
			c.dispatcher = d
		}
	}
}

// WithLogger sets the logger for the Core and the engine it creates.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
