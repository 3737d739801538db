package engine

import "log/slog"

// options configures a Native engine.
type options struct {
	expandLigatures bool
	maxFormDepth    int
	tempDir         string
	logger          *slog.Logger
}

// Option configures a Native engine.
type Option func(*options)

func defaultOptions() options {
	return options{
		expandLigatures: false,
		maxFormDepth:    10,
		tempDir:         "", // os.TempDir
	}
}

// WithLigatureExpansion makes text pages report presentation-form
// ligatures (U+FB00 to U+FB06) as their component letters. Each letter gets
// an equal share of the ligature's box.
func WithLigatureExpansion(on bool) Option {
	return func(o *options) {
		o.expandLigatures = on
	}
}

// WithMaxFormDepth limits how deeply nested Form XObjects are followed.
// Values below 1 disable Form XObject text.
func WithMaxFormDepth(depth int) Option {
	return func(o *options) {
		o.maxFormDepth = max(depth, 0)
	}
}

// WithTempDir sets the directory that LoadDocument spools documents to.
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tempDir = dir
	}
}

// WithLogger sets the logger. The default is logging.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
