package persist

import "github.com/s3studio/baseline-manager/pkg/log"

// Option configures a Binding.
type Option func(*options)

type options struct {
	logger         log.Logger
	validate       func(state any) error
	migrate        Migration
	discardInvalid bool
}

func defaultOptions() options {
	return options{logger: log.NewNoopLogger()}
}

// WithLogger sets the logger used for binding events.
// If not provided, a no-op logger is used.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithValidator sets a validation gate run on every decoded snapshot before
// it replaces the store state. A failing snapshot is treated as malformed.
func WithValidator(validate func(state any) error) Option {
	return func(o *options) {
		o.validate = validate
	}
}

// WithMigration sets the function that upgrades snapshots written at an older
// schema version.
func WithMigration(migrate Migration) Option {
	return func(o *options) {
		o.migrate = migrate
	}
}

// WithDiscardInvalid makes Bind keep the default state and overwrite the slot
// when the stored snapshot is malformed, instead of failing.
func WithDiscardInvalid() Option {
	return func(o *options) {
		o.discardInvalid = true
	}
}
