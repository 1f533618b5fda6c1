package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/tagvault/pkg/auth"
)

// options holds the internal configuration for opening a vault.
type options struct {
	logger       *slog.Logger
	versioning   *bool // nil means detect from the data directory
	autoInit     bool
	forceTemp    bool
	devSafety    bool
	tokenTTL     time.Duration
	hashParams   auth.Params
	now          func() time.Time
	errorHandler func(error)
	reconcile    bool
}

// Option defines a functional option for configuring a vault.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		devSafety: true,
		reconcile: true,
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithVersioning enables or disables git history for the data directory.
// When not set, versioning is on if the directory is already a git
// repository, or if a fresh vault is created with WithAutoInit.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.versioning = &enabled
	}
}

// WithAutoInit creates the data directory (and, with versioning, the git
// repository) when missing. Without it the directory must already exist.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.autoInit = auto
	}
}

// WithForceTemp re-roots the data directory under the system temp dir.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDevSafety controls the sandbox used under `go run` and `go test`:
// by default such processes operate on a temporary copy of the path.
//
// CAUTION: only disable this if the code under development is safe to run
// against real data.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithTokenTTL sets the lifetime of sign-in tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.tokenTTL = ttl
	}
}

// WithHashParams sets the argon2id cost of new password hashes.
func WithHashParams(p auth.Params) Option {
	return func(o *options) {
		o.hashParams = p
	}
}

// WithClock injects the time source used for note timestamps, relative due
// dates and token expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithErrorHandler registers a callback for background failures: watcher
// errors and best-effort commits. They are logged either way.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithReconcile controls the index repair pass run when the vault opens.
// It is on by default.
func WithReconcile(enabled bool) Option {
	return func(o *options) {
		o.reconcile = enabled
	}
}
