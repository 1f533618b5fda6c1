package tagvault

import (
	_ "embed"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/tagvault/internal/platform"
	"github.com/aretw0/tagvault/pkg/auth"
	"github.com/aretw0/tagvault/pkg/core"
	"github.com/aretw0/tagvault/pkg/index"
	"github.com/aretw0/tagvault/pkg/session"
)

//go:embed VERSION
var version string

// Version is the release of the library.
var Version = strings.TrimSpace(version)

// --- Types ---

// Vault is an opened data directory.
type Vault = platform.Vault

// Note is a stored note.
type Note = core.Note

// Tag is an entry of the tag index.
type Tag = core.Tag

// TagPatch carries the editable fields of a tag.
type TagPatch = index.TagPatch

// NoteChange is the outcome of editing a note's text.
type NoteChange = index.NoteChange

// Token is a sign-in token.
type Token = session.Token

// --- Configuration ---

// Option defines a functional option for opening a vault.
type Option = platform.Option

// WithAutoInit creates the data directory when missing.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithVersioning enables or disables git history for the data directory.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the temporary sandbox used under `go run`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithTokenTTL sets the lifetime of sign-in tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return platform.WithTokenTTL(ttl)
}

// WithHashParams sets the argon2id cost of new password hashes.
func WithHashParams(p auth.Params) Option {
	return platform.WithHashParams(p)
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// WithErrorHandler registers a callback for background failures.
func WithErrorHandler(fn func(error)) Option {
	return platform.WithErrorHandler(fn)
}

// WithReconcile controls the index repair pass run on open.
func WithReconcile(enabled bool) Option {
	return platform.WithReconcile(enabled)
}

// --- Factory ---

// Open opens the vault at path.
func Open(path string, opts ...Option) (*Vault, error) {
	return platform.Open(path, opts...)
}

// OpenConfigured opens the vault described by the tagvault.yaml found in
// dir, if any. Options passed here override the file.
func OpenConfigured(dir string, opts ...Option) (*Vault, error) {
	cfg, err := platform.LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	return platform.Open(cfg.Dir(), append(cfg.Options(), opts...)...)
}

// --- Utils ---

// FindVaultRoot looks upwards from startDir for a vault root.
func FindVaultRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// IsDevRun reports whether the process runs under `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}
