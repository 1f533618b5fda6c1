package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"

	"github.com/aretw0/tagvault/pkg/adapters/fs"
	lcadapter "github.com/aretw0/tagvault/pkg/adapters/lifecycle"
	"github.com/aretw0/tagvault/pkg/auth"
	"github.com/aretw0/tagvault/pkg/core"
	"github.com/aretw0/tagvault/pkg/git"
	"github.com/aretw0/tagvault/pkg/index"
	"github.com/aretw0/tagvault/pkg/session"
)

// Collection file names inside the data directory.
const (
	NotesFile = "notes.json"
	TagsFile  = "tags.json"
	UsersFile = "users.json"
)

// Vault is an opened data directory with every component wired.
type Vault struct {
	Dir      string
	Notes    *fs.Collection
	Tags     *fs.Collection
	Users    *fs.Collection
	Index    *index.Manager
	Sessions *session.Registry
	Auth     *auth.Service
	Git      *git.Client // nil without versioning

	logger *slog.Logger
}

// Open opens (or, with WithAutoInit, creates) the vault at path.
//
//	v, err := platform.Open("./notes", platform.WithAutoInit(true), platform.WithVersioning(false))
func Open(path string, opts ...Option) (*Vault, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	useTemp := o.forceTemp || (IsDevRun() && o.devSafety)
	dir := ResolveDataDir(path, useTemp)
	if useTemp && dir != filepath.Clean(path) {
		o.logger.Warn("running in SAFE MODE (dev/test sandbox)", "original_path", path, "resolved_path", dir)
	}

	if _, err := os.Stat(dir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w: %w", dir, core.ErrIO, err)
		}
		if !o.autoInit && !useTemp {
			return nil, fmt.Errorf("vault %s does not exist (use auto-init to create it): %w", dir, core.ErrNotFound)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w: %w", dir, core.ErrIO, err)
		}
		o.logger.Info("vault directory created", "path", dir)
	}

	gitClient, err := setupVersioning(dir, o)
	if err != nil {
		return nil, err
	}

	ctx := context.WithValue(context.Background(), core.ChangeReasonKey, "initialize vault")
	open := func(file, key string) (*fs.Collection, error) {
		return fs.Open(ctx, fs.Config{
			Path:         filepath.Join(dir, file),
			KeyField:     key,
			Logger:       o.logger,
			Git:          gitClient,
			ErrorHandler: o.errorHandler,
		})
	}

	v := &Vault{Dir: dir, Git: gitClient, logger: o.logger}
	if v.Notes, err = open(NotesFile, "id"); err != nil {
		return nil, err
	}
	if v.Tags, err = open(TagsFile, "name"); err != nil {
		return nil, err
	}
	if v.Users, err = open(UsersFile, "username"); err != nil {
		return nil, err
	}

	if v.Index, err = index.New(index.Config{
		Notes:  v.Notes,
		Tags:   v.Tags,
		Logger: o.logger,
		Now:    o.now,
	}); err != nil {
		return nil, err
	}

	v.Sessions = session.NewRegistry(session.Config{TTL: o.tokenTTL, Now: o.now, Logger: o.logger})
	if v.Auth, err = auth.NewService(auth.Config{
		Users:    v.Users,
		Sessions: v.Sessions,
		Params:   o.hashParams,
		Logger:   o.logger,
	}); err != nil {
		return nil, err
	}

	if o.reconcile {
		if _, err := v.Index.Reconcile(ctx); err != nil {
			return nil, fmt.Errorf("failed to reconcile index: %w", err)
		}
	}
	return v, nil
}

// setupVersioning decides whether the vault is versioned and prepares the
// repository. Without an explicit choice, an existing .git directory turns
// versioning on, and so does creating a fresh vault with auto-init.
func setupVersioning(dir string, o *options) (*git.Client, error) {
	client := git.NewClient(dir, o.logger)

	enabled := client.IsRepo() || (o.autoInit && !exists(filepath.Join(dir, NotesFile)))
	if o.versioning != nil {
		enabled = *o.versioning
	}
	if !enabled {
		return nil, nil
	}
	if !git.IsInstalled() {
		if o.versioning != nil {
			return nil, errors.New("versioning requested but git is not installed")
		}
		o.logger.Warn("git not installed, versioning disabled", "path", dir)
		return nil, nil
	}

	if !client.IsRepo() {
		if err := client.Init(); err != nil {
			return nil, fmt.Errorf("failed to init git repository: %w", err)
		}
		o.logger.Info("git repository initialized", "path", dir)
	}
	for _, entry := range []string{git.LockFile, fs.TempFilePrefix + "*"} {
		if err := client.EnsureIgnored(entry); err != nil {
			return nil, fmt.Errorf("failed to update .gitignore: %w", err)
		}
	}
	return client, nil
}

// Watch reloads the collections when their files change on disk and
// reconciles the index after each reload. The returned source emits one
// event per reload and closes when ctx is done.
func (v *Vault) Watch(ctx context.Context) (lifecycle.Source, error) {
	var inputs []<-chan core.Event
	for _, c := range []*fs.Collection{v.Notes, v.Tags, v.Users} {
		events, err := c.Watch(ctx)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, v.reconcileOnReload(ctx, events))
	}
	return lcadapter.NewSource(inputs...), nil
}

// reconcileOnReload passes events through after repairing the index, so a
// hand edit of notes.json cannot leave tags behind.
func (v *Vault) reconcileOnReload(ctx context.Context, in <-chan core.Event) <-chan core.Event {
	out := make(chan core.Event)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		for e := range in {
			if e.Collection != v.Users.Name() {
				rctx := context.WithValue(ctx, core.ChangeReasonKey, "reconcile after external change")
				if report, err := v.Index.Reconcile(rctx); err != nil {
					v.logger.Error("reconcile after reload failed", "collection", e.Collection, "error", err)
				} else if !report.Empty() {
					v.logger.Info("index repaired after reload", "collection", e.Collection)
				}
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})
	return out
}

// VaultState aggregates the state of the vault components.
type VaultState struct {
	Dir       string `json:"dir"`
	Versioned bool   `json:"versioned"`
	Notes     any    `json:"notes"`
	Tags      any    `json:"tags"`
	Users     any    `json:"users"`
	Index     any    `json:"index"`
	Sessions  any    `json:"sessions"`
}

// State implements introspection.Introspectable.
func (v *Vault) State() any {
	return VaultState{
		Dir:       v.Dir,
		Versioned: v.Git != nil,
		Notes:     v.Notes.State(),
		Tags:      v.Tags.State(),
		Users:     v.Users.State(),
		Index:     v.Index.State(),
		Sessions:  v.Sessions.State(),
	}
}

// ComponentType implements introspection.Component.
func (v *Vault) ComponentType() string {
	return "vault"
}

var _ introspection.Introspectable = (*Vault)(nil)
var _ introspection.Component = (*Vault)(nil)
