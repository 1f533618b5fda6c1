package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/tagvault/pkg/core"
	"github.com/aretw0/tagvault/pkg/session"
	"github.com/aretw0/tagvault/pkg/typed"
)

// ErrInvalidCredentials is returned by SignIn for an unknown user or a wrong
// password, without saying which.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Config wires a Service.
type Config struct {
	Users    core.Collection // keyed by "username"
	Sessions *session.Registry
	Params   Params // zero value means DefaultParams
	Logger   *slog.Logger
}

// Service signs users in and out. Callers receive the resolved identity
// explicitly and pass it on; the service never stores it anywhere else.
type Service struct {
	users    *typed.Collection[core.User]
	sessions *session.Registry
	params   Params
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Users == nil || cfg.Sessions == nil {
		return nil, errors.New("auth requires a users collection and a session registry")
	}
	if cfg.Params == (Params{}) {
		cfg.Params = DefaultParams
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		users:    typed.NewCollection[core.User](cfg.Users),
		sessions: cfg.Sessions,
		params:   cfg.Params,
		logger:   cfg.Logger,
	}, nil
}

// AddUser registers a new account.
func (s *Service) AddUser(ctx context.Context, username, password string) error {
	if username == "" {
		return errors.New("username must not be empty")
	}
	hash, err := HashPassword(password, s.params)
	if err != nil {
		return err
	}
	ctx = context.WithValue(ctx, core.ChangeReasonKey, "add user "+username)
	if _, err := s.users.Add(ctx, core.User{Username: username, PasswordHash: hash}); err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	s.logger.Info("user added", "username", username)
	return nil
}

// SetPassword replaces the password of an existing account.
func (s *Service) SetPassword(ctx context.Context, username, password string) error {
	hash, err := HashPassword(password, s.params)
	if err != nil {
		return err
	}
	ctx = context.WithValue(ctx, core.ChangeReasonKey, "set password for "+username)
	if _, err := s.users.Patch(ctx, username, core.Record{"password_hash": hash}); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	s.logger.Info("password changed", "username", username)
	return nil
}

// SignIn checks the credentials and issues a session token.
func (s *Service) SignIn(ctx context.Context, username, password string) (session.Token, error) {
	user, err := s.users.Get(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		s.logger.Warn("sign-in failed", "username", username, "reason", "unknown user")
		return session.Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return session.Token{}, err
	}

	ok, err := VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return session.Token{}, fmt.Errorf("stored hash for %q: %w", username, err)
	}
	if !ok {
		s.logger.Warn("sign-in failed", "username", username, "reason", "wrong password")
		return session.Token{}, ErrInvalidCredentials
	}

	tok, err := s.sessions.Issue(username)
	if err != nil {
		return session.Token{}, err
	}
	s.logger.Info("signed in", "username", username)
	return tok, nil
}

// SignOut revokes a token. Unknown tokens are ignored.
func (s *Service) SignOut(token string) {
	s.sessions.Revoke(token)
}

// Authenticate resolves a token to the username it was issued to.
func (s *Service) Authenticate(token string) (string, error) {
	return s.sessions.Resolve(token)
}

// Users lists the registered usernames.
func (s *Service) Users(ctx context.Context) ([]string, error) {
	all, err := s.users.All(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for _, u := range all {
		names = append(names, u.Username)
	}
	return names, nil
}
