// Package session keeps the in-memory registry of sign-in tokens.
// Tokens are never written to disk; restarting the process signs everyone out.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/introspection"
)

// DefaultTTL is the lifetime of a token when Config.TTL is zero.
const DefaultTTL = 4 * time.Hour

const tokenBytes = 32

var (
	// ErrTokenInvalid is returned for a token the registry never issued or
	// has revoked.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired is returned for a token past its expiry. The token is
	// evicted by the lookup that reports it.
	ErrTokenExpired = errors.New("token expired")
)

// Token is an issued credential.
type Token struct {
	Value     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Config configures a Registry.
type Config struct {
	TTL    time.Duration
	Now    func() time.Time
	Logger *slog.Logger
}

// Registry maps tokens to usernames. It is safe for concurrent use.
type Registry struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu     sync.Mutex
	tokens map[string]Token
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		ttl:    cfg.TTL,
		now:    cfg.Now,
		logger: cfg.Logger,
		tokens: make(map[string]Token),
	}
}

// Issue creates a token for username.
func (r *Registry) Issue(username string) (Token, error) {
	if username == "" {
		return Token{}, errors.New("username must not be empty")
	}
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return Token{}, fmt.Errorf("generate token: %w", err)
	}
	tok := Token{
		Value:     base64.RawURLEncoding.EncodeToString(buf),
		Username:  username,
		ExpiresAt: r.now().Add(r.ttl),
	}

	r.mu.Lock()
	r.tokens[tok.Value] = tok
	r.mu.Unlock()

	r.logger.Info("token issued", "username", username, "expires_at", tok.ExpiresAt)
	return tok, nil
}

// Resolve returns the username a live token was issued to.
func (r *Registry) Resolve(value string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, ok := r.tokens[value]
	if !ok {
		return "", ErrTokenInvalid
	}
	if !r.now().Before(tok.ExpiresAt) {
		delete(r.tokens, value)
		r.logger.Debug("token expired", "username", tok.Username)
		return "", ErrTokenExpired
	}
	return tok.Username, nil
}

// Revoke invalidates a token. It reports whether the token was live.
func (r *Registry) Revoke(value string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, ok := r.tokens[value]
	if ok {
		delete(r.tokens, value)
		r.logger.Info("token revoked", "username", tok.Username)
	}
	return ok
}

// Sweep evicts every expired token and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n := 0
	for value, tok := range r.tokens {
		if !now.Before(tok.ExpiresAt) {
			delete(r.tokens, value)
			n++
		}
	}
	if n > 0 {
		r.logger.Debug("expired tokens swept", "count", n)
	}
	return n
}

// RegistryState exposes token counts for observability. Token values are
// never included.
type RegistryState struct {
	Active int           `json:"active"`
	TTL    time.Duration `json:"ttl"`
}

// State implements introspection.Introspectable.
func (r *Registry) State() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RegistryState{Active: len(r.tokens), TTL: r.ttl}
}

// ComponentType implements introspection.Component.
func (r *Registry) ComponentType() string {
	return "session"
}

var _ introspection.Introspectable = (*Registry)(nil)
var _ introspection.Component = (*Registry)(nil)
