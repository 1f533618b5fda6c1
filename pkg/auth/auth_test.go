package auth_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tagvault/pkg/adapters/fs"
	"github.com/aretw0/tagvault/pkg/auth"
	"github.com/aretw0/tagvault/pkg/core"
	"github.com/aretw0/tagvault/pkg/session"
)

var cheap = auth.Params{Memory: 64, Iterations: 1, Threads: 1, SaltLength: 8, KeyLength: 16}

func TestHashPassword(t *testing.T) {
	hash, err := auth.HashPassword("s3cret", cheap)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$"))

	ok, err := auth.VerifyPassword(hash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.VerifyPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := auth.HashPassword("s3cret", cheap)
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salt is random")

	_, err = auth.HashPassword("", cheap)
	assert.Error(t, err)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, bad := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=64,t=1,p=1$c2FsdA$c3Vt",
		"$argon2id$v=16$m=64,t=1,p=1$c2FsdA$c3Vt",
		"$argon2id$v=19$m=64,t=1$c2FsdA$c3Vt",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$c3Vt",
		"$argon2id$v=19$m=64,t=1,p=1$!!$c3Vt",
	} {
		_, err := auth.VerifyPassword(bad, "pw")
		assert.Error(t, err, bad)
	}
}

func newService(t *testing.T) *auth.Service {
	t.Helper()
	users, err := fs.Open(context.Background(), fs.Config{
		Path:     filepath.Join(t.TempDir(), "users.json"),
		KeyField: "username",
	})
	require.NoError(t, err)

	svc, err := auth.NewService(auth.Config{
		Users:    users,
		Sessions: session.NewRegistry(session.Config{}),
		Params:   cheap,
	})
	require.NoError(t, err)
	return svc
}

func TestService_SignInFlow(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddUser(ctx, "ana", "pw1"))
	assert.ErrorIs(t, svc.AddUser(ctx, "ana", "pw2"), core.ErrAlreadyExists)

	_, err := svc.SignIn(ctx, "ana", "nope")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "ghost", "pw1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	tok, err := svc.SignIn(ctx, "ana", "pw1")
	require.NoError(t, err)

	user, err := svc.Authenticate(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "ana", user)

	svc.SignOut(tok.Value)
	_, err = svc.Authenticate(tok.Value)
	assert.ErrorIs(t, err, session.ErrTokenInvalid)
}

func TestService_SetPassword(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddUser(ctx, "bo", "old"))
	require.NoError(t, svc.SetPassword(ctx, "bo", "new"))

	_, err := svc.SignIn(ctx, "bo", "old")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "bo", "new")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.SetPassword(ctx, "ghost", "x"), core.ErrNotFound)

	names, err := svc.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bo"}, names)
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := auth.NewService(auth.Config{})
	assert.Error(t, err)
}
