package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestLocalAuth(t *testing.T) *LocalAuth {
	t.Helper()
	store := newTestStore(t)
	a := NewLocalAuth(store.db, "http://localhost:8080/")
	a.cost = bcrypt.MinCost
	return a
}

func authKind(t *testing.T, err error) AuthErrorKind {
	t.Helper()
	var aerr *AuthProviderError
	require.True(t, errors.As(err, &aerr), "expected AuthProviderError, got %v", err)
	return aerr.Kind
}

func TestLocalAuth_RegisterAndSignIn(t *testing.T) {
	a := newTestLocalAuth(t)
	ctx := context.Background()

	created, err := a.CreateAccount(ctx, RegisterInput{Email: "devotee@example.com", Password: "govinda", DisplayName: "Srinivas"})
	require.NoError(t, err)
	assert.Equal(t, AccountDevotee, created.Role)
	assert.False(t, created.EmailVerified)

	ident, err := a.SignIn(ctx, "devotee@example.com", "govinda")
	require.NoError(t, err)
	assert.Equal(t, created.UID, ident.UID)
	assert.Equal(t, "Srinivas", ident.DisplayName)
	assert.False(t, ident.EmailVerified)
	assert.False(t, ident.IsStaff())

	_, err = a.CreateAccount(ctx, RegisterInput{Email: "devotee@example.com", Password: "another"})
	assert.Equal(t, AuthEmailInUse, authKind(t, err))
}

func TestLocalAuth_SignInFailures(t *testing.T) {
	a := newTestLocalAuth(t)
	ctx := context.Background()

	_, err := a.CreateAccount(ctx, RegisterInput{Email: "devotee@example.com", Password: "govinda"})
	require.NoError(t, err)

	_, err = a.SignIn(ctx, "nobody@example.com", "govinda")
	assert.Equal(t, AuthUnknownCredential, authKind(t, err))

	_, err = a.SignIn(ctx, "devotee@example.com", "wrong")
	assert.Equal(t, AuthWrongCredential, authKind(t, err))

	var aerr *AuthProviderError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "Incorrect email or password.", aerr.UserMessage())
}

func TestLocalAuth_VerifyEmail(t *testing.T) {
	a := newTestLocalAuth(t)
	ctx := context.Background()

	created, err := a.CreateAccount(ctx, RegisterInput{Email: "devotee@example.com", Password: "govinda"})
	require.NoError(t, err)
	require.NoError(t, a.SendVerificationEmail(ctx, created))

	var token string
	require.NoError(t, a.db.QueryRow("SELECT verify_token FROM users WHERE id = ?", created.UID).Scan(&token))
	require.NotEmpty(t, token)

	_, err = a.VerifyEmail(ctx, "")
	assert.Equal(t, AuthInvalidToken, authKind(t, err))
	_, err = a.VerifyEmail(ctx, "not-a-token")
	assert.Equal(t, AuthInvalidToken, authKind(t, err))

	verified, err := a.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, created.UID, verified.UID)
	assert.True(t, verified.EmailVerified)

	_, err = a.VerifyEmail(ctx, token)
	assert.Equal(t, AuthInvalidToken, authKind(t, err), "links are single use")

	ident, err := a.SignIn(ctx, "devotee@example.com", "govinda")
	require.NoError(t, err)
	assert.True(t, ident.EmailVerified)
}

func TestLocalAuth_SendVerificationUnknownUser(t *testing.T) {
	a := newTestLocalAuth(t)
	err := a.SendVerificationEmail(context.Background(), &Identity{UID: "missing"})
	assert.Equal(t, AuthUnknownCredential, authKind(t, err))
}

func TestLocalAuth_CreateStaff(t *testing.T) {
	a := newTestLocalAuth(t)
	ctx := context.Background()

	staff, err := a.CreateStaff(ctx, "guard@example.com", "secure1", "Ravi", AccountSecurity)
	require.NoError(t, err)
	assert.True(t, staff.EmailVerified)

	ident, err := a.SignIn(ctx, "guard@example.com", "secure1")
	require.NoError(t, err)
	assert.True(t, ident.IsStaff())
	assert.False(t, ident.IsAdmin())
	assert.Equal(t, RoleSecurity, ident.StaffRole())

	_, err = a.CreateStaff(ctx, "x@example.com", "secure1", "X", AccountDevotee)
	assert.Error(t, err)
}

func TestSeedAdmin(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, seedAdmin(store.db, "admin@govindaseva.org", "changeme"))
	require.NoError(t, seedAdmin(store.db, "other@govindaseva.org", "changeme"))

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&count))
	assert.Equal(t, 1, count)

	ident, err := NewLocalAuth(store.db, "").SignIn(context.Background(), "admin@govindaseva.org", "changeme")
	require.NoError(t, err)
	assert.True(t, ident.IsAdmin())
	assert.True(t, ident.EmailVerified)
}
