package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// AuthProvider is the external identity service the portal signs users in
// against.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	CreateAccount(ctx context.Context, in RegisterInput) (*Identity, error)
	SendVerificationEmail(ctx context.Context, ident *Identity) error
	SignOut(ctx context.Context, ident *Identity) error
}

// emailVerifier is implemented by providers that confirm verification
// links themselves rather than through a hosted page.
type emailVerifier interface {
	VerifyEmail(ctx context.Context, token string) (*Identity, error)
}

// LocalAuth keeps accounts in the users table with bcrypt hashes. It
// does not send mail; verification links are written to the log.
type LocalAuth struct {
	db      *sql.DB
	baseURL string
	cost    int
}

func NewLocalAuth(db *sql.DB, baseURL string) *LocalAuth {
	return &LocalAuth{db: db, baseURL: strings.TrimRight(baseURL, "/"), cost: bcrypt.DefaultCost}
}

func (a *LocalAuth) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	var ident Identity
	var hashedPassword string
	var verified int
	err := a.db.QueryRowContext(ctx, `
		SELECT id, email, password, display_name, role, email_verified
		FROM users
		WHERE email = ?
	`, email).Scan(&ident.UID, &ident.Email, &hashedPassword, &ident.DisplayName, &ident.Role, &verified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, authError(AuthUnknownCredential, nil)
	}
	if err != nil {
		return nil, authError(AuthProviderFailure, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return nil, authError(AuthWrongCredential, nil)
	}

	ident.EmailVerified = verified == 1
	return &ident, nil
}

func (a *LocalAuth) CreateAccount(ctx context.Context, in RegisterInput) (*Identity, error) {
	return a.createUser(ctx, in.Email, in.Password, in.DisplayName, AccountDevotee, false)
}

// CreateStaff provisions a pre-verified staff account.
func (a *LocalAuth) CreateStaff(ctx context.Context, email, password, name, role string) (*Identity, error) {
	switch role {
	case AccountVolunteer, AccountAdmin, AccountSecurity:
	default:
		return nil, fmt.Errorf("unknown staff role %q", role)
	}
	return a.createUser(ctx, email, password, name, role, true)
}

func (a *LocalAuth) createUser(ctx context.Context, email, password, name, role string, verified bool) (*Identity, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, authError(AuthProviderFailure, err)
	}

	ident := &Identity{
		UID:           uuid.NewString(),
		Email:         email,
		DisplayName:   name,
		Role:          role,
		EmailVerified: verified,
	}
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password, display_name, role, email_verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ident.UID, email, string(hashedPassword), name, role, verified, time.Now().UnixNano())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, authError(AuthEmailInUse, nil)
		}
		return nil, authError(AuthProviderFailure, err)
	}

	return ident, nil
}

func (a *LocalAuth) SendVerificationEmail(ctx context.Context, ident *Identity) error {
	token := uuid.NewString()
	res, err := a.db.ExecContext(ctx, "UPDATE users SET verify_token = ? WHERE id = ?", token, ident.UID)
	if err != nil {
		return authError(AuthProviderFailure, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return authError(AuthUnknownCredential, nil)
	}

	log.Info().
		Str("email", ident.Email).
		Str("link", a.baseURL+"/api/verify-email?token="+token).
		Msg("Verification email queued")
	return nil
}

func (a *LocalAuth) VerifyEmail(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, authError(AuthInvalidToken, nil)
	}

	var ident Identity
	err := a.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, role FROM users WHERE verify_token = ?
	`, token).Scan(&ident.UID, &ident.Email, &ident.DisplayName, &ident.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, authError(AuthInvalidToken, nil)
	}
	if err != nil {
		return nil, authError(AuthProviderFailure, err)
	}

	_, err = a.db.ExecContext(ctx, `
		UPDATE users SET email_verified = 1, verify_token = NULL WHERE id = ?
	`, ident.UID)
	if err != nil {
		return nil, authError(AuthProviderFailure, err)
	}

	ident.EmailVerified = true
	return &ident, nil
}

// SignOut has nothing to revoke locally; sessions are dropped by the
// session manager.
func (a *LocalAuth) SignOut(ctx context.Context, ident *Identity) error {
	return nil
}
