package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// FirebaseAuth signs users in against Firebase Authentication. Account
// management goes through the Admin SDK; password sign-in and the
// verification email go through the Identity Toolkit REST API, which the
// Admin SDK does not cover.
type FirebaseAuth struct {
	client  *auth.Client
	toolkit *identitytoolkit.Service
}

func NewFirebaseAuth(ctx context.Context, app *firebase.App, apiKey string) (*FirebaseAuth, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting auth client: %v", err)
	}

	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("error creating identity toolkit service: %v", err)
	}

	return &FirebaseAuth{client: client, toolkit: toolkit}, nil
}

func (f *FirebaseAuth) verifyPassword(ctx context.Context, email, password string) (*identitytoolkit.VerifyPasswordResponse, error) {
	resp, err := f.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, classifyToolkitError(err)
	}
	return resp, nil
}

func (f *FirebaseAuth) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	resp, err := f.verifyPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	user, err := f.client.GetUser(ctx, resp.LocalId)
	if auth.IsUserNotFound(err) {
		return nil, authError(AuthUnknownCredential, err)
	}
	if err != nil {
		return nil, authError(AuthProviderFailure, err)
	}

	ident := identityFromRecord(user)
	ident.providerToken = resp.IdToken
	return ident, nil
}

func (f *FirebaseAuth) CreateAccount(ctx context.Context, in RegisterInput) (*Identity, error) {
	params := (&auth.UserToCreate{}).Email(in.Email).Password(in.Password)
	if in.DisplayName != "" {
		params = params.DisplayName(in.DisplayName)
	}

	user, err := f.client.CreateUser(ctx, params)
	if auth.IsEmailAlreadyExists(err) {
		return nil, authError(AuthEmailInUse, err)
	}
	if err != nil {
		return nil, authError(AuthProviderFailure, err)
	}

	ident := identityFromRecord(user)

	// the verification email is sent on behalf of the signed-in user
	resp, err := f.verifyPassword(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	ident.providerToken = resp.IdToken
	return ident, nil
}

func (f *FirebaseAuth) SendVerificationEmail(ctx context.Context, ident *Identity) error {
	if ident.providerToken == "" {
		return authError(AuthProviderFailure, errors.New("no provider token for verification email"))
	}
	_, err := f.toolkit.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "VERIFY_EMAIL",
		IdToken:     ident.providerToken,
	}).Context(ctx).Do()
	if err != nil {
		return classifyToolkitError(err)
	}
	return nil
}

func (f *FirebaseAuth) SignOut(ctx context.Context, ident *Identity) error {
	if err := f.client.RevokeRefreshTokens(ctx, ident.UID); err != nil {
		return authError(AuthProviderFailure, err)
	}
	return nil
}

func identityFromRecord(user *auth.UserRecord) *Identity {
	role := AccountDevotee
	if r, ok := user.CustomClaims["role"].(string); ok && r != "" {
		role = r
	}
	return &Identity{
		UID:           user.UID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		Role:          role,
		EmailVerified: user.EmailVerified,
	}
}

// classifyToolkitError maps Identity Toolkit error codes onto the auth
// error kinds shown to users.
func classifyToolkitError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return authError(AuthProviderFailure, err)
	}

	code := apiErr.Message
	switch {
	case strings.HasPrefix(code, "EMAIL_NOT_FOUND"):
		return authError(AuthUnknownCredential, err)
	case strings.HasPrefix(code, "INVALID_PASSWORD"), strings.HasPrefix(code, "INVALID_LOGIN_CREDENTIALS"):
		return authError(AuthWrongCredential, err)
	case strings.HasPrefix(code, "EMAIL_EXISTS"):
		return authError(AuthEmailInUse, err)
	case strings.HasPrefix(code, "INVALID_ID_TOKEN"), strings.HasPrefix(code, "TOKEN_EXPIRED"):
		return authError(AuthInvalidToken, err)
	default:
		return authError(AuthProviderFailure, err)
	}
}
