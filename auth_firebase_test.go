package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

func TestIdentityFromRecord(t *testing.T) {
	staff := identityFromRecord(&auth.UserRecord{
		UserInfo:      &auth.UserInfo{UID: "v1", Email: "v@example.com", DisplayName: "Lakshmi"},
		CustomClaims:  map[string]interface{}{"role": "volunteer"},
		EmailVerified: true,
	})
	assert.Equal(t, AccountVolunteer, staff.Role)
	assert.True(t, staff.IsStaff())
	assert.Equal(t, "Lakshmi", staff.Name())

	visitor := identityFromRecord(&auth.UserRecord{UserInfo: &auth.UserInfo{UID: "u1", Email: "u@example.com"}})
	assert.Equal(t, AccountDevotee, visitor.Role)
	assert.False(t, visitor.EmailVerified)
}

func TestClassifyToolkitError(t *testing.T) {
	tests := []struct {
		message string
		kind    AuthErrorKind
	}{
		{"EMAIL_NOT_FOUND", AuthUnknownCredential},
		{"INVALID_PASSWORD", AuthWrongCredential},
		{"INVALID_LOGIN_CREDENTIALS", AuthWrongCredential},
		{"EMAIL_EXISTS", AuthEmailInUse},
		{"TOKEN_EXPIRED", AuthInvalidToken},
		{"INVALID_ID_TOKEN", AuthInvalidToken},
		{"TOO_MANY_ATTEMPTS_TRY_LATER : Access blocked", AuthProviderFailure},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			err := classifyToolkitError(&googleapi.Error{Code: 400, Message: tt.message})
			assert.Equal(t, tt.kind, authKind(t, err))
		})
	}

	assert.Equal(t, AuthProviderFailure, authKind(t, classifyToolkitError(errors.New("dial tcp: timeout"))))
}

func TestFirebaseAuth_VerifyPasswordErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"INVALID_LOGIN_CREDENTIALS","errors":[{"message":"INVALID_LOGIN_CREDENTIALS","domain":"global","reason":"invalid"}]}}`)
	}))
	defer srv.Close()

	toolkit, err := identitytoolkit.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	fa := &FirebaseAuth{toolkit: toolkit}
	_, err = fa.SignIn(context.Background(), "devotee@example.com", "wrong")
	assert.Equal(t, AuthWrongCredential, authKind(t, err))

	err = fa.SendVerificationEmail(context.Background(), &Identity{UID: "u1"})
	assert.Equal(t, AuthProviderFailure, authKind(t, err), "no provider token")
}
