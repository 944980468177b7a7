package main

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrForbidden              = errors.New("not allowed for this account")
	ErrNotFound               = errors.New("record not found")
	ErrQueueFull              = errors.New("write queue is full")
	ErrQueueClosed            = errors.New("write queue is closed")
	ErrSessionNotFound        = errors.New("session not found")
)

type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries one issue per offending input field.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field has at least one issue.
func (e *ValidationError) Has(field string) bool {
	for _, issue := range e.Issues {
		if issue.Field == field {
			return true
		}
	}
	return false
}

type validator struct {
	issues []FieldIssue
}

func (v *validator) check(ok bool, field, message string) {
	if !ok {
		v.issues = append(v.issues, FieldIssue{Field: field, Message: message})
	}
}

func (v *validator) err() error {
	if len(v.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: v.issues}
}

type LocationReason string

const (
	LocationPermissionDenied LocationReason = "permission_denied"
	LocationUnsupported      LocationReason = "unsupported"
	LocationTimeout          LocationReason = "timeout"
	LocationUnavailable      LocationReason = "unavailable"
)

type LocationUnavailableError struct {
	Reason LocationReason
}

func (e *LocationUnavailableError) Error() string {
	return fmt.Sprintf("device location unavailable: %s", e.Reason)
}

func (e *LocationUnavailableError) UserMessage() string {
	if e.Reason == LocationUnsupported {
		return "Your browser does not support location services."
	}
	return "Please ensure location services are enabled for your browser and try again."
}

type AuthErrorKind string

const (
	AuthUnknownCredential AuthErrorKind = "unknown_credential"
	AuthEmailInUse        AuthErrorKind = "email_in_use"
	AuthWrongCredential   AuthErrorKind = "wrong_credential"
	AuthEmailNotVerified  AuthErrorKind = "email_not_verified"
	AuthInvalidToken      AuthErrorKind = "invalid_token"
	AuthProviderFailure   AuthErrorKind = "provider_failure"
)

// AuthProviderError is a classified failure reported by the auth provider.
type AuthProviderError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth provider: %s: %v", e.Kind, e.Err)
	}
	return "auth provider: " + string(e.Kind)
}

func (e *AuthProviderError) Unwrap() error { return e.Err }

func (e *AuthProviderError) UserMessage() string {
	switch e.Kind {
	case AuthUnknownCredential, AuthWrongCredential:
		return "Incorrect email or password."
	case AuthEmailInUse:
		return "This email address is already in use. Please log in instead."
	case AuthEmailNotVerified:
		return "Please check your email to verify your account."
	case AuthInvalidToken:
		return "This verification link is invalid or has expired."
	default:
		return "The sign-in service is unavailable. Please try again."
	}
}

func authError(kind AuthErrorKind, err error) error {
	return &AuthProviderError{Kind: kind, Err: err}
}

const predictionFailureMessage = "An error occurred while making the prediction."

// PredictionServiceError hides the upstream cause behind one generic message.
type PredictionServiceError struct {
	Err error
}

func (e *PredictionServiceError) Error() string { return predictionFailureMessage }

func (e *PredictionServiceError) Unwrap() error { return e.Err }

type SubscriptionError struct {
	Feed string
	Err  error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("live feed %s failed: %v", e.Feed, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

type InvalidTransitionError struct {
	From IssueStatus
	To   IssueStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move issue from %q to %q", e.From, e.To)
}
