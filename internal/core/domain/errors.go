package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrForbidden          = errors.New("access forbidden")
	ErrNotFound           = errors.New("resource not found")
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrRoleNotFound       = fmt.Errorf("role %w", ErrNotFound)
	ErrTokenNotFound      = fmt.Errorf("token %w", ErrNotFound)
	ErrNoProfilePicture   = fmt.Errorf("profile picture %w", ErrNotFound)
	ErrDuplicate          = errors.New("duplicate record")

	ErrInvalidProvider    = errors.New("invalid provider")
	ErrInvalidOAuthState  = errors.New("invalid oauth state")
	ErrInvalidResetToken  = errors.New("this password reset token is invalid")
	ErrResetThrottled     = errors.New("please wait before retrying")
	ErrResetUserUnknown   = errors.New("we can't find a user with that email address")
	ErrVersionUnsupported = errors.New("api version not supported")
)

// ValidationError carries field-level messages for rejected input.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError builds a ValidationError with a single field message.
func NewValidationError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// Add appends a message for field.
func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = make(map[string][]string)
	}
	v.Fields[field] = append(v.Fields[field], msg)
}

// Empty reports whether no messages were recorded.
func (v *ValidationError) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// Err returns v as an error, or nil when it holds no messages.
func (v *ValidationError) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, strings.Join(v.Fields[k], "; "))
	}
	return strings.Join(parts, "; ")
}

// PolicyError is an authorization rule violation. It matches ErrForbidden.
type PolicyError struct {
	Rule   string
	Reason string
}

// NewPolicyError returns a PolicyError for rule with a client-facing reason.
func NewPolicyError(rule, reason string) *PolicyError {
	return &PolicyError{Rule: rule, Reason: reason}
}

func (e *PolicyError) Error() string { return e.Reason }

func (e *PolicyError) Is(target error) bool { return target == ErrForbidden }

// RateLimitError reports that a caller exhausted its quota.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return e.Message }
