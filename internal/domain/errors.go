package domain

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by the history store for unknown evaluation ids.
var ErrNotFound = errors.New("evaluation not found")

// ValidationError aborts a pipeline run before any provider is called.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Problems, "; ")
}

// ProviderErrorKind classifies a failed provider call.
type ProviderErrorKind string

const (
	ErrKindTimeout     ProviderErrorKind = "timeout"
	ErrKindRateLimited ProviderErrorKind = "rate_limited"
	ErrKindAuthFailed  ProviderErrorKind = "auth_failed"
	ErrKindUpstream    ProviderErrorKind = "upstream_error"
	ErrKindUnknown     ProviderErrorKind = "unknown"
)

// ProviderError is scoped to a single selection; it never fails the run.
type ProviderError struct {
	Kind    ProviderErrorKind
	Message string
}

func (e *ProviderError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// UserMessage returns a short, user-safe description of the failure. Raw
// provider error text never reaches the client.
func (e *ProviderError) UserMessage() string {
	switch e.Kind {
	case ErrKindTimeout:
		return "provider did not respond before the timeout"
	case ErrKindRateLimited:
		return "provider rate limit exceeded"
	case ErrKindAuthFailed:
		return "provider authentication failed"
	case ErrKindUpstream:
		return "provider returned an upstream error"
	default:
		return "provider call failed"
	}
}
