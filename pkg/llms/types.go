// Package llms exposes heterogeneous remote LLM endpoints behind a uniform
// contract: plain text generation and schema-guided structured output, with
// vendor-specific wire protocols hidden inside one adapter per vendor.
package llms

import (
	"errors"
	"fmt"
)

// Messages is the vendor-neutral prompt triplet. Developer carries strict
// formatting rules and may be empty; adapters whose wire protocol has no
// developer role fold it into an additional system message.
type Messages struct {
	System    string
	Developer string
	User      string
}

// TokenUsage records the last call's token consumption when the vendor
// returns it.
type TokenUsage struct {
	Input  int
	Output int
}

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	ErrKindRateLimited ErrorKind = "rate_limited"
	ErrKindAuth        ErrorKind = "auth"
	ErrKindTimeout     ErrorKind = "timeout"
	ErrKindMalformed   ErrorKind = "malformed"
	ErrKindTransport   ErrorKind = "transport"
)

// ProviderError wraps any failure surfaced by an adapter.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a retry-exhausted rate limit.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == ErrKindRateLimited
}

func newProviderError(provider string, kind ErrorKind, msg string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Message: msg, Err: err}
}
