package model

import (
	"context"
	"fmt"
)

// ErrorKind classifies transport failures so the client can decide whether
// to fall through to the next model in the preference order.
type ErrorKind string

const (
	ErrorKindAuth       ErrorKind = "auth"
	ErrorKindNotFound   ErrorKind = "not_found"
	ErrorKindRateLimit  ErrorKind = "rate_limit"
	ErrorKindServer     ErrorKind = "server"
	ErrorKindCapability ErrorKind = "capability"
)

// TransportError is returned by transports for any non-2xx outcome.
type TransportError struct {
	Kind    ErrorKind
	ModelID string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("model %s: %s: %v", e.ModelID, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SendRequest is the provider-agnostic shape of one text-generation call.
type SendRequest struct {
	System      string
	Prompt      string
	ModelID     string
	MaxTokens   int
	Temperature float64
}

// Transport sends a prompt to one provider and returns the raw text reply.
// Implementations must not mutate caller-owned data.
type Transport interface {
	Send(ctx context.Context, req SendRequest) (string, error)
	Name() string
}

// ParseError is the strict boundary for unreliable free-text-as-JSON: the
// client either returns validated JSON or this error with the last raw text
// attached for diagnostics. It is never a crash.
type ParseError struct {
	RawText string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
