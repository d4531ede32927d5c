package model

import (
	"context"
	"errors"
	"testing"

	"creativeagent/internal/domain"
)

// scriptedTransport replays canned replies and records every request.
type scriptedTransport struct {
	name     string
	replies  []string
	errs     []error
	requests []SendRequest
}

func (s *scriptedTransport) Name() string { return s.name }

func (s *scriptedTransport) Send(ctx context.Context, req SendRequest) (string, error) {
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	var err error
	if idx < len(s.errs) {
		err = s.errs[idx]
	}
	if err != nil {
		return "", err
	}
	if idx < len(s.replies) {
		return s.replies[idx], nil
	}
	return "", errors.New("script exhausted")
}

func newTestClient(t *testing.T, backends ...Backend) *Client {
	t.Helper()
	c, err := NewClient(Options{Backends: backends})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestCompleteFallsThroughOnHardFailure(t *testing.T) {
	first := &scriptedTransport{
		name: "gemini",
		errs: []error{&TransportError{Kind: ErrorKindNotFound, ModelID: "gemini-x", Err: errors.New("404")}},
	}
	second := &scriptedTransport{name: "openai", replies: []string{`{"ok": true}`}}
	client := newTestClient(t,
		Backend{Transport: first, Model: ModelSpec{ID: "gemini-x"}},
		Backend{Transport: second, Model: ModelSpec{ID: "gpt-test"}},
	)

	got, err := client.Complete(context.Background(), CompleteRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.ModelID != "gpt-test" {
		t.Fatalf("ModelID = %q, want gpt-test", got.ModelID)
	}
	if got.Provider != "openai" {
		t.Fatalf("Provider = %q, want openai", got.Provider)
	}
}

func TestCompleteExhaustionWrapsSentinel(t *testing.T) {
	down := func(id string) *scriptedTransport {
		return &scriptedTransport{
			name: id,
			errs: []error{&TransportError{Kind: ErrorKindNotFound, ModelID: id, Err: errors.New("404")}},
		}
	}
	client := newTestClient(t,
		Backend{Transport: down("a"), Model: ModelSpec{ID: "a"}},
		Backend{Transport: down("b"), Model: ModelSpec{ID: "b"}},
	)

	_, err := client.Complete(context.Background(), CompleteRequest{Prompt: "p"})
	if !errors.Is(err, domain.ErrModelsExhausted) {
		t.Fatalf("err = %v, want ErrModelsExhausted", err)
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err should carry the last transport error, got %v", err)
	}
}

func TestCompleteClampsTokenBudget(t *testing.T) {
	tr := &scriptedTransport{name: "gemini", replies: []string{`{"ok": true}`}}
	client := newTestClient(t, Backend{Transport: tr, Model: ModelSpec{ID: "m", MaxOutputTokens: 1000}})

	got, err := client.Complete(context.Background(), CompleteRequest{Prompt: "p", MaxOutputTokens: 9999})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !got.Clamped {
		t.Fatalf("Clamped = false, want true")
	}
	if tr.requests[0].MaxTokens != 1000 {
		t.Fatalf("MaxTokens = %d, want 1000", tr.requests[0].MaxTokens)
	}
}

func TestCompleteRetriesCapabilityErrorOnce(t *testing.T) {
	tr := &scriptedTransport{
		name:    "openai",
		errs:    []error{&TransportError{Kind: ErrorKindCapability, ModelID: "m", Err: errors.New("max_tokens too large")}},
		replies: []string{"", `{"ok": true}`},
	}
	client := newTestClient(t, Backend{Transport: tr, Model: ModelSpec{ID: "m", MaxOutputTokens: 500}})

	got, err := client.Complete(context.Background(), CompleteRequest{Prompt: "p", MaxOutputTokens: 400})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(tr.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(tr.requests))
	}
	if tr.requests[1].MaxTokens != 500 {
		t.Fatalf("retry MaxTokens = %d, want the hard limit 500", tr.requests[1].MaxTokens)
	}
	if string(got.JSON) != `{"ok": true}` {
		t.Fatalf("JSON = %s", got.JSON)
	}
}

func TestCompleteRepairsInvalidJSON(t *testing.T) {
	tr := &scriptedTransport{
		name:    "gemini",
		replies: []string{"here is the data but no json value", `{"fixed": true}`},
	}
	client := newTestClient(t, Backend{Transport: tr, Model: ModelSpec{ID: "m"}})

	got, err := client.Complete(context.Background(), CompleteRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !got.Repaired {
		t.Fatalf("Repaired = false, want true")
	}
	if string(got.JSON) != `{"fixed": true}` {
		t.Fatalf("JSON = %s", got.JSON)
	}
	if len(tr.requests) != 2 {
		t.Fatalf("requests = %d, want 2 (original plus repair)", len(tr.requests))
	}
}

func TestCompleteRepairFailureSurfacesParseError(t *testing.T) {
	tr := &scriptedTransport{
		name:    "gemini",
		replies: []string{"still not json", "and again not json"},
	}
	fallback := &scriptedTransport{name: "openai", replies: []string{`{"ok": true}`}}
	client := newTestClient(t,
		Backend{Transport: tr, Model: ModelSpec{ID: "m"}},
		Backend{Transport: fallback, Model: ModelSpec{ID: "n"}},
	)

	_, err := client.Complete(context.Background(), CompleteRequest{Prompt: "p"})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if pe.RawText == "" {
		t.Fatalf("ParseError should carry the raw text")
	}
	// A parse failure must not fall through to the next backend.
	if len(fallback.requests) != 0 {
		t.Fatalf("fallback backend was called %d times, want 0", len(fallback.requests))
	}
}
