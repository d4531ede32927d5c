package model

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestGeminiSendBuildsRequest(t *testing.T) {
	var captured *http.Request
	var payload map[string]any
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		return jsonResponse(200, `{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`), nil
	})}

	tr, err := NewGeminiTransport(GeminiOptions{APIKey: "key", HTTPClient: client})
	if err != nil {
		t.Fatalf("NewGeminiTransport: %v", err)
	}
	got, err := tr.Send(context.Background(), SendRequest{
		System:    "sys",
		Prompt:    "hi",
		ModelID:   "gemini-1.5-flash",
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got != "hello" {
		t.Fatalf("text = %q, want hello", got)
	}
	if captured.Header.Get("x-goog-api-key") != "key" {
		t.Fatalf("missing api key header")
	}
	if !strings.Contains(captured.URL.Path, "gemini-1.5-flash:generateContent") {
		t.Fatalf("unexpected path %q", captured.URL.Path)
	}
	if _, ok := payload["systemInstruction"]; !ok {
		t.Fatalf("system instruction not sent: %v", payload)
	}
}

func TestOpenAISendBuildsRequest(t *testing.T) {
	var captured *http.Request
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(200, `{"choices":[{"message":{"content":"hi there"}}]}`), nil
	})}

	tr, err := NewOpenAITransport(OpenAIOptions{APIKey: "sk-test", Organization: "org-1", HTTPClient: client})
	if err != nil {
		t.Fatalf("NewOpenAITransport: %v", err)
	}
	got, err := tr.Send(context.Background(), SendRequest{Prompt: "hi", ModelID: "gpt-4o-mini", MaxTokens: 64})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got != "hi there" {
		t.Fatalf("text = %q", got)
	}
	if captured.Header.Get("Authorization") != "Bearer sk-test" {
		t.Fatalf("missing bearer token")
	}
	if captured.Header.Get("OpenAI-Organization") != "org-1" {
		t.Fatalf("missing organization header")
	}
}

func TestClassifyStatusTaxonomy(t *testing.T) {
	cases := []struct {
		status  int
		message string
		want    ErrorKind
	}{
		{401, "bad key", ErrorKindAuth},
		{403, "forbidden", ErrorKindAuth},
		{404, "model not found", ErrorKindNotFound},
		{429, "slow down", ErrorKindRateLimit},
		{400, "max_tokens is too large for this model", ErrorKindCapability},
		{400, "maxOutputTokens exceeds limit", ErrorKindCapability},
		{400, "malformed request", ErrorKindServer},
		{500, "boom", ErrorKindServer},
	}
	for _, tc := range cases {
		if got := classifyStatus(tc.status, tc.message); got != tc.want {
			t.Fatalf("classifyStatus(%d, %q) = %v, want %v", tc.status, tc.message, got, tc.want)
		}
	}
}

func TestGeminiSendClassifiesErrors(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(429, `{"error":{"code":429,"message":"quota exceeded"}}`), nil
	})}
	tr, err := NewGeminiTransport(GeminiOptions{APIKey: "key", HTTPClient: client})
	if err != nil {
		t.Fatalf("NewGeminiTransport: %v", err)
	}
	_, err = tr.Send(context.Background(), SendRequest{Prompt: "hi", ModelID: "m"})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
	if te.Kind != ErrorKindRateLimit {
		t.Fatalf("Kind = %v, want rate limit", te.Kind)
	}
	if te.ModelID != "m" {
		t.Fatalf("ModelID = %q, want m", te.ModelID)
	}
}
