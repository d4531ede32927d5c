package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	geminiDefaultTimeout = 30 * time.Second
	geminiProviderName   = "gemini"
)

// GeminiOptions configures the Gemini transport.
type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiTransport speaks the generateContent API over plain HTTP.
type GeminiTransport struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	CandidateCount  int     `json:"candidateCount,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Status  string `json:"status,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewGeminiTransport builds a Gemini transport with sane defaults.
func NewGeminiTransport(opts GeminiOptions) (*GeminiTransport, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiTransport{
		apiKey:  strings.TrimSpace(opts.APIKey),
		baseURL: baseURL,
		client:  client,
	}, nil
}

func (t *GeminiTransport) Name() string {
	return geminiProviderName
}

func (t *GeminiTransport) Send(ctx context.Context, req SendRequest) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     req.Temperature,
			CandidateCount:  1,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if strings.TrimSpace(req.System) != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", &TransportError{Kind: ErrorKindServer, ModelID: req.ModelID, Err: fmt.Errorf("encode request: %w", err)}
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", t.baseURL, url.PathEscape(req.ModelID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", &TransportError{Kind: ErrorKindServer, ModelID: req.ModelID, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", t.apiKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return "", &TransportError{Kind: ErrorKindServer, ModelID: req.ModelID, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return "", t.classifyError(resp, req.ModelID)
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransportError{Kind: ErrorKindServer, ModelID: req.ModelID, Err: fmt.Errorf("decode response: %w", err)}
	}
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text, nil
			}
		}
	}
	return "", &TransportError{Kind: ErrorKindServer, ModelID: req.ModelID, Err: errors.New("no text candidates returned")}
}

func (t *GeminiTransport) classifyError(resp *http.Response, modelID string) error {
	var apiErr geminiErrorResponse
	message := ""
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil {
		message = apiErr.Error.Message
	} else {
		data, _ := io.ReadAll(resp.Body)
		message = strings.TrimSpace(string(data))
	}
	err := fmt.Errorf("gemini status %d: %s", resp.StatusCode, message)
	return &TransportError{Kind: classifyStatus(resp.StatusCode, message), ModelID: modelID, Err: err}
}

// classifyStatus maps HTTP outcomes to the transport error taxonomy shared
// by all providers.
func classifyStatus(code int, message string) ErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorKindAuth
	case http.StatusNotFound:
		return ErrorKindNotFound
	case http.StatusTooManyRequests:
		return ErrorKindRateLimit
	case http.StatusBadRequest:
		lower := strings.ToLower(message)
		if strings.Contains(lower, "output token") || strings.Contains(lower, "max_tokens") || strings.Contains(lower, "maxoutputtokens") {
			return ErrorKindCapability
		}
		return ErrorKindServer
	default:
		return ErrorKindServer
	}
}

var _ Transport = (*GeminiTransport)(nil)
