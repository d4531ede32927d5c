package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	openAIDefaultTimeout = 30 * time.Second
	openAIProviderName   = "openai"
)

// OpenAIOptions configures the OpenAI transport.
type OpenAIOptions struct {
	APIKey       string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
}

// OpenAITransport speaks the chat completions API over plain HTTP.
type OpenAITransport struct {
	apiKey       string
	baseURL      string
	organization string
	client       *http.Client
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// NewOpenAITransport builds an OpenAI transport with sane defaults.
func NewOpenAITransport(opts OpenAIOptions) (*OpenAITransport, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAITransport{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
	}, nil
}

func (t *OpenAITransport) Name() string {
	return openAIProviderName
}

func (t *OpenAITransport) Send(ctx context.Context, req SendRequest) (string, error) {
	messages := make([]openAIMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	payload := openAIChatRequest{
		Model:       req.ModelID,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", &TransportError{Kind: ErrorKindServer, ModelID: req.ModelID, Err: fmt.Errorf("encode request: %w", err)}
	}
	endpoint := fmt.Sprintf("%s/chat/completions", t.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", &TransportError{Kind: ErrorKindServer, ModelID: req.ModelID, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	if t.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", t.organization)
	}

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
	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransportError{Kind: ErrorKindServer, ModelID: req.ModelID, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Choices) == 0 {
		return "", &TransportError{Kind: ErrorKindServer, ModelID: req.ModelID, Err: errors.New("no choices returned")}
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", &TransportError{Kind: ErrorKindServer, ModelID: req.ModelID, Err: errors.New("empty response content")}
	}
	return text, nil
}

func (t *OpenAITransport) classifyError(resp *http.Response, modelID string) error {
	var apiErr openAIErrorResponse
	message := ""
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil {
		message = apiErr.Error.Message
	} else {
		data, _ := io.ReadAll(resp.Body)
		message = strings.TrimSpace(string(data))
	}
	err := fmt.Errorf("openai status %d: %s", resp.StatusCode, message)
	return &TransportError{Kind: classifyStatus(resp.StatusCode, message), ModelID: modelID, Err: err}
}

var _ Transport = (*OpenAITransport)(nil)
