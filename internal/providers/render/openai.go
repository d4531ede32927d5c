package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	openAIDefaultTimeout = 60 * time.Second
	openAIProviderName   = "openai"
	defaultOpenAIModel   = "dall-e-3"
	openAIPromptLimit    = 4000
)

// OpenAIOptions configures the OpenAI image renderer.
type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAIRenderer calls the images generations API. Aspect ratios are mapped
// to the closest size the model supports.
type OpenAIRenderer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type openAIImageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Quality string `json:"quality,omitempty"`
	N       int    `json:"n"`
}

type openAIImageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAIRenderer builds the renderer with sane defaults.
func NewOpenAIRenderer(opts OpenAIOptions) (*OpenAIRenderer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAIRenderer{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

func (r *OpenAIRenderer) Name() string {
	return openAIProviderName
}

func (r *OpenAIRenderer) Render(ctx context.Context, req Request) Result {
	prompt := req.Prompt
	if req.NegativePrompt != "" {
		prompt = fmt.Sprintf("%s. Avoid: %s", prompt, req.NegativePrompt)
	}
	if len(prompt) > openAIPromptLimit {
		prompt = prompt[:openAIPromptLimit]
	}
	payload := openAIImageRequest{
		Model:   r.model,
		Prompt:  prompt,
		Size:    sizeForAspect(req.AspectRatio),
		Quality: "standard",
		N:       1,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return Result{Status: StatusFailed, Err: fmt.Sprintf("encode request: %v", err)}
	}
	endpoint := fmt.Sprintf("%s/images/generations", r.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return Result{Status: StatusFailed, Err: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Result{Status: StatusUnavailable, Err: err.Error()}
		}
		return Result{Status: StatusFailed, Err: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var out openAIImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{Status: StatusFailed, Err: fmt.Sprintf("decode response: %v", err)}
	}
	if resp.StatusCode >= 300 {
		return Result{Status: StatusFailed, Err: fmt.Sprintf("openai status %d: %s", resp.StatusCode, out.Error.Message)}
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return Result{Status: StatusFailed, Err: "no image returned"}
	}
	return Result{URI: out.Data[0].URL, Status: StatusCompleted}
}

// sizeForAspect maps aspect ratios to supported generation sizes.
func sizeForAspect(aspect string) string {
	switch aspect {
	case "9:16", "4:5":
		return "1024x1792"
	case "16:9":
		return "1792x1024"
	default:
		return "1024x1024"
	}
}

var _ Renderer = (*OpenAIRenderer)(nil)
