package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"creativeagent/internal/domain"
	"creativeagent/internal/infra"
)

// ModelSpec declares one model in the preference order together with the
// hard output-token limit the client clamps against.
type ModelSpec struct {
	ID              string
	MaxOutputTokens int
}

// Backend pairs a model with the transport that can reach it, so mixed
// provider chains (for example Gemini first, OpenAI second) stay a list
// edit rather than a control-flow change.
type Backend struct {
	Transport Transport
	Model     ModelSpec
}

// Options configures the model client.
type Options struct {
	Backends []Backend
	Logger   *infra.Logger
}

// Client turns unreliable free-text model replies into validated JSON.
// It walks the backend preference order on hard transport failures, clamps
// oversized token budgets instead of failing, and performs at most one
// repair round-trip when the reply does not parse.
type Client struct {
	backends []Backend
	logger   infra.Logger
}

// CompleteRequest describes one JSON-producing completion call.
type CompleteRequest struct {
	System          string
	Prompt          string
	MaxOutputTokens int
	Temperature     float64
}

// Completion is the validated result of a Complete call.
type Completion struct {
	JSON     json.RawMessage
	RawText  string
	ModelID  string
	Provider string
	Clamped  bool
	Repaired bool
}

// NewClient constructs a model client. At least one backend is required.
func NewClient(opts Options) (*Client, error) {
	if len(opts.Backends) == 0 {
		return nil, errors.New("model: at least one backend is required")
	}
	for _, b := range opts.Backends {
		if b.Transport == nil {
			return nil, fmt.Errorf("model: backend %q has no transport", b.Model.ID)
		}
	}
	logger := infra.NopLogger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{backends: opts.Backends, logger: logger}, nil
}

// Models reports the configured preference order, for audit records.
func (c *Client) Models() []string {
	ids := make([]string, 0, len(c.backends))
	for _, b := range c.backends {
		ids = append(ids, b.Model.ID)
	}
	return ids
}

// Complete sends the prompt to the first backend, falling through to the
// next on hard transport failures. A reply that does not parse as JSON gets
// exactly one repair attempt against the same model; if that also fails the
// call surfaces a *ParseError without trying further backends.
func (c *Client) Complete(ctx context.Context, req CompleteRequest) (*Completion, error) {
	var lastErr error
	for _, backend := range c.backends {
		maxTokens := req.MaxOutputTokens
		clamped := false
		if limit := backend.Model.MaxOutputTokens; limit > 0 && maxTokens > limit {
			maxTokens = limit
			clamped = true
			c.logger.Debug().
				Str("model", backend.Model.ID).
				Int("requested", req.MaxOutputTokens).
				Int("limit", limit).
				Msg("model: clamped output token budget")
		}

		raw, err := backend.Transport.Send(ctx, SendRequest{
			System:      req.System,
			Prompt:      req.Prompt,
			ModelID:     backend.Model.ID,
			MaxTokens:   maxTokens,
			Temperature: req.Temperature,
		})
		if err != nil {
			var te *TransportError
			if errors.As(err, &te) && te.Kind == ErrorKindCapability && backend.Model.MaxOutputTokens > 0 && !clamped {
				// The declared limit was stale; retry once at the hard limit.
				clamped = true
				raw, err = backend.Transport.Send(ctx, SendRequest{
					System:      req.System,
					Prompt:      req.Prompt,
					ModelID:     backend.Model.ID,
					MaxTokens:   backend.Model.MaxOutputTokens,
					Temperature: req.Temperature,
				})
			}
			if err != nil {
				lastErr = err
				c.logger.Warn().Err(err).Str("model", backend.Model.ID).Msg("model: backend failed, trying next")
				continue
			}
		}

		completion, err := c.finishCompletion(ctx, backend, req, raw, clamped)
		if err != nil {
			return nil, err
		}
		return completion, nil
	}
	if lastErr == nil {
		lastErr = domain.ErrModelsExhausted
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrModelsExhausted, lastErr)
}

func (c *Client) finishCompletion(ctx context.Context, backend Backend, req CompleteRequest, raw string, clamped bool) (*Completion, error) {
	fragment := ExtractJSON(raw)
	if fragment != "" && json.Valid([]byte(fragment)) {
		return &Completion{
			JSON:     json.RawMessage(fragment),
			RawText:  raw,
			ModelID:  backend.Model.ID,
			Provider: backend.Transport.Name(),
			Clamped:  clamped,
		}, nil
	}

	c.logger.Warn().Str("model", backend.Model.ID).Msg("model: invalid JSON in response, attempting repair")
	repaired, err := backend.Transport.Send(ctx, SendRequest{
		System:      req.System + "\n\nCRITICAL: Return ONLY valid JSON. No markdown code blocks, no explanations, no text outside the JSON value.",
		Prompt:      repairPrompt(raw),
		ModelID:     backend.Model.ID,
		MaxTokens:   maxTokensFor(backend.Model, req.MaxOutputTokens),
		Temperature: 0.2,
	})
	if err != nil {
		return nil, &ParseError{RawText: raw, Err: fmt.Errorf("repair attempt failed: %w", err)}
	}
	fragment = ExtractJSON(repaired)
	if fragment == "" || !json.Valid([]byte(fragment)) {
		return nil, &ParseError{RawText: repaired, Err: errors.New("repaired response is still not valid JSON")}
	}
	return &Completion{
		JSON:     json.RawMessage(fragment),
		RawText:  repaired,
		ModelID:  backend.Model.ID,
		Provider: backend.Transport.Name(),
		Clamped:  clamped,
		Repaired: true,
	}, nil
}

func repairPrompt(invalid string) string {
	sb := &strings.Builder{}
	sb.WriteString("The previous response contained invalid JSON. Return the corrected JSON only:\n\n")
	sb.WriteString(invalid)
	return sb.String()
}

func maxTokensFor(spec ModelSpec, requested int) int {
	if spec.MaxOutputTokens > 0 && requested > spec.MaxOutputTokens {
		return spec.MaxOutputTokens
	}
	return requested
}
