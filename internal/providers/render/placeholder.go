package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"creativeagent/internal/storage"
)

const placeholderProviderName = "placeholder"

// PlaceholderRenderer produces deterministic placeholder assets so the rest
// of the pipeline stays fully exercised without an image API key. The same
// prompt and seed always yield the same URI.
type PlaceholderRenderer struct {
	store   *storage.FileStore
	baseURL string
}

// NewPlaceholderRenderer builds the renderer. The store may be nil, in which
// case only a URI is produced and nothing is written.
func NewPlaceholderRenderer(store *storage.FileStore, baseURL string) *PlaceholderRenderer {
	return &PlaceholderRenderer{store: store, baseURL: strings.TrimRight(baseURL, "/")}
}

func (r *PlaceholderRenderer) Name() string {
	return placeholderProviderName
}

func (r *PlaceholderRenderer) Render(ctx context.Context, req Request) Result {
	if err := ctx.Err(); err != nil {
		return Result{Status: StatusUnavailable, Err: err.Error()}
	}
	seed := deterministicSeed(req.Prompt, req.AspectRatio, req.RequestID, req.Seed)
	key := fmt.Sprintf("placeholders/%s/%s.txt", req.RequestID, seed)
	if r.store != nil {
		body := placeholderBody(req, seed)
		savedKey, err := r.store.Write(ctx, key, []byte(body))
		if err != nil {
			return Result{Status: StatusFailed, Err: err.Error()}
		}
		key = savedKey
	}
	uri := key
	if r.baseURL != "" {
		uri = r.baseURL + "/" + key
	}
	return Result{URI: uri, Status: StatusCompleted}
}

func placeholderBody(req Request, seed string) string {
	lines := []string{
		"Placeholder creative asset",
		"Seed: " + seed,
		"Aspect: " + req.AspectRatio,
		"Prompt: " + strings.TrimSpace(req.Prompt),
		"",
		"This placeholder stands in for rendered image bytes until a real",
		"image provider is configured.",
	}
	return strings.Join(lines, "\n")
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(hasher, "%v|", part)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

var _ Renderer = (*PlaceholderRenderer)(nil)
