package retrieval

import (
	"context"
	"strings"

	"creativeagent/internal/domain"
)

// Kind labels the provenance of a retrieved snippet.
type Kind string

const (
	KindBrand   Kind = "brand"
	KindTone    Kind = "tone"
	KindProduct Kind = "product"
	KindSegment Kind = "segment"
)

// Snippet is one retrieved piece of brand/product/segment text with
// provenance. The pipeline treats snippets as read-only.
type Snippet struct {
	ID      string `json:"id"`
	Doc     string `json:"doc"`
	Kind    Kind   `json:"kind"`
	Section string `json:"section,omitempty"`
	Text    string `json:"text"`
}

// Context is the ordered, bounded set of snippets handed to generation.
type Context struct {
	Snippets []Snippet
}

// SourceIDs lists snippet ids in order, for the response audit record.
func (c Context) SourceIDs() []string {
	ids := make([]string, 0, len(c.Snippets))
	for _, s := range c.Snippets {
		ids = append(ids, s.ID)
	}
	return ids
}

// Format renders the context for inclusion in a generation prompt, grouped
// by provenance kind in a stable order.
func (c Context) Format() string {
	if len(c.Snippets) == 0 {
		return ""
	}
	sb := &strings.Builder{}
	for _, kind := range []Kind{KindBrand, KindTone, KindProduct, KindSegment} {
		wroteHeader := false
		for _, s := range c.Snippets {
			if s.Kind != kind {
				continue
			}
			if !wroteHeader {
				sb.WriteString("\n=== ")
				sb.WriteString(strings.ToUpper(string(kind)))
				sb.WriteString(" SOURCES ===\n")
				wroteHeader = true
			}
			sb.WriteString("[")
			sb.WriteString(s.ID)
			sb.WriteString("] ")
			sb.WriteString(s.Doc)
			if s.Section != "" {
				sb.WriteString(" - ")
				sb.WriteString(s.Section)
			}
			sb.WriteString("\n")
			sb.WriteString(s.Text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Retriever returns the bounded context for a plan. Implementations must be
// deterministic for a fixed plan and a fixed underlying corpus so that
// generation is reproducible when combined with a fixed seed.
type Retriever interface {
	Retrieve(ctx context.Context, plan domain.GenerationPlan) (Context, error)
}

// Bounds caps what a retriever may return so prompts stay inside model
// context limits.
type Bounds struct {
	MaxSnippets   int
	MaxTotalBytes int
}

// DefaultBounds are generous enough for a full brief while staying well
// under typical context windows.
func DefaultBounds() Bounds {
	return Bounds{MaxSnippets: 8, MaxTotalBytes: 8192}
}

// apply truncates an ordered snippet list to the configured bounds.
func (b Bounds) apply(snippets []Snippet) []Snippet {
	maxSnippets := b.MaxSnippets
	if maxSnippets <= 0 {
		maxSnippets = DefaultBounds().MaxSnippets
	}
	maxBytes := b.MaxTotalBytes
	if maxBytes <= 0 {
		maxBytes = DefaultBounds().MaxTotalBytes
	}
	out := make([]Snippet, 0, len(snippets))
	total := 0
	for _, s := range snippets {
		if len(out) >= maxSnippets {
			break
		}
		if total+len(s.Text) > maxBytes && len(out) > 0 {
			break
		}
		out = append(out, s)
		total += len(s.Text)
	}
	return out
}
