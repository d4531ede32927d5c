package retrieval

import (
	"context"
	"sort"
	"strings"

	"creativeagent/internal/domain"
)

// StaticRetriever serves a fixed in-memory corpus. It is the default
// collaborator for development and tests; scoring is plain keyword overlap
// with stable tie-breaks, so results are deterministic for a fixed plan.
type StaticRetriever struct {
	snippets []Snippet
	bounds   Bounds
}

// NewStaticRetriever builds a retriever over the given corpus. A nil corpus
// falls back to the built-in starter corpus.
func NewStaticRetriever(corpus []Snippet, bounds Bounds) *StaticRetriever {
	if corpus == nil {
		corpus = StarterCorpus()
	}
	return &StaticRetriever{snippets: corpus, bounds: bounds}
}

func (r *StaticRetriever) Retrieve(ctx context.Context, plan domain.GenerationPlan) (Context, error) {
	if err := ctx.Err(); err != nil {
		return Context{}, err
	}
	query := strings.ToLower(strings.Join([]string{plan.ProductScope, plan.CampaignGoal, plan.StyleGuidance}, " "))
	terms := strings.Fields(query)

	type scored struct {
		snippet Snippet
		score   int
	}
	perKind := map[Kind][]scored{}
	for _, s := range r.snippets {
		sc := scoreSnippet(s, terms, plan)
		perKind[s.Kind] = append(perKind[s.Kind], scored{snippet: s, score: sc})
	}

	// Per-kind quotas keep the context balanced: brand and product first,
	// tone and segment as supporting voices.
	quotas := []struct {
		kind Kind
		n    int
	}{
		{KindBrand, 3},
		{KindTone, 2},
		{KindProduct, 3},
		{KindSegment, 2},
	}

	var ordered []Snippet
	for _, q := range quotas {
		list := perKind[q.kind]
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].score != list[j].score {
				return list[i].score > list[j].score
			}
			return list[i].snippet.ID < list[j].snippet.ID
		})
		for i := 0; i < len(list) && i < q.n; i++ {
			ordered = append(ordered, list[i].snippet)
		}
	}
	return Context{Snippets: r.bounds.apply(ordered)}, nil
}

func scoreSnippet(s Snippet, terms []string, plan domain.GenerationPlan) int {
	text := strings.ToLower(s.Text + " " + s.Section)
	score := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			score++
		}
	}
	if s.Kind == KindProduct && strings.Contains(text, strings.ToLower(plan.ProductScope)) {
		score += 5
	}
	if s.Kind == KindSegment && plan.SegmentID != "" && strings.Contains(text, strings.ToLower(plan.SegmentID)) {
		score += 5
	}
	return score
}

// StarterCorpus is a small built-in brand corpus used when no external
// corpus is configured. Text is intentionally generic so it can be swapped
// for real brand material without touching the pipeline.
func StarterCorpus() []Snippet {
	return []Snippet{
		{
			ID:      "brand_001",
			Doc:     "Brand Book",
			Kind:    KindBrand,
			Section: "Visual Identity",
			Text:    "Brand colors: primary blue (#1E6FE0), secondary green (#3CB371). Typography: bold, modern sans-serif. Maintain high contrast for accessibility.",
		},
		{
			ID:      "brand_002",
			Doc:     "Brand Book",
			Kind:    KindBrand,
			Section: "Imagery",
			Text:    "Imagery direction: clean, premium, real people over stock cliches. Generous whitespace, single focal subject, soft studio lighting.",
		},
		{
			ID:      "tone_001",
			Doc:     "Tone of Voice Guide",
			Kind:    KindTone,
			Section: "Core Principles",
			Text:    "Voice: friendly yet professional. Empower with knowledge, avoid jargon, use clear and confident language. Never make promises or guarantees.",
		},
		{
			ID:      "product_crypto_001",
			Doc:     "Product Catalog",
			Kind:    KindProduct,
			Section: "crypto",
			Text:    "Product: crypto. Trade 70+ cryptocurrencies, 24/7 market access, copy-portfolio tools. Crypto assets are highly volatile; capital at risk disclaimers are mandatory.",
		},
		{
			ID:      "product_stocks_001",
			Doc:     "Product Catalog",
			Kind:    KindProduct,
			Section: "stocks",
			Text:    "Product: stocks. Fractional shares from small amounts, zero-commission tiers, long-term portfolio building. Past performance is not indicative of future results.",
		},
		{
			ID:      "segment_default_001",
			Doc:     "Segments",
			Kind:    KindSegment,
			Section: "default",
			Text:    "Default segment: general audience. Focus on accessibility and education; address the objection \"is it safe?\" early.",
		},
		{
			ID:      "segment_new_investors_001",
			Doc:     "Segments",
			Kind:    KindSegment,
			Section: "new_investors",
			Text:    "Segment new_investors: tech-savvy, starting with small amounts, overwhelmed by complexity. Preferred tone: friendly, educational, no pressure.",
		},
	}
}

var _ Retriever = (*StaticRetriever)(nil)
