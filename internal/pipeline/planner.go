package pipeline

import (
	"fmt"
	"hash/fnv"
	"strings"

	"golang.org/x/text/language"

	"creativeagent/internal/domain"
)

// Planner normalizes a raw brief into a fully-resolved generation plan.
// Planning is deterministic: the same request always yields the same plan.
type Planner struct {
	weights domain.ScoreWeights
}

// NewPlanner builds a planner with the given score weight configuration.
// Zero weights fall back to the defaults.
func NewPlanner(weights domain.ScoreWeights) *Planner {
	if weights == (domain.ScoreWeights{}) {
		weights = domain.DefaultScoreWeights()
	}
	return &Planner{weights: weights}
}

// defaultDirections seed distinct creative angles when the brief gives none.
var defaultDirections = []string{
	"Educational",
	"Benefit-focused",
	"Social proof",
	"Problem-solution",
	"Aspirational",
	"Behind-the-scenes",
}

// BuildPlan validates and normalizes the request. The returned plan is
// never mutated afterwards.
func (p *Planner) BuildPlan(req domain.GenerationRequest) (domain.GenerationPlan, error) {
	if err := req.Validate(); err != nil {
		return domain.GenerationPlan{}, err
	}

	languages, err := normalizeLanguages(req.Languages)
	if err != nil {
		return domain.GenerationPlan{}, err
	}

	numOptions := req.NumOptions
	if numOptions == 0 {
		numOptions = domain.DefaultOptions
	}

	scope := strings.ToLower(strings.TrimSpace(req.ProductScope))
	plan := domain.GenerationPlan{
		ProductScope:    scope,
		Channel:         req.Channel,
		Asset:           req.Asset,
		Languages:       languages,
		PrimaryLanguage: languages[0],
		NumOptions:      numOptions,
		StyleGuidance:   strings.TrimSpace(req.StyleGuidance),
		CampaignGoal:    strings.TrimSpace(req.CampaignGoal),
		Tone:            strings.TrimSpace(req.Tone),
		SegmentID:       strings.TrimSpace(req.SegmentID),
		MustSay:         append([]string(nil), req.MustSay...),
		MustNotSay:      append([]string(nil), req.MustNotSay...),
		ProductFacts:    productFacts(scope),
		SegmentFacts:    segmentFacts(req.SegmentID),
		RulesetID:       rulesetIDForScope(scope),
		Directions:      defaultDirections[:minInt(numOptions, len(defaultDirections))],
		Weights:         p.weights,
		Seed:            planSeed(req),
	}
	return plan, nil
}

// normalizeLanguages canonicalizes tags (e.g. "EN" -> "en", "de-DE" -> "de")
// and deduplicates while preserving the caller's order. The first language
// is the primary language used for distinctness checks.
func normalizeLanguages(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidLanguage, l)
		}
		base, _ := tag.Base()
		code := base.String()
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	if len(out) == 0 {
		return nil, domain.ErrNoLanguages
	}
	return out, nil
}

func productFacts(scope string) []string {
	switch scope {
	case "crypto":
		return []string{
			"70+ cryptocurrencies available",
			"24/7 market access",
			"copy-portfolio tools for beginners",
		}
	case "stocks":
		return []string{
			"fractional shares from small amounts",
			"zero-commission tiers",
			"long-term portfolio building",
		}
	case "etfs":
		return []string{
			"diversified baskets in one trade",
			"low ongoing fees",
			"thematic and index options",
		}
	default:
		return []string{"broad asset selection", "accessible entry amounts"}
	}
}

func segmentFacts(segmentID string) []string {
	switch strings.TrimSpace(segmentID) {
	case "":
		return []string{"general audience", "focus on accessibility and education"}
	case "new_investors":
		return []string{
			"tech-savvy, starting with small amounts",
			"overwhelmed by complexity",
			"preferred tone: friendly, educational",
		}
	default:
		return []string{fmt.Sprintf("segment %s", segmentID), "tailor messaging to the segment brief"}
	}
}

// planSeed derives a stable seed from the request when none is given, so a
// repeated brief reproduces the same downstream randomness.
func planSeed(req domain.GenerationRequest) int64 {
	if req.Seed != nil {
		return *req.Seed
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%v|%d", req.ProductScope, req.Channel, req.Asset, req.Languages, req.NumOptions)
	return int64(h.Sum64())
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
