package pipeline

import (
	"sort"
	"strings"

	"creativeagent/internal/domain"
)

// Rank scores every option in place and orders the slice. Ranking is fully
// deterministic for a fixed input: no model calls, no randomness. Options
// are never removed; a failing option is ranked last, not dropped.
func Rank(options []*domain.CreativeOption, plan domain.GenerationPlan) {
	for _, opt := range options {
		opt.Scores = scoreOption(opt, options, plan)
	}
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		aFailed := a.Compliance.Status == domain.ComplianceFail
		bFailed := b.Compliance.Status == domain.ComplianceFail
		if aFailed != bFailed {
			return !aFailed
		}
		if a.Scores.Aggregate != b.Scores.Aggregate {
			return a.Scores.Aggregate > b.Scores.Aggregate
		}
		return a.OptionID < b.OptionID
	})
}

func scoreOption(opt *domain.CreativeOption, all []*domain.CreativeOption, plan domain.GenerationPlan) domain.ScoreSet {
	s := domain.ScoreSet{
		BrandFit:            brandFitScore(opt, plan),
		Clarity:             clarityScore(opt, plan),
		ConversionPotential: conversionScore(opt, plan),
		Compliance:          complianceScore(opt.Compliance.Status),
		Novelty:             noveltyScore(opt, all, plan),
	}
	w := plan.Weights
	s.Aggregate = round2(s.BrandFit*w.BrandFit +
		s.Clarity*w.Clarity +
		s.ConversionPotential*w.ConversionPotential +
		s.Compliance*w.Compliance +
		s.Novelty*w.Novelty)
	return s
}

func complianceScore(status domain.ComplianceStatus) float64 {
	switch status {
	case domain.CompliancePass:
		return 10
	case domain.ComplianceWarning:
		return 5
	default:
		return 0
	}
}

var brandKeywords = []string{
	"invest", "portfolio", "market", "trade", "trading",
	"grow", "learn", "access", "discover", "start",
}

// brandFitScore rewards copy that uses the platform's core vocabulary and
// echoes the requested tone.
func brandFitScore(opt *domain.CreativeOption, plan domain.GenerationPlan) float64 {
	text := strings.ToLower(allCopyText(opt))
	score := 5.0
	for _, kw := range brandKeywords {
		if strings.Contains(text, kw) {
			score++
		}
	}
	if plan.Tone != "" && strings.Contains(strings.ToLower(opt.Rationale), strings.ToLower(plan.Tone)) {
		score++
	}
	return clampScore(score)
}

// clarityScore favors primary text in the length band that reads well in
// feed placements.
func clarityScore(opt *domain.CreativeOption, plan domain.GenerationPlan) float64 {
	var total, count float64
	for _, lang := range plan.Languages {
		cv, ok := opt.Copy[lang]
		if !ok {
			continue
		}
		n := len(strings.TrimSpace(cv.PrimaryText))
		switch {
		case n >= 50 && n <= 150:
			total += 9
		case n >= 30 && n <= 200:
			total += 7
		default:
			total += 5
		}
		count++
	}
	if count == 0 {
		return 5
	}
	return clampScore(total / count)
}

var ctaKeywords = []string{
	"start", "join", "try", "get", "explore", "discover", "learn", "sign up", "download",
}

func conversionScore(opt *domain.CreativeOption, plan domain.GenerationPlan) float64 {
	score := 6.0
	for _, lang := range plan.Languages {
		cv, ok := opt.Copy[lang]
		if !ok || cv.CTA == "" {
			continue
		}
		cta := strings.ToLower(cv.CTA)
		for _, kw := range ctaKeywords {
			if strings.Contains(cta, kw) {
				score += 1.5
				break
			}
		}
		break
	}
	if opt.Fallback {
		score -= 2
	}
	return clampScore(score)
}

// noveltyScore measures how far an option's primary-language text sits from
// its siblings using token-set overlap. A lone option gets a fixed 8.
func noveltyScore(opt *domain.CreativeOption, all []*domain.CreativeOption, plan domain.GenerationPlan) float64 {
	if len(all) <= 1 {
		return 8
	}
	own := tokenSet(opt.Copy[plan.PrimaryLanguage].PrimaryText)
	maxOverlap := 0.0
	for _, other := range all {
		if other == opt {
			continue
		}
		overlap := jaccard(own, tokenSet(other.Copy[plan.PrimaryLanguage].PrimaryText))
		if overlap > maxOverlap {
			maxOverlap = overlap
		}
	}
	return clampScore(10 * (1 - maxOverlap))
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,!?;:\"'()")
		if tok != "" {
			out[tok] = struct{}{}
		}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return round2(v)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
