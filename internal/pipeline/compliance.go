package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"creativeagent/internal/domain"
	"creativeagent/internal/infra"
	"creativeagent/internal/providers/model"
)

// Ruleset is the deterministic compliance configuration for one product
// scope. Disclaimers are keyed by language with "default" as the fallback.
type Ruleset struct {
	ID                  string
	ProhibitedPhrases   []string
	CautionedPhrases    []string
	RequiredDisclaimers map[string]string
}

// RequiredDisclaimer resolves the disclaimer text for a language.
func (r Ruleset) RequiredDisclaimer(lang string) string {
	if d, ok := r.RequiredDisclaimers[lang]; ok {
		return d
	}
	return r.RequiredDisclaimers["default"]
}

var baseProhibited = []string{
	"guaranteed returns",
	"guaranteed profit",
	"guaranteed income",
	"promised returns",
	"risk-free",
	"no risk",
	"always win",
	"100% safe",
}

var baseCautioned = []string{
	"get rich",
	"can't lose",
	"once in a lifetime",
}

var rulesets = map[string]Ruleset{
	"crypto": {
		ID:                "crypto",
		ProhibitedPhrases: baseProhibited,
		CautionedPhrases:  baseCautioned,
		RequiredDisclaimers: map[string]string{
			"default": "Capital at risk",
		},
	},
	"stocks": {
		ID:                "stocks",
		ProhibitedPhrases: baseProhibited,
		CautionedPhrases:  baseCautioned,
		RequiredDisclaimers: map[string]string{
			"default": "Your capital is at risk",
		},
	},
	"default": {
		ID:                "default",
		ProhibitedPhrases: baseProhibited,
		CautionedPhrases:  baseCautioned,
		RequiredDisclaimers: map[string]string{
			"default": "Your capital is at risk",
		},
	},
}

func rulesetIDForScope(scope string) string {
	if _, ok := rulesets[scope]; ok {
		return scope
	}
	return "default"
}

// RulesetByID looks up a ruleset, falling back to the default set.
func RulesetByID(id string) Ruleset {
	if rs, ok := rulesets[id]; ok {
		return rs
	}
	return rulesets["default"]
}

// Checker evaluates one option against the deterministic rule layer and a
// model-assisted advisory layer. It always returns a result: non-compliant
// options are surfaced, never discarded.
type Checker struct {
	client *model.Client
	logger infra.Logger
}

// NewChecker builds a compliance checker. The model client may be nil, in
// which case only the rule layer runs.
func NewChecker(client *model.Client, logger infra.Logger) *Checker {
	return &Checker{client: client, logger: logger}
}

// CheckRules runs the deterministic layer alone. It is exported because the
// pipeline degrades to rule-only results when the model layer cannot finish
// in time, and because its determinism is a tested property.
func CheckRules(opt *domain.CreativeOption, plan domain.GenerationPlan) domain.ComplianceResult {
	rs := RulesetByID(plan.RulesetID)
	status := domain.CompliancePass
	var flags []domain.ComplianceFlag

	prohibited := append(append([]string(nil), rs.ProhibitedPhrases...), plan.MustNotSay...)
	combined := strings.ToLower(allCopyText(opt))
	for _, phrase := range prohibited {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(phrase)) {
			flags = append(flags, domain.ComplianceFlag{
				Source:        domain.FlagSourceRule,
				Reason:        fmt.Sprintf("contains prohibited phrase %q", phrase),
				SuggestedEdit: suggestedEdit(phrase),
			})
			status = domain.MaxStatus(status, domain.ComplianceFail)
		}
	}
	for _, phrase := range rs.CautionedPhrases {
		if strings.Contains(combined, strings.ToLower(phrase)) {
			flags = append(flags, domain.ComplianceFlag{
				Source: domain.FlagSourceRule,
				Reason: fmt.Sprintf("contains cautioned phrase %q", phrase),
			})
			status = domain.MaxStatus(status, domain.ComplianceWarning)
		}
	}

	var disclaimers []string
	for _, lang := range plan.Languages {
		disclaimer := rs.RequiredDisclaimer(lang)
		if disclaimer == "" {
			continue
		}
		disclaimers = append(disclaimers, disclaimer)
		langText := strings.ToLower(copyTextForLanguage(opt, lang))
		if !strings.Contains(langText, strings.ToLower(disclaimer)) {
			flags = append(flags, domain.ComplianceFlag{
				Source:        domain.FlagSourceRule,
				Reason:        fmt.Sprintf("missing required disclaimer %q in %s copy", disclaimer, lang),
				SuggestedEdit: fmt.Sprintf("append %q to the %s primary text or secondary line", disclaimer, lang),
			})
			status = domain.MaxStatus(status, domain.ComplianceFail)
		}
	}

	return domain.ComplianceResult{
		Status:              status,
		Flags:               flags,
		RequiredDisclaimers: dedupe(disclaimers),
	}
}

// Check runs both layers. The returned note is non-empty when the model
// layer was skipped or failed; the pipeline records it in the audit so no
// degradation goes unflagged.
func (c *Checker) Check(ctx context.Context, opt *domain.CreativeOption, plan domain.GenerationPlan) (domain.ComplianceResult, string) {
	result := CheckRules(opt, plan)
	if c.client == nil {
		return result, ""
	}

	modelFlags, err := c.modelCheck(ctx, opt, plan)
	if err != nil {
		c.logger.Warn().Err(err).Str("option_id", opt.OptionID).Msg("compliance: model-assisted layer failed, keeping rule result")
		return result, fmt.Sprintf("compliance model layer skipped for option %s: %v", opt.OptionID, err)
	}
	for _, f := range modelFlags {
		result.Flags = append(result.Flags, f)
		// Advisory layer raises severity to at most warning and never
		// downgrades a rule-layer fail.
		result.Status = domain.MaxStatus(result.Status, domain.ComplianceWarning)
	}
	return result, ""
}

type modelCheckPayload struct {
	Flags []struct {
		Reason        string `json:"reason"`
		SuggestedEdit string `json:"suggested_edit"`
	} `json:"flags"`
	Severity string `json:"severity"`
	Notes    string `json:"notes"`
}

func (c *Checker) modelCheck(ctx context.Context, opt *domain.CreativeOption, plan domain.GenerationPlan) ([]domain.ComplianceFlag, error) {
	completion, err := c.client.Complete(ctx, model.CompleteRequest{
		System:          complianceSystemPrompt,
		Prompt:          complianceUserPrompt(opt, plan),
		MaxOutputTokens: 1024,
		Temperature:     0.2,
	})
	if err != nil {
		return nil, err
	}
	var payload modelCheckPayload
	if err := json.Unmarshal(completion.JSON, &payload); err != nil {
		return nil, fmt.Errorf("decode compliance payload: %w", err)
	}
	flags := make([]domain.ComplianceFlag, 0, len(payload.Flags))
	for _, f := range payload.Flags {
		reason := strings.TrimSpace(f.Reason)
		if reason == "" {
			continue
		}
		flags = append(flags, domain.ComplianceFlag{
			Source:        domain.FlagSourceModel,
			Reason:        reason,
			SuggestedEdit: strings.TrimSpace(f.SuggestedEdit),
		})
	}
	return flags, nil
}

const complianceSystemPrompt = `You are a compliance reviewer for financial marketing. Check creative copy for regulatory and brand-tone issues not caught by fixed phrase rules: implied certainty about returns, misleading urgency, missing risk context, overpromising imagery. Respond strictly with JSON: {"flags":[{"reason":string,"suggested_edit":string}],"severity":"high|medium|low","notes":string}. Return an empty flags array when the copy is clean.`

func complianceUserPrompt(opt *domain.CreativeOption, plan domain.GenerationPlan) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Product: %s\nConcept: %s\n", plan.ProductScope, opt.ConceptName)
	for _, lang := range plan.Languages {
		if cv, ok := opt.Copy[lang]; ok {
			fmt.Fprintf(sb, "[%s] headline: %s | text: %s | cta: %s\n", lang, cv.Headline, cv.PrimaryText, cv.CTA)
		}
	}
	sb.WriteString("Identify compliance issues. Return JSON only.")
	return sb.String()
}

func suggestedEdit(phrase string) string {
	lower := strings.ToLower(phrase)
	switch {
	case strings.Contains(lower, "guaranteed"), strings.Contains(lower, "promised"):
		return "replace the guarantee with potential-focused language or remove the claim"
	case strings.Contains(lower, "risk-free"), strings.Contains(lower, "no risk"), strings.Contains(lower, "safe"):
		return "remove the safety claim; all investments carry risk"
	default:
		return "remove the phrase and focus on features and education"
	}
}

func allCopyText(opt *domain.CreativeOption) string {
	parts := make([]string, 0, len(opt.Copy)*4)
	for _, cv := range opt.Copy {
		parts = append(parts, cv.PrimaryText, cv.Headline, cv.SecondaryLine, cv.CTA)
	}
	return strings.Join(parts, " ")
}

func copyTextForLanguage(opt *domain.CreativeOption, lang string) string {
	cv, ok := opt.Copy[lang]
	if !ok {
		return ""
	}
	return strings.Join([]string{cv.PrimaryText, cv.Headline, cv.SecondaryLine, cv.CTA}, " ")
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
