package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"creativeagent/internal/domain"
	"creativeagent/internal/infra"
	"creativeagent/internal/providers/model"
	"creativeagent/internal/retrieval"
)

// regenerationBudget bounds how many extra model calls the generator spends
// replacing duplicate or invalid drafts before accepting a shortfall.
const regenerationBudget = 2

// Generator produces creative option drafts from the plan and retrieved
// context. Model failures degrade to a marked deterministic fallback option
// rather than an empty response.
type Generator struct {
	client *model.Client
	logger infra.Logger
}

// GenerationOutcome carries the drafts plus every degradation marker the
// audit record needs.
type GenerationOutcome struct {
	Options      []*domain.CreativeOption
	Shortfall    int
	UsedFallback bool
	Clamped      bool
	Repaired     bool
	ModelID      string
	Provider     string
}

// NewGenerator builds a generator. The client may be nil for offline use;
// every request then produces fallback options.
func NewGenerator(client *model.Client, logger infra.Logger) *Generator {
	return &Generator{client: client, logger: logger}
}

// Generate asks the model for all options in one batched call, validates and
// deduplicates the drafts, and spends a bounded regeneration budget filling
// slots lost to duplicates or invalid copy. It never returns zero options.
func (g *Generator) Generate(ctx context.Context, plan domain.GenerationPlan, rctx retrieval.Context) (*GenerationOutcome, error) {
	outcome := &GenerationOutcome{}
	if g.client == nil {
		return g.fallbackOutcome(plan, "no model configured"), nil
	}

	drafts, err := g.requestDrafts(ctx, plan, rctx, plan.NumOptions, nil, outcome)
	if err != nil {
		g.logger.Warn().Err(err).Msg("generator: model chain failed, using deterministic fallback")
		return g.fallbackOutcome(plan, err.Error()), nil
	}

	accepted, seen := acceptDistinct(drafts, plan, nil, plan.NumOptions)

	for retry := 0; len(accepted) < plan.NumOptions && retry < regenerationBudget; retry++ {
		missing := plan.NumOptions - len(accepted)
		g.logger.Info().
			Int("missing", missing).
			Int("retry", retry+1).
			Msg("generator: regenerating colliding or invalid drafts")
		more, err := g.requestDrafts(ctx, plan, rctx, missing, conceptNames(accepted), outcome)
		if err != nil {
			break
		}
		var added []*domain.CreativeOption
		added, seen = acceptDistinct(more, plan, seen, missing)
		accepted = append(accepted, added...)
	}

	if len(accepted) == 0 {
		return g.fallbackOutcome(plan, "model returned no usable options"), nil
	}

	assignOptionIDs(accepted)
	outcome.Options = accepted
	outcome.Shortfall = plan.NumOptions - len(accepted)
	return outcome, nil
}

// draftOption is the wire shape one option takes in the model reply.
type draftOption struct {
	ConceptName      string                        `json:"concept_name"`
	Rationale        string                        `json:"rationale"`
	AudienceFitNotes string                        `json:"audience_fit_notes"`
	Copy             map[string]domain.CopyVariant `json:"copy"`
	DesignSpec       domain.DesignSpec             `json:"design_spec"`
}

func (g *Generator) requestDrafts(ctx context.Context, plan domain.GenerationPlan, rctx retrieval.Context, count int, avoid []string, outcome *GenerationOutcome) ([]*domain.CreativeOption, error) {
	completion, err := g.client.Complete(ctx, model.CompleteRequest{
		System:          generatorSystemPrompt(plan, rctx),
		Prompt:          generatorUserPrompt(plan, count, avoid),
		MaxOutputTokens: 4096,
		Temperature:     0.9,
	})
	if err != nil {
		return nil, err
	}
	outcome.ModelID = completion.ModelID
	outcome.Provider = completion.Provider
	outcome.Clamped = outcome.Clamped || completion.Clamped
	outcome.Repaired = outcome.Repaired || completion.Repaired

	drafts, err := decodeDrafts(completion.JSON)
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

// decodeDrafts accepts the shapes models actually produce: a bare array, an
// object wrapping an "options" array or a single "option", and a bare option
// object.
func decodeDrafts(raw json.RawMessage) ([]*domain.CreativeOption, error) {
	var arr []draftOption
	if err := json.Unmarshal(raw, &arr); err == nil {
		return draftsToOptions(arr), nil
	}

	var wrapped struct {
		Options []draftOption `json:"options"`
		Option  *draftOption  `json:"option"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if len(wrapped.Options) > 0 {
			return draftsToOptions(wrapped.Options), nil
		}
		if wrapped.Option != nil && wrapped.Option.ConceptName != "" {
			return draftsToOptions([]draftOption{*wrapped.Option}), nil
		}
	}

	var single draftOption
	if err := json.Unmarshal(raw, &single); err == nil && single.ConceptName != "" {
		return draftsToOptions([]draftOption{single}), nil
	}
	return nil, fmt.Errorf("model reply matches no known option shape")
}

func draftsToOptions(drafts []draftOption) []*domain.CreativeOption {
	out := make([]*domain.CreativeOption, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, &domain.CreativeOption{
			ConceptName:      strings.TrimSpace(d.ConceptName),
			Rationale:        strings.TrimSpace(d.Rationale),
			AudienceFitNotes: strings.TrimSpace(d.AudienceFitNotes),
			Copy:             d.Copy,
			DesignSpec:       d.DesignSpec,
		})
	}
	return out
}

// acceptDistinct filters drafts down to valid, mutually distinct options.
// Distinctness compares the normalized concept name and the normalized
// primary-language primary text against everything accepted so far.
func acceptDistinct(drafts []*domain.CreativeOption, plan domain.GenerationPlan, seen map[string]struct{}, limit int) ([]*domain.CreativeOption, map[string]struct{}) {
	if seen == nil {
		seen = make(map[string]struct{})
	}
	var accepted []*domain.CreativeOption
	for _, d := range drafts {
		if len(accepted) >= limit {
			break
		}
		if !draftValid(d, plan.Languages) {
			continue
		}
		nameKey := "name:" + normalizeForComparison(d.ConceptName)
		textKey := "text:" + normalizeForComparison(d.Copy[plan.PrimaryLanguage].PrimaryText)
		if _, dup := seen[nameKey]; dup {
			continue
		}
		if _, dup := seen[textKey]; dup {
			continue
		}
		seen[nameKey] = struct{}{}
		seen[textKey] = struct{}{}
		accepted = append(accepted, d)
	}
	return accepted, seen
}

// draftValid requires a concept name and non-empty primary text plus
// headline in every requested language.
func draftValid(d *domain.CreativeOption, languages []string) bool {
	if d.ConceptName == "" {
		return false
	}
	for _, lang := range languages {
		cv, ok := d.Copy[lang]
		if !ok {
			return false
		}
		if strings.TrimSpace(cv.PrimaryText) == "" || strings.TrimSpace(cv.Headline) == "" {
			return false
		}
	}
	return true
}

func normalizeForComparison(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

func conceptNames(options []*domain.CreativeOption) []string {
	names := make([]string, 0, len(options))
	for _, o := range options {
		names = append(names, o.ConceptName)
	}
	return names
}

func assignOptionIDs(options []*domain.CreativeOption) {
	used := make(map[string]struct{}, len(options))
	for _, o := range options {
		id := uuid.NewString()
		for {
			if _, dup := used[id]; !dup {
				break
			}
			id = uuid.NewString()
		}
		used[id] = struct{}{}
		o.OptionID = id
	}
}

// fallbackOutcome builds one safe, template-driven option so a brief always
// yields something reviewable even with every model down.
func (g *Generator) fallbackOutcome(plan domain.GenerationPlan, reason string) *GenerationOutcome {
	opt := fallbackOption(plan)
	assignOptionIDs([]*domain.CreativeOption{opt})
	shortfall := plan.NumOptions - 1
	if shortfall < 0 {
		shortfall = 0
	}
	g.logger.Info().Str("reason", reason).Msg("generator: emitted fallback option")
	return &GenerationOutcome{
		Options:      []*domain.CreativeOption{opt},
		Shortfall:    shortfall,
		UsedFallback: true,
	}
}

func fallbackOption(plan domain.GenerationPlan) *domain.CreativeOption {
	title := cases.Title(language.English).String(plan.ProductScope)
	copyByLang := make(map[string]domain.CopyVariant, len(plan.Languages))
	disclaimer := RulesetByID(plan.RulesetID).RequiredDisclaimer(plan.PrimaryLanguage)
	for _, lang := range plan.Languages {
		copyByLang[lang] = domain.CopyVariant{
			PrimaryText:   fmt.Sprintf("Explore %s with tools built for every experience level. %s.", title, disclaimer),
			Headline:      fmt.Sprintf("Discover %s", title),
			SecondaryLine: "Start with an amount that suits you.",
			CTA:           "Learn more",
		}
	}
	return &domain.CreativeOption{
		ConceptName:      fmt.Sprintf("%s essentials", title),
		Rationale:        "Template-based concept produced while creative generation was unavailable.",
		AudienceFitNotes: "Neutral, education-first framing suitable for a broad audience.",
		Copy:             copyByLang,
		DesignSpec: domain.DesignSpec{
			Layout:           "centered headline over product visual",
			TypographyIntent: "clean sans-serif, high contrast",
			ImageryDirection: "abstract financial growth motif, brand palette",
			BrandColorNotes:  "primary brand color for CTA, neutral background",
		},
		Fallback: true,
	}
}

func generatorSystemPrompt(plan domain.GenerationPlan, rctx retrieval.Context) string {
	sb := &strings.Builder{}
	sb.WriteString("You are a senior creative strategist for a regulated financial trading platform. ")
	sb.WriteString("Produce advertising concepts that are distinct from each other, on-brand and compliant.\n\n")
	if formatted := rctx.Format(); formatted != "" {
		sb.WriteString(formatted)
		sb.WriteString("\n")
	}
	fmt.Fprintf(sb, "Product scope: %s\nChannel: %s\nAsset format: %s\n", plan.ProductScope, plan.Channel, plan.Asset)
	if plan.CampaignGoal != "" {
		fmt.Fprintf(sb, "Campaign goal: %s\n", plan.CampaignGoal)
	}
	if plan.Tone != "" {
		fmt.Fprintf(sb, "Tone: %s\n", plan.Tone)
	}
	if plan.StyleGuidance != "" {
		fmt.Fprintf(sb, "Style guidance: %s\n", plan.StyleGuidance)
	}
	if len(plan.ProductFacts) > 0 {
		fmt.Fprintf(sb, "Product facts: %s\n", strings.Join(plan.ProductFacts, "; "))
	}
	if len(plan.SegmentFacts) > 0 {
		fmt.Fprintf(sb, "Audience: %s\n", strings.Join(plan.SegmentFacts, "; "))
	}
	if len(plan.MustSay) > 0 {
		fmt.Fprintf(sb, "Must include: %s\n", strings.Join(plan.MustSay, "; "))
	}
	if len(plan.MustNotSay) > 0 {
		fmt.Fprintf(sb, "Never say: %s\n", strings.Join(plan.MustNotSay, "; "))
	}
	disclaimer := RulesetByID(plan.RulesetID).RequiredDisclaimer(plan.PrimaryLanguage)
	if disclaimer != "" {
		fmt.Fprintf(sb, "Every language's copy must contain the disclaimer %q.\n", disclaimer)
	}
	sb.WriteString("\nRespond with a JSON array of option objects. Each object has: ")
	sb.WriteString(`"concept_name", "rationale", "audience_fit_notes", `)
	fmt.Fprintf(sb, `"copy" (object keyed by language code, each value {"primary_text","headline","secondary_line","cta"}, languages: %s), `, strings.Join(plan.Languages, ", "))
	sb.WriteString(`"design_spec" ({"layout","typography_intent","imagery_direction","brand_color_usage_notes","animation_vibe"}). `)
	sb.WriteString("Return ONLY the JSON array.")
	return sb.String()
}

func generatorUserPrompt(plan domain.GenerationPlan, count int, avoid []string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Generate %d distinct creative options.\n", count)
	directions := plan.Directions
	if len(directions) > count {
		directions = directions[:count]
	}
	if len(directions) > 0 {
		fmt.Fprintf(sb, "Use one creative direction per option, in order: %s.\n", strings.Join(directions, ", "))
	}
	if len(avoid) > 0 {
		fmt.Fprintf(sb, "Do NOT reuse or resemble these existing concepts: %s.\n", strings.Join(avoid, "; "))
	}
	sb.WriteString("Each option must differ clearly in angle, headline and primary text.")
	return sb.String()
}
