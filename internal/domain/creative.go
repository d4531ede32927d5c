package domain

import (
	"strings"
	"time"
)

// Channel identifies the marketing channel a creative is produced for.
type Channel string

const (
	ChannelSocial  Channel = "social"
	ChannelEmail   Channel = "email"
	ChannelDisplay Channel = "display"
	ChannelVideo   Channel = "video"
)

// AssetFormat identifies the target asset size/medium.
type AssetFormat string

const (
	AssetSocial1x1  AssetFormat = "social_1x1"
	AssetSocial4x5  AssetFormat = "social_4x5"
	AssetStory9x16  AssetFormat = "story_9x16"
	AssetBanner16x9 AssetFormat = "banner_16x9"
	AssetMotionAd   AssetFormat = "motion_ad"
	AssetShortVideo AssetFormat = "short_video"
)

// AspectRatio maps the format to the aspect ratio handed to image providers.
func (f AssetFormat) AspectRatio() string {
	switch f {
	case AssetSocial4x5:
		return "4:5"
	case AssetStory9x16, AssetShortVideo:
		return "9:16"
	case AssetBanner16x9:
		return "16:9"
	default:
		return "1:1"
	}
}

// Motion reports whether the format needs a storyboard in addition to a
// single image prompt.
func (f AssetFormat) Motion() bool {
	switch f {
	case AssetMotionAd, AssetShortVideo, AssetStory9x16:
		return true
	default:
		return false
	}
}

// GenerationRequest is the raw creative brief. It is treated as immutable
// once planning begins; all normalization happens on the derived plan.
type GenerationRequest struct {
	ProductScope  string      `json:"product_scope"`
	Channel       Channel     `json:"channel"`
	Asset         AssetFormat `json:"asset"`
	Languages     []string    `json:"languages"`
	StyleGuidance string      `json:"style_guidance,omitempty"`
	CampaignGoal  string      `json:"campaign_goal,omitempty"`
	SegmentID     string      `json:"segment_id,omitempty"`
	Tone          string      `json:"tone,omitempty"`
	MustSay       []string    `json:"must_say,omitempty"`
	MustNotSay    []string    `json:"must_not_say,omitempty"`
	NumOptions    int         `json:"num_options"`
	Seed          *int64      `json:"seed,omitempty"`
}

// MaxOptions bounds how many creative options a single request may ask for.
const MaxOptions = 6

// DefaultOptions is used when the request leaves num_options unset.
const DefaultOptions = 3

// Validate rejects briefs the planner cannot normalize.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.ProductScope) == "" {
		return ErrProductScopeRequired
	}
	if len(r.Languages) == 0 {
		return ErrNoLanguages
	}
	if r.NumOptions < 0 || r.NumOptions > MaxOptions {
		return ErrOptionCountRange
	}
	return nil
}

// ScoreWeights drives the ranker's aggregate formula. Weights are carried on
// the plan so a request is scored with one fixed configuration.
type ScoreWeights struct {
	BrandFit            float64 `json:"brand_fit"`
	Clarity             float64 `json:"clarity"`
	ConversionPotential float64 `json:"conversion_potential"`
	Compliance          float64 `json:"compliance"`
	Novelty             float64 `json:"novelty"`
}

// DefaultScoreWeights weighs compliance and conversion ahead of novelty.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		BrandFit:            0.25,
		Clarity:             0.20,
		ConversionPotential: 0.25,
		Compliance:          0.20,
		Novelty:             0.10,
	}
}

// GenerationPlan is the normalized, fully-resolved form of a request.
// It is derived once per request and never mutated afterwards.
type GenerationPlan struct {
	ProductScope    string       `json:"product_scope"`
	Channel         Channel      `json:"channel"`
	Asset           AssetFormat  `json:"asset"`
	Languages       []string     `json:"languages"`
	PrimaryLanguage string       `json:"primary_language"`
	NumOptions      int          `json:"num_options"`
	StyleGuidance   string       `json:"style_guidance,omitempty"`
	CampaignGoal    string       `json:"campaign_goal,omitempty"`
	Tone            string       `json:"tone,omitempty"`
	SegmentID       string       `json:"segment_id,omitempty"`
	MustSay         []string     `json:"must_say,omitempty"`
	MustNotSay      []string     `json:"must_not_say,omitempty"`
	ProductFacts    []string     `json:"product_facts"`
	SegmentFacts    []string     `json:"segment_facts"`
	RulesetID       string       `json:"ruleset_id"`
	Directions      []string     `json:"directions"`
	Weights         ScoreWeights `json:"weights"`
	Seed            int64        `json:"seed"`
}

// CopyVariant is the per-language ad copy of one creative option.
type CopyVariant struct {
	PrimaryText   string `json:"primary_text"`
	Headline      string `json:"headline"`
	SecondaryLine string `json:"secondary_line,omitempty"`
	CTA           string `json:"cta,omitempty"`
}

// DesignSpec describes the visual direction of a creative option.
type DesignSpec struct {
	Layout           string `json:"layout"`
	TypographyIntent string `json:"typography_intent"`
	ImageryDirection string `json:"imagery_direction"`
	BrandColorNotes  string `json:"brand_color_usage_notes"`
	AnimationVibe    string `json:"animation_vibe,omitempty"`
}

// GenerationStatus tracks rendering progress on a PromptResult.
type GenerationStatus string

const (
	GenerationPending     GenerationStatus = "pending"
	GenerationCompleted   GenerationStatus = "completed"
	GenerationFailed      GenerationStatus = "failed"
	GenerationUnavailable GenerationStatus = "unavailable"
)

// StoryboardScene is one ordered frame of a motion storyboard.
type StoryboardScene struct {
	At           float64 `json:"t"`
	Visual       string  `json:"visual"`
	OnScreenText string  `json:"on_screen_text,omitempty"`
	Transition   string  `json:"transition,omitempty"`
}

// PromptResult holds the derived image/motion prompt for one asset slot and
// language, plus the renderer outcome once rendering ran.
type PromptResult struct {
	ImagePrompt    string            `json:"image_prompt"`
	NegativePrompt string            `json:"negative_prompt,omitempty"`
	AspectRatio    string            `json:"aspect_ratio"`
	Storyboard     []StoryboardScene `json:"storyboard,omitempty"`
	ImageURI       string            `json:"generated_image_uri,omitempty"`
	Status         GenerationStatus  `json:"generation_status"`
	ErrorMessage   string            `json:"error_message,omitempty"`
}

// ComplianceStatus forms a total order for blocking purposes:
// fail > warning > pass.
type ComplianceStatus string

const (
	CompliancePass    ComplianceStatus = "pass"
	ComplianceWarning ComplianceStatus = "warning"
	ComplianceFail    ComplianceStatus = "fail"
)

// Severity ranks statuses so layers can only raise, never lower, severity.
func (s ComplianceStatus) Severity() int {
	switch s {
	case ComplianceFail:
		return 2
	case ComplianceWarning:
		return 1
	default:
		return 0
	}
}

// MaxStatus returns the more severe of two statuses.
func MaxStatus(a, b ComplianceStatus) ComplianceStatus {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// FlagSource attributes a compliance flag to the layer that raised it.
type FlagSource string

const (
	FlagSourceRule  FlagSource = "rule"
	FlagSourceModel FlagSource = "model"
)

// ComplianceFlag is a single human-readable compliance finding.
type ComplianceFlag struct {
	Source        FlagSource `json:"source"`
	Reason        string     `json:"reason"`
	SuggestedEdit string     `json:"suggested_edit,omitempty"`
}

// ComplianceResult is always data, never an error: failing options are
// returned to the caller with their flags intact.
type ComplianceResult struct {
	Status              ComplianceStatus `json:"status"`
	Flags               []ComplianceFlag `json:"flags"`
	RequiredDisclaimers []string         `json:"required_disclaimers,omitempty"`
}

// ScoreSet holds the named scores (each 0-10) and the weighted aggregate.
type ScoreSet struct {
	BrandFit            float64 `json:"brand_fit"`
	Clarity             float64 `json:"clarity"`
	ConversionPotential float64 `json:"conversion_potential"`
	Compliance          float64 `json:"compliance"`
	Novelty             float64 `json:"novelty"`
	Aggregate           float64 `json:"aggregate"`
}

// CreativeOption is the unit of pipeline output. The generator creates it,
// the prompt builder fills Prompts, the compliance checker fills Compliance
// and the ranker fills Scores; no stage re-derives an earlier stage's fields.
type CreativeOption struct {
	OptionID         string                              `json:"option_id"`
	ConceptName      string                              `json:"concept_name"`
	Rationale        string                              `json:"rationale"`
	AudienceFitNotes string                              `json:"audience_fit_notes,omitempty"`
	Copy             map[string]CopyVariant              `json:"copy"`
	DesignSpec       DesignSpec                          `json:"design_spec"`
	Prompts          map[string]map[string]*PromptResult `json:"prompts"`
	Compliance       ComplianceResult                    `json:"compliance"`
	Scores           ScoreSet                            `json:"scores"`
	Fallback         bool                                `json:"fallback,omitempty"`
	Partial          bool                                `json:"partial,omitempty"`
}

// AuditRecord captures everything a caller needs to understand how a
// response was produced, including every degradation marker.
type AuditRecord struct {
	GenerationID       string            `json:"generation_id"`
	ModelVersions      map[string]string `json:"model_versions"`
	RetrievedSourceIDs []string          `json:"retrieved_source_ids"`
	StartedAt          time.Time         `json:"started_at"`
	CompletedAt        time.Time         `json:"completed_at"`
	Shortfall          int               `json:"shortfall,omitempty"`
	Partial            bool              `json:"partial,omitempty"`
	Flags              []string          `json:"flags,omitempty"`
}

// GenerateResponse is the assembled pipeline output: ranked options, the
// request echo and the audit record.
type GenerateResponse struct {
	Request           GenerationRequest `json:"request"`
	Options           []*CreativeOption `json:"options"`
	GlobalDisclaimers map[string]string `json:"global_disclaimers,omitempty"`
	Audit             AuditRecord       `json:"audit"`
}
