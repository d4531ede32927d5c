package pipeline

import (
	"fmt"
	"strings"

	"creativeagent/internal/domain"
)

// defaultNegativePrompt keeps image models away from the artifacts that most
// often make financial ads unusable.
const defaultNegativePrompt = "text artifacts, distorted logos, watermark, low resolution, misspelled words, extra fingers, clutter"

// BuildPrompts derives the image and motion prompts for every asset slot and
// language of an option. It is a pure transform: no model calls, no I/O, and
// the result for the same option and plan is always identical. Render status
// starts as pending; the pipeline's render stage resolves it.
func BuildPrompts(opt *domain.CreativeOption, plan domain.GenerationPlan) {
	slot := string(plan.Asset)
	if opt.Prompts == nil {
		opt.Prompts = make(map[string]map[string]*domain.PromptResult, 1)
	}
	perLang := make(map[string]*domain.PromptResult, len(plan.Languages))
	for _, lang := range plan.Languages {
		cv := opt.Copy[lang]
		result := &domain.PromptResult{
			ImagePrompt:    imagePrompt(opt, cv, plan),
			NegativePrompt: defaultNegativePrompt,
			AspectRatio:    plan.Asset.AspectRatio(),
			Status:         domain.GenerationPending,
		}
		if plan.Asset.Motion() {
			result.Storyboard = storyboard(opt, cv)
		}
		perLang[lang] = result
	}
	opt.Prompts[slot] = perLang
}

func imagePrompt(opt *domain.CreativeOption, cv domain.CopyVariant, plan domain.GenerationPlan) string {
	parts := []string{
		fmt.Sprintf("Marketing visual for %s: %s", plan.ProductScope, opt.DesignSpec.ImageryDirection),
	}
	if opt.DesignSpec.Layout != "" {
		parts = append(parts, "Layout: "+opt.DesignSpec.Layout)
	}
	if opt.DesignSpec.BrandColorNotes != "" {
		parts = append(parts, "Colors: "+opt.DesignSpec.BrandColorNotes)
	}
	if opt.DesignSpec.TypographyIntent != "" {
		parts = append(parts, "Typography: "+opt.DesignSpec.TypographyIntent)
	}
	if plan.StyleGuidance != "" {
		parts = append(parts, "Style: "+plan.StyleGuidance)
	}
	if cv.Headline != "" {
		parts = append(parts, fmt.Sprintf("Leave clear space for the headline %q", cv.Headline))
	}
	parts = append(parts, "Professional advertising quality, no embedded body text")
	return strings.Join(parts, ". ")
}

// storyboard lays out the standard three-beat motion arc: hook, substance,
// call to action.
func storyboard(opt *domain.CreativeOption, cv domain.CopyVariant) []domain.StoryboardScene {
	return []domain.StoryboardScene{
		{
			At:           0,
			Visual:       "Open on " + opt.DesignSpec.ImageryDirection,
			OnScreenText: cv.Headline,
			Transition:   "fade in",
		},
		{
			At:           2.5,
			Visual:       mainVisual(opt),
			OnScreenText: cv.PrimaryText,
			Transition:   "slide",
		},
		{
			At:           5,
			Visual:       "Brand lockup with call-to-action button",
			OnScreenText: cv.CTA,
			Transition:   "cut",
		},
	}
}

func mainVisual(opt *domain.CreativeOption) string {
	if opt.DesignSpec.AnimationVibe != "" {
		return fmt.Sprintf("%s, %s motion", opt.DesignSpec.Layout, opt.DesignSpec.AnimationVibe)
	}
	return opt.DesignSpec.Layout
}
