package pipeline

import (
	"reflect"
	"testing"

	"creativeagent/internal/domain"
)

func designedOption() *domain.CreativeOption {
	return &domain.CreativeOption{
		OptionID:    "opt-1",
		ConceptName: "Charts up",
		Copy: map[string]domain.CopyVariant{
			"en": {
				PrimaryText: "See your portfolio grow with clear tools.",
				Headline:    "Grow with clarity",
				CTA:         "Start now",
			},
			"de": {
				PrimaryText: "Beobachte dein Portfolio mit klaren Tools.",
				Headline:    "Wachsen mit Klarheit",
				CTA:         "Jetzt starten",
			},
		},
		DesignSpec: domain.DesignSpec{
			Layout:           "split screen",
			TypographyIntent: "modern sans",
			ImageryDirection: "upward trending chart over city skyline",
			BrandColorNotes:  "brand green CTA",
			AnimationVibe:    "smooth parallax",
		},
	}
}

func TestBuildPromptsStaticFormat(t *testing.T) {
	plan := cryptoPlan("en", "de")
	plan.Asset = domain.AssetSocial1x1
	opt := designedOption()

	BuildPrompts(opt, plan)

	perLang, ok := opt.Prompts["social_1x1"]
	if !ok {
		t.Fatalf("no prompts for slot, got %v", opt.Prompts)
	}
	for _, lang := range plan.Languages {
		pr, ok := perLang[lang]
		if !ok {
			t.Fatalf("no prompt for %s", lang)
		}
		if pr.ImagePrompt == "" {
			t.Fatalf("empty image prompt for %s", lang)
		}
		if pr.NegativePrompt != defaultNegativePrompt {
			t.Fatalf("NegativePrompt = %q", pr.NegativePrompt)
		}
		if pr.AspectRatio != "1:1" {
			t.Fatalf("AspectRatio = %q, want 1:1", pr.AspectRatio)
		}
		if pr.Status != domain.GenerationPending {
			t.Fatalf("Status = %q, want pending", pr.Status)
		}
		if len(pr.Storyboard) != 0 {
			t.Fatalf("static format must not carry a storyboard")
		}
	}
}

func TestBuildPromptsMotionStoryboard(t *testing.T) {
	plan := cryptoPlan("en")
	plan.Asset = domain.AssetShortVideo
	opt := designedOption()

	BuildPrompts(opt, plan)

	pr := opt.Prompts["short_video"]["en"]
	if len(pr.Storyboard) != 3 {
		t.Fatalf("storyboard scenes = %d, want 3", len(pr.Storyboard))
	}
	if pr.Storyboard[0].OnScreenText != "Grow with clarity" {
		t.Fatalf("opening scene text = %q, want the headline", pr.Storyboard[0].OnScreenText)
	}
	if pr.Storyboard[2].OnScreenText != "Start now" {
		t.Fatalf("closing scene text = %q, want the CTA", pr.Storyboard[2].OnScreenText)
	}
	for i := 1; i < len(pr.Storyboard); i++ {
		if pr.Storyboard[i].At <= pr.Storyboard[i-1].At {
			t.Fatalf("scene timestamps must increase: %v", pr.Storyboard)
		}
	}
	if pr.AspectRatio != "9:16" {
		t.Fatalf("AspectRatio = %q, want 9:16", pr.AspectRatio)
	}
}

func TestBuildPromptsIsPure(t *testing.T) {
	plan := cryptoPlan("en")
	plan.Asset = domain.AssetBanner16x9

	a := designedOption()
	b := designedOption()
	BuildPrompts(a, plan)
	BuildPrompts(b, plan)

	if !reflect.DeepEqual(a.Prompts, b.Prompts) {
		t.Fatalf("prompt building is not deterministic")
	}
}
