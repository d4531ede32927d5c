package pipeline

import (
	"errors"
	"testing"

	"creativeagent/internal/domain"
)

func validRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		ProductScope: "crypto",
		Channel:      domain.ChannelSocial,
		Asset:        domain.AssetSocial1x1,
		Languages:    []string{"en", "de"},
		NumOptions:   3,
	}
}

func TestBuildPlanNormalizesLanguages(t *testing.T) {
	req := validRequest()
	req.Languages = []string{"EN", "de-DE", "en-US", " fr "}

	plan, err := NewPlanner(domain.ScoreWeights{}).BuildPlan(req)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	want := []string{"en", "de", "fr"}
	if len(plan.Languages) != len(want) {
		t.Fatalf("Languages = %v, want %v", plan.Languages, want)
	}
	for i := range want {
		if plan.Languages[i] != want[i] {
			t.Fatalf("Languages[%d] = %q, want %q", i, plan.Languages[i], want[i])
		}
	}
	if plan.PrimaryLanguage != "en" {
		t.Fatalf("PrimaryLanguage = %q, want en", plan.PrimaryLanguage)
	}
}

func TestBuildPlanRejectsInvalidLanguage(t *testing.T) {
	req := validRequest()
	req.Languages = []string{"not a language tag!!"}

	_, err := NewPlanner(domain.ScoreWeights{}).BuildPlan(req)
	if !errors.Is(err, domain.ErrInvalidLanguage) {
		t.Fatalf("err = %v, want ErrInvalidLanguage", err)
	}
}

func TestBuildPlanValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.GenerationRequest)
		want   error
	}{
		{"empty scope", func(r *domain.GenerationRequest) { r.ProductScope = " " }, domain.ErrProductScopeRequired},
		{"no languages", func(r *domain.GenerationRequest) { r.Languages = nil }, domain.ErrNoLanguages},
		{"too many options", func(r *domain.GenerationRequest) { r.NumOptions = 7 }, domain.ErrOptionCountRange},
		{"negative options", func(r *domain.GenerationRequest) { r.NumOptions = -1 }, domain.ErrOptionCountRange},
	}
	planner := NewPlanner(domain.ScoreWeights{})
	for _, tc := range cases {
		req := validRequest()
		tc.mutate(&req)
		if _, err := planner.BuildPlan(req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestBuildPlanDefaultsOptionCount(t *testing.T) {
	req := validRequest()
	req.NumOptions = 0

	plan, err := NewPlanner(domain.ScoreWeights{}).BuildPlan(req)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if plan.NumOptions != domain.DefaultOptions {
		t.Fatalf("NumOptions = %d, want %d", plan.NumOptions, domain.DefaultOptions)
	}
	if len(plan.Directions) != domain.DefaultOptions {
		t.Fatalf("Directions = %v, want %d entries", plan.Directions, domain.DefaultOptions)
	}
}

func TestBuildPlanSelectsRuleset(t *testing.T) {
	planner := NewPlanner(domain.ScoreWeights{})

	req := validRequest()
	plan, err := planner.BuildPlan(req)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if plan.RulesetID != "crypto" {
		t.Fatalf("RulesetID = %q, want crypto", plan.RulesetID)
	}

	req.ProductScope = "Commodities"
	plan, err = planner.BuildPlan(req)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if plan.RulesetID != "default" {
		t.Fatalf("RulesetID = %q, want default", plan.RulesetID)
	}
	if plan.ProductScope != "commodities" {
		t.Fatalf("ProductScope = %q, want lowered", plan.ProductScope)
	}
}

func TestBuildPlanSeedIsStable(t *testing.T) {
	planner := NewPlanner(domain.ScoreWeights{})
	req := validRequest()

	a, err := planner.BuildPlan(req)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	b, err := planner.BuildPlan(req)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if a.Seed != b.Seed {
		t.Fatalf("seed not stable: %d vs %d", a.Seed, b.Seed)
	}

	explicit := int64(42)
	req.Seed = &explicit
	c, err := planner.BuildPlan(req)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if c.Seed != 42 {
		t.Fatalf("Seed = %d, want 42", c.Seed)
	}
}
