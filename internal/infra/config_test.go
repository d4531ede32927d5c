package infra

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("MODEL_PREFERENCE", "")
	t.Setenv("MAX_OUTPUT_TOKENS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if len(cfg.ModelPreference) != 2 || cfg.ModelPreference[0] != "gemini-1.5-flash" {
		t.Fatalf("ModelPreference = %#v", cfg.ModelPreference)
	}
	if cfg.MaxOutputTokens != 4096 {
		t.Fatalf("MaxOutputTokens = %d, want 4096", cfg.MaxOutputTokens)
	}
	if cfg.RendererProvider != "placeholder" {
		t.Fatalf("RendererProvider = %q, want placeholder", cfg.RendererProvider)
	}
}

func TestLoadConfigParsesModelPreference(t *testing.T) {
	t.Setenv("MODEL_PREFERENCE", " gpt-4o-mini , gemini-1.5-pro ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := []string{"gpt-4o-mini", "gemini-1.5-pro"}
	if len(cfg.ModelPreference) != len(want) {
		t.Fatalf("ModelPreference = %#v, want %#v", cfg.ModelPreference, want)
	}
	for i := range want {
		if cfg.ModelPreference[i] != want[i] {
			t.Fatalf("ModelPreference[%d] = %q, want %q", i, cfg.ModelPreference[i], want[i])
		}
	}
}

func TestLoadConfigTimeouts(t *testing.T) {
	t.Setenv("PIPELINE_TIMEOUT_SECONDS", "30")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PipelineTimeout.Seconds() != 30 {
		t.Fatalf("PipelineTimeout = %v, want 30s", cfg.PipelineTimeout)
	}
}

func TestScoreWeightsFromEnvOverrides(t *testing.T) {
	t.Setenv("WEIGHT_NOVELTY", "0.5")

	w := ScoreWeightsFromEnv()
	if w.Novelty != 0.5 {
		t.Fatalf("Novelty = %v, want 0.5", w.Novelty)
	}
	defaults := ScoreWeightsFromEnv()
	if defaults.BrandFit != 0.25 {
		t.Fatalf("BrandFit = %v, want default 0.25", defaults.BrandFit)
	}
}
