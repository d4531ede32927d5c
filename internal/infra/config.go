package infra

import (
	"os"
	"strconv"
	"strings"
	"time"

	"creativeagent/internal/domain"
)

// Config represents application configuration loaded from environment
// variables. It is constructed once at process start and passed by
// reference into the pipeline's entry point; core packages never read the
// environment themselves.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	StoragePath    string
	StorageBaseURL string

	GeminiAPIKey  string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIOrg     string

	// ModelPreference is the ordered model fallback chain, e.g.
	// "gemini-1.5-flash,gpt-4o-mini".
	ModelPreference []string
	MaxOutputTokens int

	RendererProvider string
	RendererModel    string

	CORSAllowedOrigins []string
	GenerateRateLimit  int

	PipelineTimeout  time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:          os.Getenv("OPENAI_ORG"),
		ModelPreference:    splitList(getEnv("MODEL_PREFERENCE", "gemini-1.5-flash,gpt-4o-mini")),
		MaxOutputTokens:    getEnvInt("MAX_OUTPUT_TOKENS", 4096),
		RendererProvider:   getEnv("RENDERER_PROVIDER", "placeholder"),
		RendererModel:      getEnv("RENDERER_MODEL", "dall-e-3"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		GenerateRateLimit:  getEnvInt("GENERATE_RATE_LIMIT_PER_MINUTE", 10),
		PipelineTimeout:    time.Second * time.Duration(getEnvInt("PIPELINE_TIMEOUT_SECONDS", 120)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 150)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	return cfg, nil
}

// ScoreWeightsFromEnv reads ranking weight overrides. Unset variables keep
// the default weight for that dimension.
func ScoreWeightsFromEnv() domain.ScoreWeights {
	defaults := domain.DefaultScoreWeights()
	return domain.ScoreWeights{
		BrandFit:            getEnvFloat("WEIGHT_BRAND_FIT", defaults.BrandFit),
		Clarity:             getEnvFloat("WEIGHT_CLARITY", defaults.Clarity),
		ConversionPotential: getEnvFloat("WEIGHT_CONVERSION", defaults.ConversionPotential),
		Compliance:          getEnvFloat("WEIGHT_COMPLIANCE", defaults.Compliance),
		Novelty:             getEnvFloat("WEIGHT_NOVELTY", defaults.Novelty),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
