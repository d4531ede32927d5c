package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"creativeagent/internal/http/handlers"
	httpapi "creativeagent/internal/http/httpapi"
	"creativeagent/internal/infra"
	"creativeagent/internal/pipeline"
	"creativeagent/internal/providers/model"
	"creativeagent/internal/providers/render"
	"creativeagent/internal/retrieval"
	"creativeagent/internal/storage"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	ctx := context.Background()

	client, err := buildModelClient(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure model backends")
	}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("database unavailable, running without persistence")
			pool = nil
		} else {
			defer pool.Close()
		}
	}

	retriever := buildRetriever(pool, logger)
	renderer := buildRenderer(cfg, logger)
	audits := buildAuditStore(pool, logger)
	var auditSaver pipeline.AuditSaver
	if audits != nil {
		auditSaver = audits
	}

	pipe, err := pipeline.New(pipeline.Options{
		Planner:   pipeline.NewPlanner(infra.ScoreWeightsFromEnv()),
		Generator: pipeline.NewGenerator(client, logger),
		Checker:   pipeline.NewChecker(client, logger),
		Retriever: retriever,
		Renderer:  renderer,
		Audits:    auditSaver,
		Timeout:   cfg.PipelineTimeout,
		Logger:    &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to assemble pipeline")
	}

	app := handlers.NewApp(pipe, logger)
	if audits != nil {
		app.Audits = audits
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		GenerateLimit:  cfg.GenerateRateLimit,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// buildModelClient assembles the fallback chain from MODEL_PREFERENCE. Model
// ids prefixed "gemini" go through the Gemini transport, everything else
// through the OpenAI transport.
func buildModelClient(cfg *infra.Config, logger infra.Logger) (*model.Client, error) {
	var gemini *model.GeminiTransport
	var openai *model.OpenAITransport
	var err error

	if cfg.GeminiAPIKey != "" {
		gemini, err = model.NewGeminiTransport(model.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
		})
		if err != nil {
			return nil, err
		}
	}
	if cfg.OpenAIAPIKey != "" {
		openai, err = model.NewOpenAITransport(model.OpenAIOptions{
			APIKey:       cfg.OpenAIAPIKey,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
		})
		if err != nil {
			return nil, err
		}
	}

	var backends []model.Backend
	for _, id := range cfg.ModelPreference {
		spec := model.ModelSpec{ID: id, MaxOutputTokens: cfg.MaxOutputTokens}
		switch {
		case strings.HasPrefix(id, "gemini"):
			if gemini == nil {
				logger.Warn().Str("model", id).Msg("skipping model: GEMINI_API_KEY not set")
				continue
			}
			backends = append(backends, model.Backend{Transport: gemini, Model: spec})
		default:
			if openai == nil {
				logger.Warn().Str("model", id).Msg("skipping model: OPENAI_API_KEY not set")
				continue
			}
			backends = append(backends, model.Backend{Transport: openai, Model: spec})
		}
	}
	if len(backends) == 0 {
		logger.Warn().Msg("no model backends configured; every brief will use the deterministic fallback")
		return nil, nil
	}
	return model.NewClient(model.Options{Backends: backends, Logger: &logger})
}

func buildRetriever(pool *pgxpool.Pool, logger infra.Logger) retrieval.Retriever {
	if pool != nil {
		r, err := retrieval.NewPostgresRetriever(pool, retrieval.DefaultBounds())
		if err == nil {
			logger.Info().Msg("retrieval: using postgres corpus")
			return r
		}
		logger.Warn().Err(err).Msg("postgres retriever init failed, using built-in corpus")
	}
	return retrieval.NewStaticRetriever(nil, retrieval.DefaultBounds())
}

func buildAuditStore(pool *pgxpool.Pool, logger infra.Logger) *storage.AuditStore {
	if pool == nil {
		return nil
	}
	store, err := storage.NewAuditStore(pool)
	if err != nil {
		logger.Warn().Err(err).Msg("audit store init failed, audits stay response-only")
		return nil
	}
	return store
}

func buildRenderer(cfg *infra.Config, logger infra.Logger) render.Renderer {
	if cfg.RendererProvider == "openai" && cfg.OpenAIAPIKey != "" {
		r, err := render.NewOpenAIRenderer(render.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.RendererModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err == nil {
			return r
		}
		logger.Warn().Err(err).Msg("openai renderer init failed, using placeholder")
	}
	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Warn().Err(err).Msg("file store init failed, placeholder renderer will not persist bodies")
		store = nil
	}
	return render.NewPlaceholderRenderer(store, cfg.StorageBaseURL)
}
