package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"creativeagent/internal/domain"
	"creativeagent/internal/infra"
)

// CreativeGenerator is the slice of the pipeline the HTTP layer needs.
type CreativeGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerateResponse, error)
}

// AuditLoader reads persisted generation audit records.
type AuditLoader interface {
	GetByID(ctx context.Context, generationID string) (*domain.AuditRecord, error)
}

type App struct {
	Pipeline CreativeGenerator
	Audits   AuditLoader
	Logger   infra.Logger
}

func NewApp(pipeline CreativeGenerator, logger infra.Logger) *App {
	return &App{Pipeline: pipeline, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}
