package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"creativeagent/internal/domain"
)

// AuditStore persists one row per generation run so campaigns can be traced
// back to the exact models, sources and degradations that produced them.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore wraps an existing pgx pool.
func NewAuditStore(pool *pgxpool.Pool) (*AuditStore, error) {
	if pool == nil {
		return nil, errors.New("storage: pgx pool is required")
	}
	return &AuditStore{pool: pool}, nil
}

// Save inserts the audit record together with the originating brief.
func (s *AuditStore) Save(ctx context.Context, req domain.GenerationRequest, audit domain.AuditRecord, optionCount int) error {
	requestJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("storage: encode request: %w", err)
	}
	modelsJSON, err := json.Marshal(audit.ModelVersions)
	if err != nil {
		return fmt.Errorf("storage: encode model versions: %w", err)
	}
	query := `
INSERT INTO generation_audits (id, request_json, model_versions, source_ids, option_count, shortfall, partial, flags, started_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`
	_, err = s.pool.Exec(ctx, query,
		audit.GenerationID,
		requestJSON,
		modelsJSON,
		audit.RetrievedSourceIDs,
		optionCount,
		audit.Shortfall,
		audit.Partial,
		audit.Flags,
		audit.StartedAt,
		audit.CompletedAt,
	)
	return err
}

// GetByID loads a stored audit record.
func (s *AuditStore) GetByID(ctx context.Context, generationID string) (*domain.AuditRecord, error) {
	query := `
SELECT id, model_versions, source_ids, shortfall, partial, flags, started_at, completed_at
FROM generation_audits
WHERE id = $1;
`
	row := s.pool.QueryRow(ctx, query, generationID)
	var (
		record     domain.AuditRecord
		modelsJSON []byte
	)
	if err := row.Scan(
		&record.GenerationID,
		&modelsJSON,
		&record.RetrievedSourceIDs,
		&record.Shortfall,
		&record.Partial,
		&record.Flags,
		&record.StartedAt,
		&record.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGenerationNotFound
		}
		return nil, err
	}
	if len(modelsJSON) > 0 {
		if err := json.Unmarshal(modelsJSON, &record.ModelVersions); err != nil {
			return nil, fmt.Errorf("storage: decode model versions: %w", err)
		}
	}
	return &record, nil
}
