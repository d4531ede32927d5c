package retrieval

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"creativeagent/internal/domain"
)

// PostgresRetriever reads the corpus from a corpus_snippets table. The query
// orders by a keyword relevance expression with snippet id as the final
// sort key, so results are deterministic for a fixed corpus and plan.
//
// Expected schema:
//
//	CREATE TABLE corpus_snippets (
//	    id       TEXT PRIMARY KEY,
//	    doc      TEXT NOT NULL,
//	    kind     TEXT NOT NULL,
//	    section  TEXT,
//	    content  TEXT NOT NULL
//	);
type PostgresRetriever struct {
	pool   *pgxpool.Pool
	bounds Bounds
}

// NewPostgresRetriever wraps an existing pgx pool.
func NewPostgresRetriever(pool *pgxpool.Pool, bounds Bounds) (*PostgresRetriever, error) {
	if pool == nil {
		return nil, fmt.Errorf("retrieval: pgx pool is required")
	}
	return &PostgresRetriever{pool: pool, bounds: bounds}, nil
}

const querySnippets = `
SELECT id, doc, kind, COALESCE(section, ''), content
FROM corpus_snippets
WHERE kind = ANY($1)
ORDER BY
    (CASE WHEN content ILIKE '%' || $2 || '%' THEN 2 ELSE 0 END) +
    (CASE WHEN COALESCE(section, '') ILIKE '%' || $2 || '%' THEN 1 ELSE 0 END) DESC,
    id ASC
LIMIT $3`

func (r *PostgresRetriever) Retrieve(ctx context.Context, plan domain.GenerationPlan) (Context, error) {
	bounds := r.bounds
	if bounds.MaxSnippets <= 0 {
		bounds = DefaultBounds()
	}
	kinds := []string{string(KindBrand), string(KindTone), string(KindProduct), string(KindSegment)}
	rows, err := r.pool.Query(ctx, querySnippets, kinds, plan.ProductScope, bounds.MaxSnippets)
	if err != nil {
		return Context{}, fmt.Errorf("retrieval: query corpus: %w", err)
	}
	defer rows.Close()

	var snippets []Snippet
	for rows.Next() {
		var s Snippet
		var kind string
		if err := rows.Scan(&s.ID, &s.Doc, &kind, &s.Section, &s.Text); err != nil {
			return Context{}, fmt.Errorf("retrieval: scan snippet: %w", err)
		}
		s.Kind = Kind(kind)
		snippets = append(snippets, s)
	}
	if err := rows.Err(); err != nil {
		return Context{}, fmt.Errorf("retrieval: iterate corpus: %w", err)
	}
	return Context{Snippets: bounds.apply(snippets)}, nil
}

var _ Retriever = (*PostgresRetriever)(nil)
