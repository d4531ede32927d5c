package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"creativeagent/internal/retrieval"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS corpus_snippets (
    id       TEXT PRIMARY KEY,
    doc      TEXT NOT NULL,
    kind     TEXT NOT NULL,
    section  TEXT,
    content  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS generation_audits (
    id             TEXT PRIMARY KEY,
    request_json   JSONB NOT NULL,
    model_versions JSONB,
    source_ids     TEXT[],
    option_count   INT NOT NULL DEFAULT 0,
    shortfall      INT NOT NULL DEFAULT 0,
    partial        BOOLEAN NOT NULL DEFAULT FALSE,
    flags          TEXT[],
    started_at     TIMESTAMPTZ NOT NULL,
    completed_at   TIMESTAMPTZ NOT NULL
);
`

const upsertSnippet = `
INSERT INTO corpus_snippets (id, doc, kind, section, content)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET doc = EXCLUDED.doc, kind = EXCLUDED.kind, section = EXCLUDED.section, content = EXCLUDED.content;
`

// corpusctl prepares the database for the API: it creates the corpus and
// audit tables and optionally seeds the built-in starter corpus, so a fresh
// environment serves retrieval-grounded briefs without manual SQL.
func main() {
	var (
		seedFlag       bool
		schemaOnlyFlag bool
	)
	flag.BoolVar(&seedFlag, "seed", true, "seed the built-in starter corpus (upsert by snippet id)")
	flag.BoolVar(&schemaOnlyFlag, "schema-only", false, "create tables and exit without seeding")
	flag.Parse()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		exitWithError(fmt.Errorf("failed to apply schema: %w", err))
	}
	fmt.Println("schema applied")

	if schemaOnlyFlag || !seedFlag {
		return
	}

	seeded := 0
	for _, s := range retrieval.StarterCorpus() {
		if _, err := pool.Exec(ctx, upsertSnippet, s.ID, s.Doc, string(s.Kind), s.Section, s.Text); err != nil {
			exitWithError(fmt.Errorf("failed to seed snippet %s: %w", s.ID, err))
		}
		seeded++
	}
	fmt.Printf("seeded %d corpus snippets\n", seeded)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
