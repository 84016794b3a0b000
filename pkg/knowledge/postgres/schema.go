// Package postgres provides a PostgreSQL-backed implementation of
// [knowledge.Store] using pgvector for embedding-based retrieval.
//
// The pgvector extension must be available in the target database; [Migrate]
// installs it automatically via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, 1536)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.CreateBase(ctx, base)
//	_ = store.AddSource(ctx, src, embedding)
//	results, _ := store.Search(ctx, base.ID, queryVec, 5)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlBases = `
CREATE TABLE IF NOT EXISTS knowledge_bases (
    id          TEXT         PRIMARY KEY,
    name        TEXT         NOT NULL,
    description TEXT         NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_knowledge_bases_name
    ON knowledge_bases (name);
`

// ddlSources returns the sources DDL with the embedding dimension substituted.
// The vector dimension is baked into the column type at schema creation time.
func ddlSources(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS knowledge_sources (
    id          TEXT         PRIMARY KEY,
    base_id     TEXT         NOT NULL REFERENCES knowledge_bases (id) ON DELETE CASCADE,
    title       TEXT         NOT NULL,
    content     TEXT         NOT NULL,
    embedding   vector(%d),
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_knowledge_sources_base_id
    ON knowledge_sources (base_id);

CREATE INDEX IF NOT EXISTS idx_knowledge_sources_embedding
    ON knowledge_sources USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required database tables and extensions
// exist. It is idempotent (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT
// EXISTS) and safe to call on every application start.
//
// embeddingDimensions must match the vector model configured for your
// deployment (e.g., 1536 for OpenAI text-embedding-3-small). Changing this
// value after the first migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlBases,
		ddlSources(embeddingDimensions),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("knowledge migrate: %w", err)
		}
	}
	return nil
}
