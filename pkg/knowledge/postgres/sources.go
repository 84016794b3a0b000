package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/voxkit-ai/voxkit/pkg/knowledge"
)

// AddSource implements [knowledge.Store]. It upserts a source document
// together with its pre-computed content embedding. A source with the same ID
// is completely replaced.
func (s *Store) AddSource(ctx context.Context, src knowledge.Source, embedding []float32) error {
	const q = `
		INSERT INTO knowledge_sources (id, base_id, title, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
		    base_id   = EXCLUDED.base_id,
		    title     = EXCLUDED.title,
		    content   = EXCLUDED.content,
		    embedding = EXCLUDED.embedding`

	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now()
	}
	vec := pgvector.NewVector(embedding)
	_, err := s.pool.Exec(ctx, q, src.ID, src.BaseID, src.Title, src.Content, vec, src.CreatedAt)
	if err != nil {
		return fmt.Errorf("knowledge store: add source: %w", err)
	}
	return nil
}

// ListSources implements [knowledge.Store].
func (s *Store) ListSources(ctx context.Context, baseID string) ([]knowledge.Source, error) {
	const q = `
		SELECT id, base_id, title, content, created_at
		FROM   knowledge_sources
		WHERE  base_id = $1
		ORDER  BY title`

	rows, err := s.pool.Query(ctx, q, baseID)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: list sources: %w", err)
	}
	sources, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (knowledge.Source, error) {
		var src knowledge.Source
		err := row.Scan(&src.ID, &src.BaseID, &src.Title, &src.Content, &src.CreatedAt)
		return src, err
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge store: list sources: %w", err)
	}
	if sources == nil {
		sources = []knowledge.Source{}
	}
	return sources, nil
}

// DeleteSource implements [knowledge.Store]. Deleting a non-existent source is
// not an error.
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	const q = `DELETE FROM knowledge_sources WHERE id = $1`

	if _, err := s.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("knowledge store: delete source: %w", err)
	}
	return nil
}

// Search implements [knowledge.Store]. It finds the topK sources in baseID
// whose embeddings are closest (cosine distance) to the supplied query
// embedding, ordered by ascending distance.
func (s *Store) Search(ctx context.Context, baseID string, embedding []float32, topK int) ([]knowledge.SearchResult, error) {
	const q = `
		SELECT id, base_id, title, content, created_at,
		       embedding <=> $1 AS distance
		FROM   knowledge_sources
		WHERE  base_id = $2
		  AND  embedding IS NOT NULL
		ORDER  BY distance
		LIMIT  $3`

	queryVec := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(ctx, q, queryVec, baseID, topK)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: search: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (knowledge.SearchResult, error) {
		var r knowledge.SearchResult
		err := row.Scan(
			&r.Source.ID,
			&r.Source.BaseID,
			&r.Source.Title,
			&r.Source.Content,
			&r.Source.CreatedAt,
			&r.Distance,
		)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge store: scan rows: %w", err)
	}
	if results == nil {
		results = []knowledge.SearchResult{}
	}
	return results, nil
}

// Lexicon implements [knowledge.Store]. It returns the distinct source titles
// of the given base for use as the transcription correction vocabulary.
func (s *Store) Lexicon(ctx context.Context, baseID string) ([]string, error) {
	const q = `
		SELECT DISTINCT title
		FROM   knowledge_sources
		WHERE  base_id = $1
		ORDER  BY title`

	rows, err := s.pool.Query(ctx, q, baseID)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: lexicon: %w", err)
	}
	titles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("knowledge store: lexicon: %w", err)
	}
	if titles == nil {
		titles = []string{}
	}
	return titles, nil
}
