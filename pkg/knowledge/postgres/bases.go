package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/voxkit-ai/voxkit/pkg/knowledge"
)

// CreateBase implements [knowledge.Store]. It upserts a knowledge base;
// a base with the same ID is completely replaced.
func (s *Store) CreateBase(ctx context.Context, base knowledge.Base) error {
	const q = `
		INSERT INTO knowledge_bases (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
		    name        = EXCLUDED.name,
		    description = EXCLUDED.description`

	if base.CreatedAt.IsZero() {
		base.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, q, base.ID, base.Name, base.Description, base.CreatedAt)
	if err != nil {
		return fmt.Errorf("knowledge store: create base: %w", err)
	}
	return nil
}

// GetBase implements [knowledge.Store]. Returns (nil, nil) when no base with
// the given ID exists.
func (s *Store) GetBase(ctx context.Context, id string) (*knowledge.Base, error) {
	const q = `
		SELECT id, name, description, created_at
		FROM   knowledge_bases
		WHERE  id = $1`

	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: get base: %w", err)
	}
	bases, err := collectBases(rows)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: get base: %w", err)
	}
	if len(bases) == 0 {
		return nil, nil
	}
	return &bases[0], nil
}

// ListBases implements [knowledge.Store].
func (s *Store) ListBases(ctx context.Context) ([]knowledge.Base, error) {
	const q = `
		SELECT id, name, description, created_at
		FROM   knowledge_bases
		ORDER  BY name`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: list bases: %w", err)
	}
	bases, err := collectBases(rows)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: list bases: %w", err)
	}
	return bases, nil
}

// DeleteBase implements [knowledge.Store]. Sources are removed by the
// ON DELETE CASCADE constraint. Deleting a non-existent base is not an error.
func (s *Store) DeleteBase(ctx context.Context, id string) error {
	const q = `DELETE FROM knowledge_bases WHERE id = $1`

	if _, err := s.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("knowledge store: delete base: %w", err)
	}
	return nil
}

// collectBases scans pgx rows into a slice of Base values.
func collectBases(rows pgx.Rows) ([]knowledge.Base, error) {
	bases, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (knowledge.Base, error) {
		var b knowledge.Base
		err := row.Scan(&b.ID, &b.Name, &b.Description, &b.CreatedAt)
		return b, err
	})
	if err != nil {
		return nil, err
	}
	if bases == nil {
		bases = []knowledge.Base{}
	}
	return bases, nil
}
