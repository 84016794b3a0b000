// Package knowledge defines the knowledge-base layer used to ground voice
// agents in domain facts.
//
// A [Base] is a named collection of [Source] documents. Each source is stored
// together with a pre-computed embedding of its content so that a [Store] can
// answer nearest-neighbour queries without re-embedding on every search.
//
// Callers are responsible for producing embeddings (see
// pkg/provider/embeddings) before calling [Store.AddSource] or [Store.Search].
// Implementations must be safe for concurrent use.
package knowledge

import (
	"context"
	"time"
)

// Base is a named collection of knowledge sources shared by one or more agents.
type Base struct {
	// ID is the unique, stable identifier for this base (e.g., a UUID).
	ID string

	// Name is the human-readable display name (e.g., "menu", "opening-hours").
	Name string

	// Description explains what the base contains. Injected verbatim nowhere;
	// purely informational.
	Description string

	// CreatedAt is when the base was first created.
	CreatedAt time.Time
}

// Source is a single document inside a knowledge base.
type Source struct {
	// ID is the unique identifier for this source (e.g., a UUID).
	ID string

	// BaseID is the knowledge base this source belongs to.
	BaseID string

	// Title is a short label for the document. Titles also feed the
	// transcription correction lexicon, so domain terms the agent must
	// recognise should appear here.
	Title string

	// Content is the full text of the document.
	Content string

	// CreatedAt is when the source was added.
	CreatedAt time.Time
}

// SearchResult pairs a retrieved source with its vector-space distance from
// the query embedding. Lower Distance values indicate higher similarity.
type SearchResult struct {
	// Source is the retrieved document.
	Source Source

	// Distance is the cosine distance to the query embedding.
	Distance float64
}

// Store persists knowledge bases and their sources and supports
// embedding-based retrieval over source content.
//
// Mutating operations keyed on an ID (CreateBase, AddSource) must behave as
// upserts rather than returning an error on duplicates. Deletions of
// non-existent records are not errors.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// CreateBase upserts a knowledge base.
	// If a base with the same ID already exists it is completely replaced.
	CreateBase(ctx context.Context, base Base) error

	// GetBase retrieves a base by its unique ID.
	// Returns (nil, nil) when the base does not exist.
	GetBase(ctx context.Context, id string) (*Base, error)

	// ListBases returns all knowledge bases ordered by name.
	// Returns an empty (non-nil) slice when no bases exist.
	ListBases(ctx context.Context) ([]Base, error)

	// DeleteBase removes the base and all its sources.
	// Deleting a non-existent base is not an error.
	DeleteBase(ctx context.Context, id string) error

	// AddSource upserts a source document together with the embedding of its
	// content. The embedding dimension must match the store configuration.
	AddSource(ctx context.Context, src Source, embedding []float32) error

	// ListSources returns all sources in the given base ordered by title.
	// Returns an empty (non-nil) slice when the base has no sources.
	ListSources(ctx context.Context, baseID string) ([]Source, error)

	// DeleteSource removes a single source by ID.
	// Deleting a non-existent source is not an error.
	DeleteSource(ctx context.Context, id string) error

	// Search finds the topK sources in baseID whose embeddings are closest
	// (cosine distance) to the query embedding.
	// Results are ordered by ascending Distance (most similar first).
	// Returns an empty (non-nil) slice when no sources match.
	Search(ctx context.Context, baseID string, embedding []float32, topK int) ([]SearchResult, error)

	// Lexicon returns the source titles of the given base, used as the
	// vocabulary for phonetic transcription correction.
	// Returns an empty (non-nil) slice when the base has no sources.
	Lexicon(ctx context.Context, baseID string) ([]string, error)
}
