// Package embeddings defines the Provider interface for vector embedding
// backends.
//
// An embeddings provider maps text to dense float32 vectors. Voxkit uses the
// vectors for semantic retrieval over knowledge-base sources: sources are
// embedded when stored, queries are embedded at answer time, and nearest
// neighbours supply the grounding context.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// All vectors returned by a single Provider share the dimensionality reported
// by Dimensions. Vectors from different Provider instances must not be mixed
// in one similarity computation unless both use the same model and space.
type Provider interface {
	// Embed computes the embedding vector for a single text string. The
	// returned slice has length Dimensions(). Text is passed to the model
	// verbatim; any model-specific prefixing is the caller's concern.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes embeddings for texts in a single provider call.
	// The i-th result corresponds to texts[i]. On error the whole result is
	// nil; partial results are never returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of every vector produced by this
	// provider, determined by the underlying model.
	Dimensions() int

	// ModelID returns the provider-specific model identifier, for logging
	// and for ensuring consistent model usage across a knowledge base.
	ModelID() string
}
