package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/voxkit-ai/voxkit/pkg/provider/embeddings"
)

// ContextBuilder retrieves the most relevant sources across one or more
// knowledge bases and renders them into a single context block ready for
// injection into an agent's session instructions.
type ContextBuilder struct {
	store    Store
	embedder embeddings.Provider
	topK     int
}

// BuilderOption is a functional option for [NewContextBuilder].
type BuilderOption func(*ContextBuilder)

// WithTopK sets how many sources are retrieved per knowledge base.
// Defaults to 5.
func WithTopK(n int) BuilderOption {
	return func(b *ContextBuilder) { b.topK = n }
}

// NewContextBuilder creates a [ContextBuilder] with sensible defaults.
func NewContextBuilder(store Store, embedder embeddings.Provider, opts ...BuilderOption) *ContextBuilder {
	b := &ContextBuilder{
		store:    store,
		embedder: embedder,
		topK:     5,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build embeds the query once, searches every base in baseIDs concurrently,
// and returns the retrieved source contents merged across bases, ordered by
// ascending distance and joined with blank lines.
//
// If any search returns an error, assembly is aborted and that error is
// returned. An empty query or empty baseIDs yields an empty string.
//
// Build respects context cancellation on all underlying I/O calls.
func (b *ContextBuilder) Build(ctx context.Context, query string, baseIDs []string) (string, error) {
	if query == "" || len(baseIDs) == 0 {
		return "", nil
	}

	vec, err := b.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("knowledge context: embed query: %w", err)
	}

	perBase := make([][]SearchResult, len(baseIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, id := range baseIDs {
		eg.Go(func() error {
			results, err := b.store.Search(egCtx, id, vec, b.topK)
			if err != nil {
				return fmt.Errorf("knowledge context: search base %q: %w", id, err)
			}
			perBase[i] = results
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return "", err
	}

	var merged []SearchResult
	for _, results := range perBase {
		merged = append(merged, results...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Distance < merged[j].Distance
	})

	parts := make([]string, 0, len(merged))
	for _, r := range merged {
		parts = append(parts, r.Source.Content)
	}
	return strings.Join(parts, "\n\n"), nil
}

// Concat returns the full contents of every source in baseIDs joined with
// blank lines, in store order. This is the context form used at session
// setup, where no query exists yet to retrieve against. Use [Build] for
// query-driven retrieval over large bases.
func (b *ContextBuilder) Concat(ctx context.Context, baseIDs []string) (string, error) {
	var parts []string
	for _, id := range baseIDs {
		sources, err := b.store.ListSources(ctx, id)
		if err != nil {
			return "", fmt.Errorf("knowledge context: list sources for base %q: %w", id, err)
		}
		for _, src := range sources {
			parts = append(parts, src.Content)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// Lexicon collects the source titles of all bases in baseIDs, deduplicated,
// for use as the transcription correction vocabulary.
func (b *ContextBuilder) Lexicon(ctx context.Context, baseIDs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var terms []string
	for _, id := range baseIDs {
		titles, err := b.store.Lexicon(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("knowledge context: lexicon for base %q: %w", id, err)
		}
		for _, t := range titles {
			key := strings.ToLower(t)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			terms = append(terms, t)
		}
	}
	return terms, nil
}
