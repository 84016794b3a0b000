package knowledge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/voxkit-ai/voxkit/pkg/knowledge"
	knowledgemock "github.com/voxkit-ai/voxkit/pkg/knowledge/mock"
	embedmock "github.com/voxkit-ai/voxkit/pkg/provider/embeddings/mock"
)

func source(id, title, content string) knowledge.Source {
	return knowledge.Source{ID: id, Title: title, Content: content}
}

func TestBuild_MergesBasesByDistance(t *testing.T) {
	t.Parallel()

	store := &knowledgemock.Store{
		SearchResults: map[string][]knowledge.SearchResult{
			"menu": {
				{Source: source("s1", "latte", "A latte is espresso with steamed milk."), Distance: 0.3},
				{Source: source("s2", "mocha", "A mocha adds chocolate."), Distance: 0.7},
			},
			"hours": {
				{Source: source("s3", "opening hours", "Open daily from 8am to 6pm."), Distance: 0.1},
			},
		},
	}
	embedder := &embedmock.Provider{EmbedResult: []float32{0.1, 0.2, 0.3}}

	b := knowledge.NewContextBuilder(store, embedder)
	got, err := b.Build(context.Background(), "when are you open?", []string{"menu", "hours"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := "Open daily from 8am to 6pm.\n\nA latte is espresso with steamed milk.\n\nA mocha adds chocolate."
	if got != want {
		t.Errorf("Build:\nwant %q\ngot  %q", want, got)
	}

	if n := len(embedder.EmbedCalls); n != 1 {
		t.Errorf("query should be embedded exactly once, got %d calls", n)
	}
	if n := store.CallCount("Search"); n != 2 {
		t.Errorf("want one Search per base, got %d", n)
	}
}

func TestBuild_EmptyInputsYieldEmptyContext(t *testing.T) {
	t.Parallel()

	store := &knowledgemock.Store{}
	embedder := &embedmock.Provider{EmbedResult: []float32{1}}
	b := knowledge.NewContextBuilder(store, embedder)

	for _, tc := range []struct {
		name    string
		query   string
		baseIDs []string
	}{
		{"empty query", "", []string{"menu"}},
		{"no bases", "hello", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := b.Build(context.Background(), tc.query, tc.baseIDs)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got != "" {
				t.Errorf("want empty context, got %q", got)
			}
		})
	}
	if n := len(embedder.EmbedCalls); n != 0 {
		t.Errorf("nothing should be embedded, got %d calls", n)
	}
}

func TestBuild_EmbedFailureAborts(t *testing.T) {
	t.Parallel()

	embedErr := errors.New("model offline")
	store := &knowledgemock.Store{}
	embedder := &embedmock.Provider{EmbedErr: embedErr}
	b := knowledge.NewContextBuilder(store, embedder)

	_, err := b.Build(context.Background(), "hello", []string{"menu"})
	if !errors.Is(err, embedErr) {
		t.Fatalf("want wrapped embed error, got %v", err)
	}
	if n := store.CallCount("Search"); n != 0 {
		t.Errorf("no search should run after embed failure, got %d", n)
	}
}

func TestBuild_SearchFailureAborts(t *testing.T) {
	t.Parallel()

	searchErr := errors.New("connection reset")
	store := &knowledgemock.Store{SearchErr: searchErr}
	embedder := &embedmock.Provider{EmbedResult: []float32{1}}
	b := knowledge.NewContextBuilder(store, embedder)

	_, err := b.Build(context.Background(), "hello", []string{"menu", "hours"})
	if !errors.Is(err, searchErr) {
		t.Fatalf("want wrapped search error, got %v", err)
	}
}

func TestBuild_TopKPassedThrough(t *testing.T) {
	t.Parallel()

	store := &knowledgemock.Store{}
	embedder := &embedmock.Provider{EmbedResult: []float32{1}}
	b := knowledge.NewContextBuilder(store, embedder, knowledge.WithTopK(2))

	if _, err := b.Build(context.Background(), "hello", []string{"menu"}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	calls := store.Calls()
	if len(calls) != 1 {
		t.Fatalf("want 1 call, got %d", len(calls))
	}
	if topK := calls[0].Args[2]; topK != 2 {
		t.Errorf("topK: want 2, got %v", topK)
	}
}

func TestConcat_JoinsAllSourcesInStoreOrder(t *testing.T) {
	t.Parallel()

	store := &knowledgemock.Store{
		ListSourcesResults: map[string][]knowledge.Source{
			"menu": {
				source("s1", "latte", "A latte is espresso with steamed milk."),
				source("s2", "mocha", "A mocha adds chocolate."),
			},
			"hours": {
				source("s3", "opening hours", "Open daily from 8am to 6pm."),
			},
		},
	}
	b := knowledge.NewContextBuilder(store, &embedmock.Provider{})

	got, err := b.Concat(context.Background(), []string{"menu", "hours"})
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}

	want := "A latte is espresso with steamed milk.\n\nA mocha adds chocolate.\n\nOpen daily from 8am to 6pm."
	if got != want {
		t.Errorf("Concat:\nwant %q\ngot  %q", want, got)
	}
}

func TestConcat_EmptyBasesYieldEmptyContext(t *testing.T) {
	t.Parallel()

	b := knowledge.NewContextBuilder(&knowledgemock.Store{}, &embedmock.Provider{})
	got, err := b.Concat(context.Background(), []string{"menu"})
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if got != "" {
		t.Errorf("want empty context, got %q", got)
	}
}

func TestLexicon_DeduplicatesAcrossBases(t *testing.T) {
	t.Parallel()

	store := &knowledgemock.Store{
		LexiconResults: map[string][]string{
			"menu":      {"latte", "flat white", "Macchiato"},
			"specials":  {"macchiato", "affogato"},
			"personnel": {},
		},
	}
	b := knowledge.NewContextBuilder(store, &embedmock.Provider{})

	terms, err := b.Lexicon(context.Background(), []string{"menu", "specials", "personnel"})
	if err != nil {
		t.Fatalf("Lexicon: %v", err)
	}

	want := []string{"latte", "flat white", "Macchiato", "affogato"}
	if len(terms) != len(want) {
		t.Fatalf("want %d terms, got %d: %v", len(want), len(terms), terms)
	}
	for i, w := range want {
		if terms[i] != w {
			t.Errorf("terms[%d]: want %q, got %q", i, w, terms[i])
		}
	}
}

func TestLexicon_FailureWrapped(t *testing.T) {
	t.Parallel()

	lexErr := errors.New("table missing")
	store := &knowledgemock.Store{LexiconErr: lexErr}
	b := knowledge.NewContextBuilder(store, &embedmock.Provider{})

	_, err := b.Lexicon(context.Background(), []string{"menu"})
	if !errors.Is(err, lexErr) {
		t.Fatalf("want wrapped lexicon error, got %v", err)
	}
}
