// Package mock provides a configurable test double for [knowledge.Store].
//
// All exported *Err fields default to nil (success); all exported *Result
// fields default to nil (empty slice returned). The mock records every method
// call for assertion in tests and is safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/voxkit-ai/voxkit/pkg/knowledge"
)

// Call records the name and arguments of a single method invocation.
type Call struct {
	// Method is the name of the interface method that was called.
	Method string

	// Args holds the non-context arguments passed to the method, in order.
	Args []any
}

// Store is a configurable test double for [knowledge.Store].
type Store struct {
	mu    sync.Mutex
	calls []Call

	// CreateBaseErr is returned by CreateBase when non-nil.
	CreateBaseErr error

	// GetBaseResult is returned by GetBase. Nil means "not found".
	GetBaseResult *knowledge.Base

	// GetBaseErr is returned by GetBase when non-nil.
	GetBaseErr error

	// ListBasesResult is returned by ListBases.
	// When nil, ListBases returns an empty non-nil slice.
	ListBasesResult []knowledge.Base

	// ListBasesErr is returned by ListBases when non-nil.
	ListBasesErr error

	// DeleteBaseErr is returned by DeleteBase when non-nil.
	DeleteBaseErr error

	// AddSourceErr is returned by AddSource when non-nil.
	AddSourceErr error

	// ListSourcesResults maps a base ID to the sources ListSources returns
	// for it. A base ID with no entry yields an empty non-nil slice.
	ListSourcesResults map[string][]knowledge.Source

	// ListSourcesErr is returned by ListSources when non-nil.
	ListSourcesErr error

	// DeleteSourceErr is returned by DeleteSource when non-nil.
	DeleteSourceErr error

	// SearchResults maps a base ID to the results Search returns for it.
	// A base ID with no entry yields an empty non-nil slice.
	SearchResults map[string][]knowledge.SearchResult

	// SearchErr is returned by Search when non-nil.
	SearchErr error

	// LexiconResults maps a base ID to the titles Lexicon returns for it.
	// A base ID with no entry yields an empty non-nil slice.
	LexiconResults map[string][]string

	// LexiconErr is returned by Lexicon when non-nil.
	LexiconErr error
}

var _ knowledge.Store = (*Store)(nil)

func (s *Store) record(method string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: method, Args: args})
}

// Calls returns a copy of all recorded method invocations in order.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
func (s *Store) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// CreateBase records the call and returns CreateBaseErr.
func (s *Store) CreateBase(_ context.Context, base knowledge.Base) error {
	s.record("CreateBase", base)
	return s.CreateBaseErr
}

// GetBase records the call and returns GetBaseResult, GetBaseErr.
func (s *Store) GetBase(_ context.Context, id string) (*knowledge.Base, error) {
	s.record("GetBase", id)
	return s.GetBaseResult, s.GetBaseErr
}

// ListBases records the call and returns ListBasesResult, ListBasesErr.
func (s *Store) ListBases(_ context.Context) ([]knowledge.Base, error) {
	s.record("ListBases")
	if s.ListBasesErr != nil {
		return nil, s.ListBasesErr
	}
	if s.ListBasesResult == nil {
		return []knowledge.Base{}, nil
	}
	return s.ListBasesResult, nil
}

// DeleteBase records the call and returns DeleteBaseErr.
func (s *Store) DeleteBase(_ context.Context, id string) error {
	s.record("DeleteBase", id)
	return s.DeleteBaseErr
}

// AddSource records the call and returns AddSourceErr.
func (s *Store) AddSource(_ context.Context, src knowledge.Source, embedding []float32) error {
	s.record("AddSource", src, embedding)
	return s.AddSourceErr
}

// ListSources records the call and returns ListSourcesResults[baseID],
// ListSourcesErr.
func (s *Store) ListSources(_ context.Context, baseID string) ([]knowledge.Source, error) {
	s.record("ListSources", baseID)
	if s.ListSourcesErr != nil {
		return nil, s.ListSourcesErr
	}
	if sources, ok := s.ListSourcesResults[baseID]; ok {
		return sources, nil
	}
	return []knowledge.Source{}, nil
}

// DeleteSource records the call and returns DeleteSourceErr.
func (s *Store) DeleteSource(_ context.Context, id string) error {
	s.record("DeleteSource", id)
	return s.DeleteSourceErr
}

// Search records the call and returns SearchResults[baseID], SearchErr.
func (s *Store) Search(_ context.Context, baseID string, embedding []float32, topK int) ([]knowledge.SearchResult, error) {
	s.record("Search", baseID, embedding, topK)
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	if results, ok := s.SearchResults[baseID]; ok {
		return results, nil
	}
	return []knowledge.SearchResult{}, nil
}

// Lexicon records the call and returns LexiconResults[baseID], LexiconErr.
func (s *Store) Lexicon(_ context.Context, baseID string) ([]string, error) {
	s.record("Lexicon", baseID)
	if s.LexiconErr != nil {
		return nil, s.LexiconErr
	}
	if titles, ok := s.LexiconResults[baseID]; ok {
		return titles, nil
	}
	return []string{}, nil
}
