// Package memory is a brute-force in-memory vector store, used in tests and
// when running without a hosted index.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/FranAva001/CarMate/internal/vectorstore"
)

type Store struct {
	mu      sync.RWMutex
	entries map[string]vectorstore.Entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]vectorstore.Entry)}
}

func (s *Store) Upsert(ctx context.Context, entries []vectorstore.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return nil
}

func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]vectorstore.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 3
	}

	matches := make([]vectorstore.Match, 0, len(s.entries))
	for _, e := range s.entries {
		matches = append(matches, vectorstore.Match{
			ID:       e.ID,
			Score:    cosineSimilarity(vector, e.Values),
			Metadata: e.Metadata,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// IDs returns the ids currently held, in no particular order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

func cosineSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, magA, magB float32
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, v := range a {
		magA += v * v
	}
	for _, v := range b {
		magB += v * v
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(magA))) * float32(math.Sqrt(float64(magB))))
}
