// Package vectorstore defines the vector collection contract used by
// ingestion and retrieval.
package vectorstore

import "context"

// Entry is one upserted vector: a stable id, the embedding values and the
// full source record as metadata. Upserts are keyed by ID, so re-ingesting
// the same record overwrites it.
type Entry struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Match is one ranked result of a similarity query.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// Store persists embeddings and supports nearest-neighbor queries.
type Store interface {
	Upsert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
}
