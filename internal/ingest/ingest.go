// Package ingest populates the vector collection from the car catalog and
// seeds the search index from the user-submitted document file.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/FranAva001/CarMate/internal/catalog"
	"github.com/FranAva001/CarMate/internal/search"
	"github.com/FranAva001/CarMate/internal/vectorstore"
)

// EmbedFunc computes the embedding vector for one text.
type EmbedFunc func(text string) ([]float32, error)

// BuildVectorIndex embeds every record's text and upserts (id, vector,
// metadata) into the store in fixed-size batches, flushing the final
// partial batch. A failed batch upsert aborts the run: ingestion has no
// rollback, but upserts are keyed by id so re-running is idempotent.
func BuildVectorIndex(ctx context.Context, records []catalog.Record, embed EmbedFunc, store vectorstore.Store, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 32
	}

	count := 0
	batch := make([]vectorstore.Entry, 0, batchSize)
	for _, rec := range records {
		vector, err := embed(rec.Text)
		if err != nil {
			return count, fmt.Errorf("failed to embed record %s: %w", rec.ID, err)
		}
		batch = append(batch, vectorstore.Entry{
			ID:       rec.ID,
			Values:   vector,
			Metadata: rec.Metadata(),
		})

		if len(batch) >= batchSize {
			if err := store.Upsert(ctx, batch); err != nil {
				return count, fmt.Errorf("vector upsert failed: %w", err)
			}
			count += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := store.Upsert(ctx, batch); err != nil {
			return count, fmt.Errorf("vector upsert failed: %w", err)
		}
		count += len(batch)
	}
	return count, nil
}

// Report sums up a seed load: how many documents went in, and what failed.
// Per-document failures are collected here rather than discarded.
type Report struct {
	Indexed int
	Failed  map[string]error
}

// FailedIDs returns the ids of the documents that could not be indexed,
// sorted for stable log output.
func (r *Report) FailedIDs() []string {
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadSeed indexes the id → document mapping from the JSON seed file. A
// missing seed file means an empty document set, not an error.
func LoadSeed(ctx context.Context, path string, searcher search.Searcher) (*Report, error) {
	report := &Report{Failed: make(map[string]error)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info().Str("path", path).Msg("no seed file, search index starts empty")
			return report, nil
		}
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var docs map[string]map[string]any
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	for id, doc := range docs {
		if _, err := searcher.Index(ctx, id, doc); err != nil {
			report.Failed[id] = err
			continue
		}
		report.Indexed++
	}
	return report, nil
}
