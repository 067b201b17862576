package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FranAva001/CarMate/internal/catalog"
	"github.com/FranAva001/CarMate/internal/vectorstore"
	"github.com/FranAva001/CarMate/internal/vectorstore/memory"
)

func fakeEmbed(text string) ([]float32, error) {
	// arbitrary but deterministic
	return []float32{float32(len(text)), 1, 0}, nil
}

func testRecords(n int) []catalog.Record {
	records := make([]catalog.Record, n)
	for i := range records {
		records[i] = catalog.Record{
			ID:     fmt.Sprintf("car-%d", i),
			Text:   fmt.Sprintf("Company: Brand%d | Car: Model%d", i, i),
			Fields: map[string]string{"Company Names": fmt.Sprintf("Brand%d", i)},
		}
	}
	return records
}

func TestBuildVectorIndex_FlushesPartialBatch(t *testing.T) {
	store := memory.NewStore()

	count, err := BuildVectorIndex(context.Background(), testRecords(70), fakeEmbed, store, 32)
	require.NoError(t, err)
	assert.Equal(t, 70, count, "two full batches plus a partial one")
	assert.Len(t, store.IDs(), 70)
}

func TestBuildVectorIndex_Idempotent(t *testing.T) {
	store := memory.NewStore()
	records := testRecords(10)

	_, err := BuildVectorIndex(context.Background(), records, fakeEmbed, store, 4)
	require.NoError(t, err)
	first := store.IDs()

	_, err = BuildVectorIndex(context.Background(), records, fakeEmbed, store, 4)
	require.NoError(t, err)
	second := store.IDs()

	sort.Strings(first)
	sort.Strings(second)
	assert.Equal(t, first, second, "re-ingestion must not create duplicate ids")
	assert.Len(t, second, 10)
}

type failingStore struct {
	calls int
}

func (s *failingStore) Upsert(ctx context.Context, entries []vectorstore.Entry) error {
	s.calls++
	if s.calls > 1 {
		return errors.New("boom")
	}
	return nil
}

func (s *failingStore) Query(ctx context.Context, vector []float32, topK int) ([]vectorstore.Match, error) {
	return nil, nil
}

func TestBuildVectorIndex_BatchFailureAborts(t *testing.T) {
	store := &failingStore{}

	count, err := BuildVectorIndex(context.Background(), testRecords(10), fakeEmbed, store, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector upsert failed")
	assert.Equal(t, 4, count, "only the first batch landed before the abort")
	assert.Equal(t, 2, store.calls, "no batches attempted after the failure")
}

func TestBuildVectorIndex_EmbedFailurePropagates(t *testing.T) {
	store := memory.NewStore()
	embed := func(text string) ([]float32, error) { return nil, errors.New("model offline") }

	_, err := BuildVectorIndex(context.Background(), testRecords(1), embed, store, 32)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed")
}

// fakeSearcher records indexed documents and optionally fails some ids.
type fakeSearcher struct {
	docs    map[string]map[string]any
	failing map[string]bool
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{docs: map[string]map[string]any{}, failing: map[string]bool{}}
}

func (f *fakeSearcher) Index(ctx context.Context, id string, doc map[string]any) (string, error) {
	if f.failing[id] {
		return "", errors.New("rejected")
	}
	f.docs[id] = doc
	return id, nil
}

func (f *fakeSearcher) Search(ctx context.Context, query string, size int) ([]map[string]any, error) {
	return nil, nil
}

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cars_info.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSeed_IndexesEachDocument(t *testing.T) {
	searcher := newFakeSearcher()
	path := writeSeed(t, `{"1": {"make": "Foo"}}`)

	report, err := LoadSeed(context.Background(), path, searcher)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)
	assert.Empty(t, report.Failed)
	require.Len(t, searcher.docs, 1)
	assert.Equal(t, "Foo", searcher.docs["1"]["make"])
}

func TestLoadSeed_CollectsPerDocumentFailures(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.failing["2"] = true
	path := writeSeed(t, `{"1": {"make": "Foo"}, "2": {"make": "Bar"}, "3": {"make": "Baz"}}`)

	report, err := LoadSeed(context.Background(), path, searcher)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
	assert.Equal(t, []string{"2"}, report.FailedIDs())
}

func TestLoadSeed_MissingFileMeansEmptySet(t *testing.T) {
	searcher := newFakeSearcher()

	report, err := LoadSeed(context.Background(), filepath.Join(t.TempDir(), "nope.json"), searcher)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Indexed)
	assert.Empty(t, searcher.docs)
}

func TestLoadSeed_MalformedFileFails(t *testing.T) {
	searcher := newFakeSearcher()
	path := writeSeed(t, `not json`)

	_, err := LoadSeed(context.Background(), path, searcher)
	require.Error(t, err)
}
