package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FranAva001/CarMate/internal/vectorstore"
)

func TestQuery_RanksByCosineSimilarity(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Upsert(context.Background(), []vectorstore.Entry{
		{ID: "a", Values: []float32{1, 0}, Metadata: map[string]any{"text": "a"}},
		{ID: "b", Values: []float32{0, 1}, Metadata: map[string]any{"text": "b"}},
		{ID: "c", Values: []float32{0.9, 0.1}, Metadata: map[string]any{"text": "c"}},
	}))

	matches, err := s.Query(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "c", matches[1].ID)
}

func TestUpsert_OverwritesByID(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []vectorstore.Entry{{ID: "a", Values: []float32{1, 0}}}))
	require.NoError(t, s.Upsert(ctx, []vectorstore.Entry{{ID: "a", Values: []float32{0, 1}}}))

	assert.Len(t, s.IDs(), 1)

	matches, err := s.Query(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, float64(matches[0].Score), 1e-6)
}

func TestQuery_TopKLargerThanStore(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Upsert(context.Background(), []vectorstore.Entry{{ID: "a", Values: []float32{1, 0}}}))

	matches, err := s.Query(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
