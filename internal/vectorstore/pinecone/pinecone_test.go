package pinecone

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FranAva001/CarMate/internal/vectorstore"
)

func TestUpsert_SendsKeyedVectors(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Api-Key")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		io.WriteString(w, `{"upsertedCount":1}`)
	}))
	defer srv.Close()

	store := NewStore(Config{Host: srv.URL, APIKey: "pc-key"})
	err := store.Upsert(context.Background(), []vectorstore.Entry{
		{ID: "car-1", Values: []float32{0.1, 0.2}, Metadata: map[string]any{"text": "Company: Fiat"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "/vectors/upsert", gotPath)
	assert.Equal(t, "pc-key", gotKey)

	vectors := gotBody["vectors"].([]any)
	require.Len(t, vectors, 1)
	first := vectors[0].(map[string]any)
	assert.Equal(t, "car-1", first["id"])
	assert.Equal(t, "Company: Fiat", first["metadata"].(map[string]any)["text"])
}

func TestQuery_ParsesMatches(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		io.WriteString(w, `{"matches":[{"id":"car-1","score":0.93,"metadata":{"text":"Company: Fiat"}}]}`)
	}))
	defer srv.Close()

	store := NewStore(Config{Host: srv.URL, APIKey: "pc-key"})
	matches, err := store.Query(context.Background(), []float32{0.1, 0.2}, 3)
	require.NoError(t, err)

	assert.Equal(t, float64(3), gotBody["topK"])
	assert.Equal(t, true, gotBody["includeMetadata"])

	require.Len(t, matches, 1)
	assert.Equal(t, "car-1", matches[0].ID)
	assert.InDelta(t, 0.93, float64(matches[0].Score), 1e-6)
	assert.Equal(t, "Company: Fiat", matches[0].Metadata["text"])
}

func TestUpsert_HTTPErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	store := NewStore(Config{Host: srv.URL, APIKey: "pc-key"})
	err := store.Upsert(context.Background(), []vectorstore.Entry{{ID: "x", Values: []float32{1}}})
	require.Error(t, err)
}
