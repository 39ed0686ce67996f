package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tastevine/backend/config"
	"github.com/tastevine/backend/internal/model"
	"github.com/tastevine/backend/internal/service"
	"github.com/tastevine/backend/internal/testhelpers"
)

// fakeInferenceServer returns a deterministic 768-dimensional embedding per
// input, so vector distances in the store are predictable.
func fakeInferenceServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Inputs []string `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		vectors := make([][]float32, len(req.Inputs))
		for i, text := range req.Inputs {
			vec := make([]float32, model.EmbeddingDim)
			for j, ch := range []byte(text) {
				vec[j%model.EmbeddingDim] += float32(ch) / 255
			}
			vectors[i] = vec
		}
		require.NoError(t, json.NewEncoder(w).Encode(vectors))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIngestionPipeline(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	srv := fakeInferenceServer(t)

	csvPath := filepath.Join(t.TempDir(), "recipes.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"RecipeName,Ingredients,Instructions,TimeToCook\n"+
			"Chicken Curry,\"chicken, onion, curry powder\",Simmer until tender.,45 minutes\n"+
			"Beef Stew,\"beef, carrot, potato\",Braise low and slow.,2 hours\n"+
			"Tomato Soup,\"tomato, basil, cream\",Blend and heat.,30 minutes\n",
	), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	texts, rows, err := service.NewDataProcessor(csvPath).ProcessedData()
	require.NoError(t, err)
	require.Len(t, texts, 3)

	generator, err := service.NewEmbeddingGenerator(&config.Config{
		HFToken:       "test-token",
		EmbeddingURL:  srv.URL,
		CheckpointDir: t.TempDir(),
	})
	require.NoError(t, err)

	recipes, err := generator.ProcessRecipes(ctx, texts, rows, 2)
	require.NoError(t, err)
	require.Len(t, recipes, 3)

	store := service.NewVectorStore(db)
	require.NoError(t, store.ResetSchema(ctx))
	require.NoError(t, store.BulkInsert(ctx, recipes, service.DefaultInsertBatchSize))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	t.Run("keyword search finds matching ingredients", func(t *testing.T) {
		matches, err := store.SearchByIngredients(ctx, "onion, tomato", 10)

		require.NoError(t, err)
		require.Len(t, matches, 2)
		names := []string{matches[0].Name, matches[1].Name}
		assert.Contains(t, names, "Chicken Curry")
		assert.Contains(t, names, "Tomato Soup")
	})

	t.Run("semantic search ranks the query's own recipe first", func(t *testing.T) {
		embedding, err := generator.EmbedQuery(ctx, texts[1])
		require.NoError(t, err)

		matches, err := store.SemanticSearch(ctx, embedding, 3)

		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "Beef Stew", matches[0].Name)
		assert.InDelta(t, 0, matches[0].Similarity, 1e-4)
	})

	t.Run("reingestion after reset leaves a single copy", func(t *testing.T) {
		require.NoError(t, store.ResetSchema(ctx))
		require.NoError(t, store.BulkInsert(ctx, recipes, service.DefaultInsertBatchSize))

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}
