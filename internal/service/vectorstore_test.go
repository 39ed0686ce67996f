package service

import (
	"context"
	"math"
	"testing"

	pgvector "github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tastevine/backend/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *VectorStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store := NewVectorStore(db)
	require.NoError(t, store.ResetSchema(context.Background()))
	return store
}

func testRecipe(id int, name, ingredients string) model.Recipe {
	vec := make([]float32, model.EmbeddingDim)
	vec[0] = float32(id)
	return model.Recipe{
		ID:           id,
		Name:         name,
		TimeToCook:   "30 minutes",
		Ingredients:  ingredients,
		Instructions: "Cook until done.",
		Embedding:    pgvector.NewVector(vec),
	}
}

func TestVectorStore_BulkInsert(t *testing.T) {
	t.Run("should insert all valid recipes", func(t *testing.T) {
		store := newTestStore(t)
		recipes := []model.Recipe{
			testRecipe(0, "Chicken Curry", "chicken, onion, curry powder"),
			testRecipe(1, "Beef Stew", "beef, carrot, potato"),
			testRecipe(2, "Tomato Soup", "tomato, basil, cream"),
		}

		require.NoError(t, store.BulkInsert(context.Background(), recipes, 2))

		n, err := store.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("should skip rows with wrong embedding dimension", func(t *testing.T) {
		store := newTestStore(t)
		bad := testRecipe(1, "Broken", "mystery")
		bad.Embedding = pgvector.NewVector([]float32{1, 2, 3})
		recipes := []model.Recipe{
			testRecipe(0, "Chicken Curry", "chicken"),
			bad,
			testRecipe(2, "Tomato Soup", "tomato"),
		}

		require.NoError(t, store.BulkInsert(context.Background(), recipes, 50))

		n, err := store.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("should replace NaN components with zero", func(t *testing.T) {
		store := newTestStore(t)
		recipe := testRecipe(0, "Chicken Curry", "chicken")
		vec := recipe.Embedding.Slice()
		vec[0] = float32(math.NaN())
		vec[1] = 42
		recipe.Embedding = pgvector.NewVector(vec)

		require.NoError(t, store.BulkInsert(context.Background(), []model.Recipe{recipe}, 50))

		var stored model.Recipe
		require.NoError(t, store.db.First(&stored).Error)
		got := stored.Embedding.Slice()
		assert.Equal(t, float32(0), got[0])
		assert.Equal(t, float32(42), got[1])
	})

	t.Run("should continue past a failing batch", func(t *testing.T) {
		store := newTestStore(t)
		recipes := []model.Recipe{
			testRecipe(1, "First", "salt"),
			testRecipe(1, "Duplicate id", "pepper"), // violates the primary key
			testRecipe(2, "Third", "sugar"),
		}

		// Batch size 1 isolates the conflicting row to its own batch.
		require.NoError(t, store.BulkInsert(context.Background(), recipes, 1))

		n, err := store.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}

func TestVectorStore_SearchByIngredients(t *testing.T) {
	seed := func(t *testing.T) *VectorStore {
		store := newTestStore(t)
		require.NoError(t, store.BulkInsert(context.Background(), []model.Recipe{
			testRecipe(0, "Chicken Curry", "Chicken, Onion, Curry Powder"),
			testRecipe(1, "Beef Stew", "Beef, Carrot, Potato"),
			testRecipe(2, "Roast Chicken", "Chicken, Rosemary, Garlic"),
		}, 50))
		return store
	}

	t.Run("should match any comma-separated term", func(t *testing.T) {
		store := seed(t)

		matches, err := store.SearchByIngredients(context.Background(), "onion, tomato, chicken", 10)

		require.NoError(t, err)
		require.Len(t, matches, 2)
		names := []string{matches[0].Name, matches[1].Name}
		assert.Contains(t, names, "Chicken Curry")
		assert.Contains(t, names, "Roast Chicken")
		assert.NotContains(t, names, "Beef Stew")
	})

	t.Run("should match case-insensitively", func(t *testing.T) {
		store := seed(t)

		matches, err := store.SearchByIngredients(context.Background(), "CARROT", 10)

		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "Beef Stew", matches[0].Name)
	})

	t.Run("should honor the result limit", func(t *testing.T) {
		store := seed(t)

		matches, err := store.SearchByIngredients(context.Background(), "chicken", 1)

		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	t.Run("should apply the default limit when unset", func(t *testing.T) {
		store := newTestStore(t)
		var recipes []model.Recipe
		for i := 0; i < 5; i++ {
			recipes = append(recipes, testRecipe(i, "Salted Dish", "salt"))
		}
		require.NoError(t, store.BulkInsert(context.Background(), recipes, 50))

		matches, err := store.SearchByIngredients(context.Background(), "salt", 0)

		require.NoError(t, err)
		assert.Len(t, matches, DefaultSearchLimit)
	})

	t.Run("should report constant similarity", func(t *testing.T) {
		store := seed(t)

		matches, err := store.SearchByIngredients(context.Background(), "beef", 10)

		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, 1.0, matches[0].Similarity)
	})

	t.Run("should return empty result for blank terms", func(t *testing.T) {
		store := seed(t)

		for _, term := range []string{"", "   ", ", ,"} {
			matches, err := store.SearchByIngredients(context.Background(), term, 10)

			require.NoError(t, err)
			assert.Empty(t, matches)
		}
	})

	t.Run("should return empty result on empty store", func(t *testing.T) {
		store := newTestStore(t)

		matches, err := store.SearchByIngredients(context.Background(), "chicken", 10)

		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestVectorStore_SemanticSearch(t *testing.T) {
	t.Run("should be refused off postgres", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.SemanticSearch(context.Background(), make([]float32, model.EmbeddingDim), 5)

		assert.ErrorIs(t, err, ErrSemanticSearchUnsupported)
	})
}

func TestVectorStore_ResetSchema(t *testing.T) {
	t.Run("should clear previously stored recipes", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.BulkInsert(context.Background(), []model.Recipe{
			testRecipe(0, "Chicken Curry", "chicken"),
		}, 50))

		require.NoError(t, store.ResetSchema(context.Background()))

		n, err := store.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}
