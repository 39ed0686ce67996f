package service

import (
	"context"

	"github.com/tastevine/backend/internal/model"
)

// Responder generates chat replies. Implementations never return an error;
// failures surface as fallback strings.
type Responder interface {
	Respond(ctx context.Context, message string) string
}

// RecipeSearcher finds stored recipes.
type RecipeSearcher interface {
	SearchByIngredients(ctx context.Context, searchTerm string, limit int) ([]model.RecipeMatch, error)
	SemanticSearch(ctx context.Context, embedding []float32, limit int) ([]model.RecipeMatch, error)
	Count(ctx context.Context) (int64, error)
}

// QueryEmbedder embeds a single search query.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
