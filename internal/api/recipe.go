package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tastevine/backend/internal/model"
	"github.com/tastevine/backend/internal/service"
)

// RecipeHandler handles recipe search requests
type RecipeHandler struct {
	store    service.RecipeSearcher
	embedder service.QueryEmbedder
}

// NewRecipeHandler creates a new RecipeHandler instance. The embedder may be
// nil, in which case all searches use ingredient keyword matching.
func NewRecipeHandler(store service.RecipeSearcher, embedder service.QueryEmbedder) *RecipeHandler {
	return &RecipeHandler{store: store, embedder: embedder}
}

// RegisterRoutes registers the recipe routes
func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/recipes/search", h.Search)
}

// Search looks up recipes for the q query parameter. When an embedder is
// available and the store supports it, results are ranked by vector
// distance; otherwise terms are matched against the ingredients column.
func (h *RecipeHandler) Search(c *gin.Context) {
	query := c.Query("q")

	limit := 5
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusOK, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	matches, err := h.search(c, query, limit)
	if err != nil {
		log.Printf("Error searching recipes: %v", err)
		c.JSON(http.StatusOK, gin.H{"error": "Sorry, I encountered an error while searching for recipes. Please try again."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipes": matches})
}

func (h *RecipeHandler) search(c *gin.Context, query string, limit int) ([]model.RecipeMatch, error) {
	ctx := c.Request.Context()

	if h.embedder != nil {
		embedding, err := h.embedder.EmbedQuery(ctx, query)
		if err == nil {
			matches, err := h.store.SemanticSearch(ctx, embedding, limit)
			if err == nil {
				return matches, nil
			}
			if err != service.ErrSemanticSearchUnsupported {
				return nil, err
			}
		} else {
			log.Printf("Falling back to keyword search, query embedding failed: %v", err)
		}
	}

	return h.store.SearchByIngredients(ctx, query, limit)
}
