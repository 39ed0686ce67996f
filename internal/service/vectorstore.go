package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"
	"github.com/tastevine/backend/internal/model"
	"gorm.io/gorm"
)

// DefaultInsertBatchSize is the number of recipes sent per insert statement.
const DefaultInsertBatchSize = 50

// DefaultSearchLimit caps search results when the caller does not say.
const DefaultSearchLimit = 2

// ErrSemanticSearchUnsupported is returned when vector-distance search is
// requested on a dialect without pgvector.
var ErrSemanticSearchUnsupported = errors.New("semantic search requires a postgres vector store")

// VectorStore owns recipe persistence: schema lifecycle, bulk loading and
// search. The underlying GORM handle is backed by a connection pool, so one
// store may serve concurrent requests.
type VectorStore struct {
	db *gorm.DB
}

// NewVectorStore creates a VectorStore on an open database handle
func NewVectorStore(db *gorm.DB) *VectorStore {
	return &VectorStore{db: db}
}

// ResetSchema drops and recreates the recipes table. Destructive; only the
// ingestion driver's rebuild path calls it.
func (s *VectorStore) ResetSchema(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	if s.db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("failed to install pgvector extension: %w", err)
		}
		if err := db.Exec("DROP TABLE IF EXISTS recipes").Error; err != nil {
			return fmt.Errorf("failed to drop recipes table: %w", err)
		}
		if err := db.Exec(`
			CREATE TABLE recipes (
				id INT PRIMARY KEY,
				name VARCHAR(255),
				time_to_cook VARCHAR(50),
				ingredients TEXT,
				instructions TEXT,
				embedding vector(768)
			)
		`).Error; err != nil {
			return fmt.Errorf("failed to create recipes table: %w", err)
		}
		log.Printf("Created recipes table with %d-dimensional vector support", model.EmbeddingDim)
		return nil
	}

	// Non-postgres dialects (sqlite in tests) use GORM auto-migration
	if db.Migrator().HasTable(&model.Recipe{}) {
		if err := db.Migrator().DropTable(&model.Recipe{}); err != nil {
			return fmt.Errorf("failed to drop recipes table: %w", err)
		}
	}
	return db.AutoMigrate(&model.Recipe{})
}

// BulkInsert loads recipes in batches. Embeddings are sanitized (NaN values
// become 0.0) and rows with a wrong dimension are skipped. A failing batch
// is rolled back, logged and skipped; the run continues with the next batch.
func (s *VectorStore) BulkInsert(ctx context.Context, recipes []model.Recipe, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultInsertBatchSize
	}

	totalBatches := (len(recipes) + batchSize - 1) / batchSize
	for i := 0; i < len(recipes); i += batchSize {
		end := i + batchSize
		if end > len(recipes) {
			end = len(recipes)
		}
		batchNum := i/batchSize + 1

		batch := make([]model.Recipe, 0, end-i)
		for _, recipe := range recipes[i:end] {
			vec := sanitizeEmbedding(recipe.Embedding.Slice())
			if len(vec) != model.EmbeddingDim {
				log.Printf("Skipping recipe %d: embedding has %d dimensions, want %d", recipe.ID, len(vec), model.EmbeddingDim)
				continue
			}
			recipe.Embedding = pgvector.NewVector(vec)
			batch = append(batch, recipe)
		}
		if len(batch) == 0 {
			log.Printf("No valid rows to insert in batch %d/%d", batchNum, totalBatches)
			continue
		}

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(&batch).Error
		})
		if err != nil {
			log.Printf("Error inserting batch %d/%d: %v", batchNum, totalBatches, err)
			continue
		}
		log.Printf("Successfully inserted batch %d/%d", batchNum, totalBatches)
	}

	log.Printf("Completed insertion process")
	return nil
}

// SearchByIngredients returns up to limit recipes whose ingredients contain
// any of the comma-separated terms, case-insensitively. This is substring
// matching, not vector search; every match carries a constant similarity of
// 1.0. An empty store or an unusable search term yields an empty result,
// not an error.
func (s *VectorStore) SearchByIngredients(ctx context.Context, searchTerm string, limit int) ([]model.RecipeMatch, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var terms []string
	for _, t := range strings.Split(searchTerm, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		log.Printf("No valid ingredients provided in the search term")
		return []model.RecipeMatch{}, nil
	}

	query := s.db.WithContext(ctx).Model(&model.Recipe{})
	for i, term := range terms {
		if i == 0 {
			query = query.Where("LOWER(ingredients) LIKE ?", "%"+term+"%")
		} else {
			query = query.Or("LOWER(ingredients) LIKE ?", "%"+term+"%")
		}
	}

	var recipes []model.Recipe
	if err := query.Limit(limit).Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to search recipes: %w", err)
	}

	matches := make([]model.RecipeMatch, 0, len(recipes))
	for _, r := range recipes {
		matches = append(matches, model.RecipeMatch{
			Name:         r.Name,
			TimeToCook:   r.TimeToCook,
			Ingredients:  r.Ingredients,
			Instructions: r.Instructions,
			Similarity:   1.0,
		})
	}

	log.Printf("Found %d recipes matching: %q", len(matches), searchTerm)
	return matches, nil
}

// SemanticSearch returns recipes ordered by vector distance to the query
// embedding. Postgres only.
func (s *VectorStore) SemanticSearch(ctx context.Context, embedding []float32, limit int) ([]model.RecipeMatch, error) {
	if s.db.Dialector.Name() != "postgres" {
		return nil, ErrSemanticSearchUnsupported
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var matches []model.RecipeMatch
	err := s.db.WithContext(ctx).Model(&model.Recipe{}).
		Select("name, time_to_cook, ingredients, instructions, embedding <-> ? AS similarity", pgvector.NewVector(embedding)).
		Order("similarity ASC").
		Limit(limit).
		Scan(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to run semantic search: %w", err)
	}
	return matches, nil
}

// Count returns the number of stored recipes
func (s *VectorStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Recipe{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return n, nil
}

// sanitizeEmbedding replaces NaN components with zero
func sanitizeEmbedding(vec []float32) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		if math.IsNaN(float64(v)) {
			out[i] = 0.0
		} else {
			out[i] = v
		}
	}
	return out
}
