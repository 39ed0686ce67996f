package model

import (
	pgvector "github.com/pgvector/pgvector-go"
)

// EmbeddingDim is the dimension of the embedding model output. Rows whose
// embedding does not have exactly this length are rejected at insert time.
const EmbeddingDim = 768

// RecipeRow is one row of the scraped recipe dataset. Fields mirror the CSV
// columns; missing cells are empty strings.
type RecipeRow struct {
	Name         string `json:"name"`
	TimeToCook   string `json:"time_to_cook"`
	Ingredients  string `json:"ingredients"`
	Instructions string `json:"instructions"`
}

// Recipe is a stored recipe with its embedding. IDs are assigned by
// ingestion order, starting at zero.
type Recipe struct {
	ID           int             `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name         string          `gorm:"size:255" json:"name"`
	TimeToCook   string          `gorm:"size:50" json:"time_to_cook"`
	Ingredients  string          `gorm:"type:text" json:"ingredients"`
	Instructions string          `gorm:"type:text" json:"instructions"`
	Embedding    pgvector.Vector `gorm:"type:vector(768)" json:"-"`
}

// TableName overrides the GORM table name
func (Recipe) TableName() string {
	return "recipes"
}

// RecipeMatch is a search result. Similarity is 1.0 for keyword matches and
// a vector distance for semantic matches.
type RecipeMatch struct {
	Name         string  `json:"name"`
	TimeToCook   string  `json:"time_to_cook"`
	Ingredients  string  `json:"ingredients"`
	Instructions string  `json:"instructions"`
	Similarity   float64 `json:"similarity"`
}
