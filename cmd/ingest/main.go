// Command ingest runs the batch ingestion pipeline: it reads the scraped
// recipe CSV, generates embeddings through the inference API and bulk-loads
// the rows into the vector store. Interrupted runs resume from the last
// checkpoint when rerun with the same input.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/tastevine/backend/config"
	"github.com/tastevine/backend/internal/database"
	"github.com/tastevine/backend/internal/service"
)

func main() {
	csvPath := flag.String("csv", "data/recipes.csv", "path to the recipe dataset")
	batchSize := flag.Int("batch-size", 32, "number of texts per embedding request")
	reset := flag.Bool("reset", false, "drop and recreate the recipes table before loading")
	flag.Parse()

	runID := uuid.New()
	log.Printf("Starting ingestion run %s", runID)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	generator, err := service.NewEmbeddingGenerator(cfg)
	if err != nil {
		log.Fatalf("Failed to create embedding generator: %v", err)
	}

	store := service.NewVectorStore(db.Gorm)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processor := service.NewDataProcessor(*csvPath)
	texts, metadata, err := processor.ProcessedData()
	if err != nil {
		log.Fatalf("Failed to process recipe data: %v", err)
	}

	recipes, err := generator.ProcessRecipes(ctx, texts, metadata, *batchSize)
	if err != nil {
		// Progress up to the failing batch is checkpointed; rerunning
		// resumes there.
		log.Fatalf("Failed to generate embeddings: %v", err)
	}

	if *reset {
		log.Printf("Recreating recipes table")
		if err := store.ResetSchema(ctx); err != nil {
			log.Fatalf("Failed to reset schema: %v", err)
		}
	}

	if err := store.BulkInsert(ctx, recipes, service.DefaultInsertBatchSize); err != nil {
		log.Fatalf("Failed to insert recipes: %v", err)
	}

	log.Printf("Ingestion run %s complete: %d recipes", runID, len(recipes))
}
