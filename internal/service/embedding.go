package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	pgvector "github.com/pgvector/pgvector-go"
	"github.com/tastevine/backend/config"
	"github.com/tastevine/backend/internal/model"
)

// EmbeddingGenerator converts recipe texts into fixed-dimension vectors via
// the HuggingFace inference API, checkpointing progress between batches.
type EmbeddingGenerator struct {
	apiURL      string
	token       string
	client      *http.Client
	retry       RetryPolicy
	checkpoints *CheckpointStore

	// batchPause is the courtesy delay after every successful batch
	batchPause time.Duration
}

// NewEmbeddingGenerator creates an EmbeddingGenerator from configuration.
// A missing inference token is fatal at construction.
func NewEmbeddingGenerator(cfg *config.Config) (*EmbeddingGenerator, error) {
	if cfg.HFToken == "" {
		return nil, fmt.Errorf("HF_TOKEN or HF_TOKEN_FILE must be set")
	}

	apiURL := cfg.EmbeddingURL
	if apiURL == "" {
		apiURL = fmt.Sprintf("https://api-inference.huggingface.co/models/%s", cfg.EmbeddingModel)
	}

	checkpoints, err := NewCheckpointStore(cfg.CheckpointDir)
	if err != nil {
		return nil, err
	}

	log.Printf("Initialized embedding generator with model: %s", cfg.EmbeddingModel)
	return &EmbeddingGenerator{
		apiURL:      apiURL,
		token:       cfg.HFToken,
		client:      &http.Client{Timeout: 2 * time.Minute},
		retry:       DefaultRetryPolicy(),
		checkpoints: checkpoints,
		batchPause:  time.Second,
	}, nil
}

// GenerateEmbeddings embeds texts in batches, resuming from a matching
// checkpoint when one exists. The returned embeddings and metadata are index
// aligned and cover every input.
func (g *EmbeddingGenerator) GenerateEmbeddings(ctx context.Context, texts []string, metadata []model.RecipeRow, batchSize int) ([][]float32, []model.RecipeRow, error) {
	if len(texts) != len(metadata) {
		return nil, nil, fmt.Errorf("texts/metadata length mismatch: %d vs %d", len(texts), len(metadata))
	}
	if batchSize <= 0 {
		return nil, nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	log.Printf("Generating embeddings for %d texts", len(texts))

	fingerprint := Fingerprint(texts)
	startBatch := 0
	var embeddings [][]float32
	var processed []model.RecipeRow

	cp, err := g.checkpoints.Load()
	if err != nil {
		log.Printf("Ignoring unreadable checkpoint: %v", err)
	} else if cp != nil {
		if cp.Fingerprint != fingerprint {
			log.Printf("Checkpoint fingerprint does not match current input, starting from scratch")
		} else {
			startBatch = cp.BatchIndex
			embeddings = cp.Embeddings
			processed = cp.Metadata
			log.Printf("Loaded checkpoint from batch %d", cp.BatchIndex)
		}
	}

	totalBatches := (len(texts) + batchSize - 1) / batchSize
	for i := startBatch * batchSize; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batchIndex := i / batchSize
		log.Printf("Processing batch %d/%d", batchIndex+1, totalBatches)

		vectors, err := g.embedBatch(ctx, texts[i:end])
		if err != nil {
			// Persist partial progress before propagating so a rerun
			// resumes at this batch.
			if saveErr := g.checkpoints.Save(&Checkpoint{
				BatchIndex:  batchIndex,
				Fingerprint: fingerprint,
				Embeddings:  embeddings,
				Metadata:    processed,
			}); saveErr != nil {
				log.Printf("Failed to save checkpoint: %v", saveErr)
			}
			return nil, nil, fmt.Errorf("error generating embeddings for batch %d: %w", batchIndex, err)
		}

		embeddings = append(embeddings, vectors...)
		processed = append(processed, metadata[i:end]...)

		// Save checkpoint every 5 batches
		if batchIndex%5 == 0 {
			if err := g.checkpoints.Save(&Checkpoint{
				BatchIndex:  batchIndex + 1,
				Fingerprint: fingerprint,
				Embeddings:  embeddings,
				Metadata:    processed,
			}); err != nil {
				log.Printf("Failed to save checkpoint: %v", err)
			}
		}

		// Small delay between batches as rate-limit courtesy
		if end < len(texts) {
			if err := sleep(ctx, g.batchPause); err != nil {
				return nil, nil, err
			}
		}
	}

	log.Printf("Generated %d embeddings", len(embeddings))
	return embeddings, processed, nil
}

// ProcessRecipes embeds the texts and combines each embedding with its
// metadata row and a sequential id into a storable recipe.
func (g *EmbeddingGenerator) ProcessRecipes(ctx context.Context, texts []string, metadata []model.RecipeRow, batchSize int) ([]model.Recipe, error) {
	embeddings, rows, err := g.GenerateEmbeddings(ctx, texts, metadata, batchSize)
	if err != nil {
		return nil, err
	}

	recipes := make([]model.Recipe, len(rows))
	for i, row := range rows {
		recipes[i] = model.Recipe{
			ID:           i,
			Name:         row.Name,
			TimeToCook:   row.TimeToCook,
			Ingredients:  row.Ingredients,
			Instructions: row.Instructions,
			Embedding:    pgvector.NewVector(embeddings[i]),
		}
	}

	log.Printf("Processed %d recipes with embeddings", len(recipes))
	return recipes, nil
}

// EmbedQuery embeds a single search query
func (g *EmbeddingGenerator) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedBatch issues one API request with retries. Transient failures (503
// model loading, 429 rate limit, 5xx, network faults) share a bounded
// attempt budget with per-class delays; other HTTP errors fail immediately.
func (g *EmbeddingGenerator) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < g.retry.MaxAttempts; attempt++ {
		vectors, err := g.post(ctx, texts)
		if err == nil {
			return vectors, nil
		}

		var te *transientError
		if !errors.As(err, &te) {
			return nil, err
		}
		lastErr = err

		if attempt == g.retry.MaxAttempts-1 {
			break
		}

		wait := g.retry.delay(te, attempt)
		log.Printf("Embedding request failed (attempt %d/%d), retrying in %v: %v", attempt+1, g.retry.MaxAttempts, wait, err)
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("embedding request failed after %d attempts: %w", g.retry.MaxAttempts, lastErr)
}

func (g *EmbeddingGenerator) post(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(map[string][]string{"inputs": texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		if resp.StatusCode == http.StatusServiceUnavailable ||
			resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode >= 500 {
			return nil, &transientError{status: resp.StatusCode, err: statusErr}
		}
		return nil, statusErr
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(vectors))
	}
	return vectors, nil
}
