package service

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tastevine/backend/internal/model"
)

const checkpointFile = "embedding_checkpoint.json"

// Checkpoint records partial embedding progress so an interrupted run can
// resume without recomputing finished batches. BatchIndex is the number of
// completed batches, i.e. the next batch to process. The fingerprint binds
// the checkpoint to one input sequence; a checkpoint from a different input
// set is refused rather than silently misaligning embeddings and metadata.
type Checkpoint struct {
	BatchIndex  int               `json:"batch_index"`
	Fingerprint string            `json:"fingerprint"`
	Embeddings  [][]float32       `json:"embeddings"`
	Metadata    []model.RecipeRow `json:"metadata"`
}

// CheckpointStore persists checkpoints as a single JSON file on local disk,
// overwritten on every save.
type CheckpointStore struct {
	dir string
}

// NewCheckpointStore creates the checkpoint directory if needed
func NewCheckpointStore(dir string) (*CheckpointStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &CheckpointStore{dir: dir}, nil
}

// Save writes the checkpoint, replacing any previous one
func (s *CheckpointStore) Save(cp *Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := os.WriteFile(s.path(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	log.Printf("Saved checkpoint at batch %d", cp.BatchIndex)
	return nil
}

// Load returns the stored checkpoint, or nil when none exists
func (s *CheckpointStore) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}

func (s *CheckpointStore) path() string {
	return filepath.Join(s.dir, checkpointFile)
}

// Fingerprint hashes the full input sequence. Texts are length-prefixed so
// concatenation boundaries cannot collide.
func Fingerprint(texts []string) string {
	h := sha256.New()
	var lenBuf [8]byte
	for _, t := range texts {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(t)))
		h.Write(lenBuf[:])
		h.Write([]byte(t))
	}
	return hex.EncodeToString(h.Sum(nil))
}
