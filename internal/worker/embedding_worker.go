package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/shotflow/api/internal/client"
	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/store"
)

// EmbeddingWorker back-fills character DNA (face and style vectors, dominant
// colors) from anchor images. It runs in its own failure domain: a failed
// extraction retries without touching any render job.
type EmbeddingWorker struct {
	store     store.CharacterStore
	extractor *client.EmbeddingClient
}

// NewEmbeddingWorker creates a new embedding worker
func NewEmbeddingWorker(st store.CharacterStore, extractor *client.EmbeddingClient) *EmbeddingWorker {
	return &EmbeddingWorker{
		store:     st,
		extractor: extractor,
	}
}

// ProcessTask handles one extraction task delivery.
func (w *EmbeddingWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.EmbeddingTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal embedding payload: %v: %w", err, asynq.SkipRetry)
	}

	char, err := w.store.GetCharacter(ctx, payload.CharacterID)
	if err != nil {
		return fmt.Errorf("character lookup failed: %v: %w", err, asynq.SkipRetry)
	}
	if char.HasEmbeddings() {
		// Embeddings are ground-truth once set; a redelivered task is a no-op.
		return nil
	}
	if !char.Anchored() {
		return fmt.Errorf("character %s has no reference image: %w", char.ID, asynq.SkipRetry)
	}

	identity, err := w.extractor.ExtractIdentity(ctx, char.RefImagePath)
	if err != nil {
		return fmt.Errorf("identity extraction failed for %s: %w", char.ID, err)
	}

	if err := w.store.FillEmbeddings(ctx, char.ID, identity.FaceVector, identity.StyleVector, identity.DominantColors); err != nil {
		return fmt.Errorf("failed to store embeddings for %s: %w", char.ID, err)
	}

	log.Printf("Embeddings filled for character %s (%s)", char.Name, char.ID)
	return nil
}
