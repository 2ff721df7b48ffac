package service

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/shotflow/api/internal/model"
)

// EmbeddingQueue adapts the asynq client to the continuity engine's queue
// dependency for zero-shot anchors.
type EmbeddingQueue struct {
	asynqClient TaskEnqueuer
}

func NewEmbeddingQueue(asynqClient TaskEnqueuer) *EmbeddingQueue {
	return &EmbeddingQueue{asynqClient: asynqClient}
}

// EnqueueExtraction queues DNA extraction for one character.
func (q *EmbeddingQueue) EnqueueExtraction(_ context.Context, characterID string) error {
	payload, err := json.Marshal(model.EmbeddingTaskPayload{CharacterID: characterID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskTypeEmbedding, payload)
	_, err = q.asynqClient.Enqueue(task, asynq.Queue("embedding"), asynq.MaxRetry(3))
	return err
}
