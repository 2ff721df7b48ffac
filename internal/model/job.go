package model

import "time"

// RenderJob is one tracked attempt to generate the video artifact for a
// single shot. Jobs are never deleted; they are the audit trail.
type RenderJob struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	ShotID    string    `json:"shotId"`
	Status    JobStatus `json:"status"`

	// Free-form diagnostics: serialized request data on enqueue, the
	// captured failure reason on fail.
	Payload string `json:"payload,omitempty"`

	OutputPath *string `json:"outputPath,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RenderTaskPayload is the asynq task body for a render job.
type RenderTaskPayload struct {
	JobID      string          `json:"jobId"`
	ProjectID  string          `json:"projectId"`
	ShotID     string          `json:"shotId"`
	Characters []ShotCharacter `json:"characters,omitempty"`
}

// EmbeddingTaskPayload is the asynq task body for async DNA backfill.
type EmbeddingTaskPayload struct {
	CharacterID string `json:"characterId"`
}
