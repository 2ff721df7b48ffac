package model

import "time"

// RenderShotRequest enqueues a render job for a single shot.
type RenderShotRequest struct {
	ProjectID  string          `json:"projectId" validate:"required,uuid"`
	ShotID     string          `json:"shotId" validate:"required,uuid"`
	Characters []ShotCharacter `json:"characters" validate:"omitempty,dive"`
}

// RenderProjectRequest enqueues render jobs for every shot of a project,
// in shot order.
type RenderProjectRequest struct {
	ProjectID string `json:"projectId" validate:"required,uuid"`
}

type RenderStartResponse struct {
	JobID     string    `json:"jobId"`
	ShotID    string    `json:"shotId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type RenderProjectResponse struct {
	Jobs       []RenderStartResponse `json:"jobs"`
	TotalShots int                   `json:"totalShots"`
}

type RenderJobResponse struct {
	JobID      string    `json:"jobId"`
	ProjectID  string    `json:"projectId"`
	ShotID     string    `json:"shotId"`
	Status     JobStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	OutputPath string    `json:"outputPath,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CharacterRegisterRequest pre-registers an uploaded image as the permanent
// identity anchor for a character.
type CharacterRegisterRequest struct {
	ProjectID   string `json:"projectId" validate:"required,uuid"`
	SessionID   string `json:"sessionId" validate:"omitempty,max=255"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	ImageBase64 string `json:"imageBase64" validate:"required"`
}

type CharacterRegisterResponse struct {
	CharacterID  string `json:"characterId"`
	Name         string `json:"name"`
	RefImagePath string `json:"refImagePath"`
	// DNA extraction runs in the background; embeddings are not yet set.
	EmbeddingQueued bool `json:"embeddingQueued"`
}

// NarrativeFactRequest overwrites one narrative fact by key.
type NarrativeFactRequest struct {
	Key   string `json:"key" validate:"required,max=255"`
	Value string `json:"value" validate:"required,max=2000"`
}

// ActiveCharactersRequest replaces the active character set by name.
type ActiveCharactersRequest struct {
	Names []string `json:"names" validate:"required,dive,max=255"`
}
