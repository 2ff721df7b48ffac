package model

import "time"

// Project groups characters, scenes, shots and continuity state.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Scene is a coherent location/time block produced by script breakdown.
type Scene struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	Index       int       `json:"index"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Shot is the smallest cinematic unit; one render job targets one shot.
type Shot struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"projectId"`
	SceneID         string    `json:"sceneId,omitempty"`
	Index           int       `json:"index"`
	Description     string    `json:"description"`
	CameraType      string    `json:"cameraType,omitempty"`
	Motion          string    `json:"motion,omitempty"`
	DurationSeconds int       `json:"durationSeconds"`
	ContinuityNotes string    `json:"continuityNotes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
