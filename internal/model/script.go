package model

// ScriptAnalyzeRequest submits a raw script for scene/shot decomposition.
type ScriptAnalyzeRequest struct {
	ProjectID                 string `json:"projectId" validate:"required,uuid"`
	ScriptText                string `json:"scriptText" validate:"required,min=10"`
	Language                  string `json:"language" validate:"omitempty,len=2"`
	MaxScenes                 int    `json:"maxScenes" validate:"omitempty,min=1,max=50"`
	MaxShotsPerScene          int    `json:"maxShotsPerScene" validate:"omitempty,min=1,max=50"`
	TargetShotDurationSeconds int    `json:"targetShotDurationSeconds" validate:"omitempty,min=1,max=60"`
	OverwriteExisting         bool   `json:"overwriteExisting"`
}

type ScriptAnalyzeResponse struct {
	ProjectID     string `json:"projectId"`
	ScenesCreated int    `json:"scenesCreated"`
	ShotsCreated  int    `json:"shotsCreated"`
}

// ShotSpec and SceneSpec mirror the breakdown service output. They are
// immutable input consumed only to seed shot ordering and metadata.
type ShotSpec struct {
	Index           int    `json:"index"`
	Description     string `json:"description"`
	CameraType      string `json:"camera_type"`
	Motion          string `json:"motion"`
	DurationSeconds int    `json:"duration_seconds"`
	ContinuityNotes string `json:"continuity_notes,omitempty"`
}

type SceneSpec struct {
	Index       int        `json:"index"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Shots       []ShotSpec `json:"shots"`
}

type ScriptStructure struct {
	Scenes []SceneSpec `json:"scenes"`
}
