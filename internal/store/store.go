package store

import (
	"context"
	"errors"

	"github.com/shotflow/api/internal/model"
)

var (
	ErrProjectNotFound   = errors.New("project not found")
	ErrShotNotFound      = errors.New("shot not found")
	ErrCharacterNotFound = errors.New("character not found")
	ErrCharacterExists   = errors.New("character name already exists in project")
	ErrJobNotFound       = errors.New("render job not found")
	ErrInvalidTransition = errors.New("invalid job status transition")
)

type ProjectStore interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
}

type SceneStore interface {
	// ReplaceBreakdown atomically replaces a project's scenes and shots with
	// a freshly analyzed breakdown. Nothing is persisted on error.
	ReplaceBreakdown(ctx context.Context, projectID string, scenes []model.Scene, shots []model.Shot) error
	GetShot(ctx context.Context, id string) (*model.Shot, error)
	ListShots(ctx context.Context, projectID string) ([]model.Shot, error)
	CreateShot(ctx context.Context, s *model.Shot) error
	CountShots(ctx context.Context, projectID string) (int, error)
}

type CharacterStore interface {
	// CreateCharacter returns ErrCharacterExists when (project, name) is
	// already taken; callers racing on auto-creation re-read and reuse.
	CreateCharacter(ctx context.Context, c *model.Character) error
	GetCharacter(ctx context.Context, id string) (*model.Character, error)
	GetCharacterByName(ctx context.Context, projectID, name string) (*model.Character, error)
	ListCharacters(ctx context.Context, projectID string) ([]model.Character, error)
	// FillEmbeddings back-fills null embeddings. Embeddings already set are
	// identity ground-truth and are left untouched (no-op, not an error).
	FillEmbeddings(ctx context.Context, id string, face, style []float64, colors []string) error
}

type RenderJobStore interface {
	CreateJob(ctx context.Context, j *model.RenderJob) error
	GetJob(ctx context.Context, id string) (*model.RenderJob, error)
	// The Mark* methods enforce the state machine at the row level:
	// pending->running, running->done, running->failed. Any other
	// transition returns ErrInvalidTransition.
	MarkRunning(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id, outputPath string) error
	MarkFailed(ctx context.Context, id, reason string) error
	ListJobsByProject(ctx context.Context, projectID string) ([]model.RenderJob, error)
	ListJobsByShot(ctx context.Context, shotID string) ([]model.RenderJob, error)
	// HasOpenJob reports whether a non-terminal job exists for the shot.
	HasOpenJob(ctx context.Context, shotID string) (bool, error)
}

type ContinuityStore interface {
	// GetOrCreateState returns the project's state, creating an empty one on
	// first access. sessionID defaults deterministically from projectID when
	// empty. Idempotent.
	GetOrCreateState(ctx context.Context, projectID, sessionID string) (*model.ContinuityState, error)
	// UpdateState persists the full row atomically. Concurrent writers are
	// last-writer-wins unless serialized by a ProjectLocker.
	UpdateState(ctx context.Context, s *model.ContinuityState) error
	GetStateBySession(ctx context.Context, sessionID string) (*model.ContinuityState, error)
}

// Store is the full persistence surface the services depend on.
type Store interface {
	ProjectStore
	SceneStore
	CharacterStore
	RenderJobStore
	ContinuityStore
}

// DefaultSessionID derives the session key used when a caller supplies none.
func DefaultSessionID(projectID string) string {
	return "project:" + projectID
}
