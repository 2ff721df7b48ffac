package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shotflow/api/internal/client"
	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/store"
)

const (
	defaultShotDurationSeconds = 8
	maxScenesHardCap           = 50
	maxShotsPerSceneHardCap    = 50
)

// ScriptService turns a raw script into persisted scenes and shots via the
// breakdown model.
type ScriptService struct {
	store     store.Store
	breakdown *client.BreakdownClient
}

func NewScriptService(st store.Store, breakdown *client.BreakdownClient) *ScriptService {
	return &ScriptService{
		store:     st,
		breakdown: breakdown,
	}
}

// Analyze decomposes the script and replaces the project's breakdown. The
// replace is atomic: a failed analysis leaves existing scenes untouched.
func (s *ScriptService) Analyze(ctx context.Context, req *model.ScriptAnalyzeRequest) (*model.ScriptAnalyzeResponse, error) {
	if _, err := s.store.GetProject(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	if !req.OverwriteExisting {
		n, err := s.store.CountShots(ctx, req.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to count shots: %w", err)
		}
		if n > 0 {
			return nil, fmt.Errorf("project %s already has a breakdown; set overwriteExisting to replace it", req.ProjectID)
		}
	}

	structure, err := s.breakdown.AnalyzeScript(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("script analysis failed: %w", err)
	}
	if err := validateStructure(structure, req); err != nil {
		return nil, err
	}

	scenes, shots := s.materialize(req.ProjectID, structure, req.TargetShotDurationSeconds)
	if err := s.store.ReplaceBreakdown(ctx, req.ProjectID, scenes, shots); err != nil {
		return nil, fmt.Errorf("failed to persist breakdown: %w", err)
	}

	return &model.ScriptAnalyzeResponse{
		ProjectID:     req.ProjectID,
		ScenesCreated: len(scenes),
		ShotsCreated:  len(shots),
	}, nil
}

// validateStructure rejects malformed or oversized breakdown output before
// anything is persisted.
func validateStructure(structure *model.ScriptStructure, req *model.ScriptAnalyzeRequest) error {
	if len(structure.Scenes) == 0 {
		return fmt.Errorf("breakdown produced no scenes")
	}

	maxScenes := req.MaxScenes
	if maxScenes <= 0 || maxScenes > maxScenesHardCap {
		maxScenes = maxScenesHardCap
	}
	if len(structure.Scenes) > maxScenes {
		return fmt.Errorf("breakdown produced %d scenes, limit is %d", len(structure.Scenes), maxScenes)
	}

	maxShots := req.MaxShotsPerScene
	if maxShots <= 0 || maxShots > maxShotsPerSceneHardCap {
		maxShots = maxShotsPerSceneHardCap
	}
	for _, scene := range structure.Scenes {
		if len(scene.Shots) == 0 {
			return fmt.Errorf("scene %q has no shots", scene.Title)
		}
		if len(scene.Shots) > maxShots {
			return fmt.Errorf("scene %q has %d shots, limit is %d", scene.Title, len(scene.Shots), maxShots)
		}
		for _, shot := range scene.Shots {
			if shot.Description == "" {
				return fmt.Errorf("scene %q contains a shot with no description", scene.Title)
			}
		}
	}
	return nil
}

// materialize assigns IDs and global shot ordering. Shot indexes run across
// the whole project so render order matches narrative order.
func (s *ScriptService) materialize(projectID string, structure *model.ScriptStructure, targetDuration int) ([]model.Scene, []model.Shot) {
	if targetDuration <= 0 {
		targetDuration = defaultShotDurationSeconds
	}

	var scenes []model.Scene
	var shots []model.Shot
	shotIndex := 0

	for sceneIdx, spec := range structure.Scenes {
		scene := model.Scene{
			ID:          uuid.New().String(),
			ProjectID:   projectID,
			Index:       sceneIdx,
			Title:       spec.Title,
			Description: spec.Description,
		}
		scenes = append(scenes, scene)

		for _, shotSpec := range spec.Shots {
			duration := shotSpec.DurationSeconds
			if duration <= 0 {
				duration = targetDuration
			}
			shots = append(shots, model.Shot{
				ID:              uuid.New().String(),
				ProjectID:       projectID,
				SceneID:         scene.ID,
				Index:           shotIndex,
				Description:     shotSpec.Description,
				CameraType:      shotSpec.CameraType,
				Motion:          shotSpec.Motion,
				DurationSeconds: duration,
				ContinuityNotes: shotSpec.ContinuityNotes,
			})
			shotIndex++
		}
	}
	return scenes, shots
}
