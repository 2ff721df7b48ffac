package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/shotflow/api/internal/continuity"
	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/service"
	"github.com/shotflow/api/internal/storage"
	"github.com/shotflow/api/internal/store"
	"github.com/shotflow/api/internal/websocket"
)

// ProjectLocker serializes render work per project.
type ProjectLocker interface {
	Acquire(ctx context.Context, projectID string) (string, error)
	Release(ctx context.Context, projectID, token string) error
}

// RenderWorker processes render jobs: it claims the job, runs the continuity
// pipeline under the project lock, stores the artifact and settles the job.
type RenderWorker struct {
	renderService *service.RenderService
	store         store.Store
	engine        *continuity.Engine
	storage       storage.Client
	locker        ProjectLocker
	hub           *websocket.Hub
}

// NewRenderWorker creates a new render worker
func NewRenderWorker(renderService *service.RenderService, st store.Store, engine *continuity.Engine, storageClient storage.Client, locker ProjectLocker, hub *websocket.Hub) *RenderWorker {
	return &RenderWorker{
		renderService: renderService,
		store:         st,
		engine:        engine,
		storage:       storageClient,
		locker:        locker,
		hub:           hub,
	}
}

// ProcessTask handles one render task delivery.
func (w *RenderWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.RenderTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal render payload: %v: %w", err, asynq.SkipRetry)
	}

	// The claim doubles as the duplicate-delivery guard: a job that is not
	// pending anymore was already picked up or settled, so this delivery ends
	// here without touching anything.
	if err := w.renderService.Claim(ctx, payload.JobID); err != nil {
		log.Printf("Render job %s claim rejected: %v", payload.JobID, err)
		return fmt.Errorf("claim failed for job %s: %v: %w", payload.JobID, err, asynq.SkipRetry)
	}

	log.Printf("Starting render job %s (shot %s)", payload.JobID, payload.ShotID)
	w.hub.BroadcastProgress(payload.JobID, model.JobStatusRunning, "Preparing shot...")

	outputPath, err := w.renderShot(ctx, &payload)
	if err != nil {
		w.failJob(ctx, payload.JobID, err.Error())
		return fmt.Errorf("render job %s failed: %v: %w", payload.JobID, err, asynq.SkipRetry)
	}

	if err := w.renderService.Complete(ctx, payload.JobID, outputPath); err != nil {
		w.failJob(ctx, payload.JobID, "failed to record result: "+err.Error())
		return fmt.Errorf("failed to complete job %s: %v: %w", payload.JobID, err, asynq.SkipRetry)
	}

	w.hub.BroadcastComplete(payload.JobID, outputPath)
	log.Printf("Render job %s completed: %s", payload.JobID, outputPath)
	return nil
}

// renderShot is the single failure boundary of the pipeline. Any error here
// fails the job with its reason captured.
func (w *RenderWorker) renderShot(ctx context.Context, payload *model.RenderTaskPayload) (string, error) {
	shot, err := w.store.GetShot(ctx, payload.ShotID)
	if err != nil {
		return "", fmt.Errorf("shot lookup failed: %w", err)
	}

	// Continuity state is read-modify-write; the project lock keeps
	// concurrent jobs of the same project from interleaving shots.
	token, err := w.locker.Acquire(ctx, payload.ProjectID)
	if err != nil {
		return "", fmt.Errorf("failed to acquire project lock: %w", err)
	}
	defer func() {
		if err := w.locker.Release(context.Background(), payload.ProjectID, token); err != nil {
			log.Printf("Failed to release project lock for %s: %v", payload.ProjectID, err)
		}
	}()

	w.hub.BroadcastProgress(payload.JobID, model.JobStatusRunning, "Generating video...")

	result, err := w.engine.GenerateSegment(ctx, continuity.GenerateRequest{
		ProjectID:       payload.ProjectID,
		BasePrompt:      buildBasePrompt(shot),
		Characters:      payload.Characters,
		DurationSeconds: shot.DurationSeconds,
		CameraType:      shot.CameraType,
		ShotSummary:     shot.Description,
	})
	if err != nil {
		return "", err
	}

	w.hub.BroadcastProgress(payload.JobID, model.JobStatusRunning, "Uploading artifact...")

	key := fmt.Sprintf("renders/%s/%s.mp4", payload.ProjectID, payload.JobID)
	url, err := w.storage.Upload(ctx, key, bytes.NewReader(result.VideoBytes), "video/mp4")
	if err != nil {
		return "", fmt.Errorf("artifact upload failed: %w", err)
	}
	return url, nil
}

// buildBasePrompt folds the shot's cinematography hints into its description.
// Continuity instructions are layered on top by the engine.
func buildBasePrompt(shot *model.Shot) string {
	var b strings.Builder
	b.WriteString(shot.Description)
	if shot.CameraType != "" {
		fmt.Fprintf(&b, "\nCamera: %s.", shot.CameraType)
	}
	if shot.Motion != "" {
		fmt.Fprintf(&b, " Motion: %s.", shot.Motion)
	}
	if shot.ContinuityNotes != "" {
		fmt.Fprintf(&b, "\n%s", shot.ContinuityNotes)
	}
	return b.String()
}

func (w *RenderWorker) failJob(ctx context.Context, jobID, reason string) {
	if err := w.renderService.Fail(ctx, jobID, reason); err != nil {
		log.Printf("Failed to mark job %s as failed: %v", jobID, err)
	}
	w.hub.BroadcastError(jobID, "RENDER_FAILED", reason)
}
