package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/store"
)

const (
	TaskTypeRenderShot = "render:shot"
	TaskTypeEmbedding  = "embedding:extract"
)

// TaskEnqueuer is the slice of *asynq.Client the services depend on.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RenderService owns the render job lifecycle: creation, dispatch, status
// transitions and queries. Workers call back into it to claim and settle jobs.
type RenderService struct {
	store       store.Store
	asynqClient TaskEnqueuer
}

func NewRenderService(st store.Store, asynqClient TaskEnqueuer) *RenderService {
	return &RenderService{
		store:       st,
		asynqClient: asynqClient,
	}
}

// EnqueueShot creates a pending job for one shot and dispatches it. At most
// one open job per shot: a pending or running job short-circuits with an
// error before anything is written.
func (s *RenderService) EnqueueShot(ctx context.Context, req *model.RenderShotRequest) (*model.RenderStartResponse, error) {
	shot, err := s.store.GetShot(ctx, req.ShotID)
	if err != nil {
		return nil, err
	}
	if shot.ProjectID != req.ProjectID {
		return nil, store.ErrShotNotFound
	}

	open, err := s.store.HasOpenJob(ctx, req.ShotID)
	if err != nil {
		return nil, fmt.Errorf("failed to check open jobs: %w", err)
	}
	if open {
		return nil, fmt.Errorf("shot %s already has a render job in flight", req.ShotID)
	}

	return s.createAndDispatch(ctx, req.ProjectID, req.ShotID, req.Characters)
}

// EnqueueProject creates one job per shot of the project, in shot order.
// Shots with a job already in flight are skipped, not failed.
func (s *RenderService) EnqueueProject(ctx context.Context, req *model.RenderProjectRequest) (*model.RenderProjectResponse, error) {
	if _, err := s.store.GetProject(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	shots, err := s.store.ListShots(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shots: %w", err)
	}
	if len(shots) == 0 {
		return nil, fmt.Errorf("project %s has no shots to render", req.ProjectID)
	}

	resp := &model.RenderProjectResponse{TotalShots: len(shots)}
	for _, shot := range shots {
		open, err := s.store.HasOpenJob(ctx, shot.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check open jobs: %w", err)
		}
		if open {
			continue
		}

		started, err := s.createAndDispatch(ctx, req.ProjectID, shot.ID, nil)
		if err != nil {
			return nil, err
		}
		resp.Jobs = append(resp.Jobs, *started)
	}
	return resp, nil
}

func (s *RenderService) createAndDispatch(ctx context.Context, projectID, shotID string, characters []model.ShotCharacter) (*model.RenderStartResponse, error) {
	payload := model.RenderTaskPayload{
		JobID:      uuid.New().String(),
		ProjectID:  projectID,
		ShotID:     shotID,
		Characters: characters,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &model.RenderJob{
		ID:        payload.JobID,
		ProjectID: projectID,
		ShotID:    shotID,
		Status:    model.JobStatusPending,
		Payload:   string(payloadBytes),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	// Retries stay at zero: a redelivered task would find the job already
	// claimed and fail the claim, so duplicates never double-render.
	task := asynq.NewTask(TaskTypeRenderShot, payloadBytes)
	if _, err := s.asynqClient.Enqueue(task,
		asynq.Queue("render"),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	); err != nil {
		// Settle through the state machine so the failure is queryable.
		if claimErr := s.store.MarkRunning(ctx, job.ID); claimErr == nil {
			_ = s.store.MarkFailed(ctx, job.ID, "dispatch failed: "+err.Error())
		}
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.RenderStartResponse{
		JobID:     job.ID,
		ShotID:    shotID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}, nil
}

// Claim moves a pending job to running. A claim that does not find the job
// pending is fatal for the delivery: the job was already claimed or settled.
func (s *RenderService) Claim(ctx context.Context, jobID string) error {
	return s.store.MarkRunning(ctx, jobID)
}

// Complete settles a running job with its artifact location.
func (s *RenderService) Complete(ctx context.Context, jobID, outputPath string) error {
	return s.store.MarkDone(ctx, jobID, outputPath)
}

// Fail settles a running job with the captured failure reason. Terminal jobs
// are immutable, so failing an already settled job reports ErrInvalidTransition.
func (s *RenderService) Fail(ctx context.Context, jobID, reason string) error {
	return s.store.MarkFailed(ctx, jobID, reason)
}

// GetJob returns the current view of one job.
func (s *RenderService) GetJob(ctx context.Context, jobID string) (*model.RenderJobResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	resp := jobResponse(job)
	return &resp, nil
}

// ListProjectJobs returns every job of a project, oldest first.
func (s *RenderService) ListProjectJobs(ctx context.Context, projectID string) ([]model.RenderJobResponse, error) {
	jobs, err := s.store.ListJobsByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return jobResponses(jobs), nil
}

// ListShotJobs returns the attempt history of one shot, oldest first.
func (s *RenderService) ListShotJobs(ctx context.Context, shotID string) ([]model.RenderJobResponse, error) {
	jobs, err := s.store.ListJobsByShot(ctx, shotID)
	if err != nil {
		return nil, err
	}
	return jobResponses(jobs), nil
}

func jobResponse(j *model.RenderJob) model.RenderJobResponse {
	resp := model.RenderJobResponse{
		JobID:     j.ID,
		ProjectID: j.ProjectID,
		ShotID:    j.ShotID,
		Status:    j.Status,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.OutputPath != nil {
		resp.OutputPath = *j.OutputPath
	}
	// Failed jobs carry the failure reason in the payload column.
	if j.Status == model.JobStatusFailed {
		resp.Error = j.Payload
	}
	return resp
}

func jobResponses(jobs []model.RenderJob) []model.RenderJobResponse {
	out := make([]model.RenderJobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, jobResponse(&jobs[i]))
	}
	return out
}
