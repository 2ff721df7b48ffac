package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/store"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func seedProjectWithShot(t *testing.T, mem *store.Memory) (projectID, shotID string) {
	t.Helper()
	ctx := context.Background()
	projectID = uuid.New().String()
	shotID = uuid.New().String()
	if err := mem.CreateProject(ctx, &model.Project{ID: projectID, Name: "test"}); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	if err := mem.CreateShot(ctx, &model.Shot{ID: shotID, ProjectID: projectID, Description: "a man walks into a bar"}); err != nil {
		t.Fatalf("seed shot: %v", err)
	}
	return projectID, shotID
}

func TestEnqueueShot(t *testing.T) {
	mem := store.NewMemory()
	enq := &fakeEnqueuer{}
	svc := NewRenderService(mem, enq)
	projectID, shotID := seedProjectWithShot(t, mem)

	resp, err := svc.EnqueueShot(context.Background(), &model.RenderShotRequest{
		ProjectID: projectID,
		ShotID:    shotID,
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if resp.Status != model.JobStatusPending {
		t.Errorf("expected pending, got %s", resp.Status)
	}
	if len(enq.tasks) != 1 || enq.tasks[0].Type() != TaskTypeRenderShot {
		t.Errorf("expected one %s task, got %v", TaskTypeRenderShot, enq.tasks)
	}

	job, err := mem.GetJob(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if job.ShotID != shotID || job.Status != model.JobStatusPending {
		t.Errorf("unexpected job row: %+v", job)
	}
}

func TestEnqueueShot_RejectsSecondOpenJob(t *testing.T) {
	mem := store.NewMemory()
	svc := NewRenderService(mem, &fakeEnqueuer{})
	projectID, shotID := seedProjectWithShot(t, mem)
	req := &model.RenderShotRequest{ProjectID: projectID, ShotID: shotID}

	if _, err := svc.EnqueueShot(context.Background(), req); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if _, err := svc.EnqueueShot(context.Background(), req); err == nil {
		t.Fatal("expected second enqueue rejected while job is open")
	}
}

func TestEnqueueShot_AllowedAfterTerminal(t *testing.T) {
	mem := store.NewMemory()
	svc := NewRenderService(mem, &fakeEnqueuer{})
	projectID, shotID := seedProjectWithShot(t, mem)
	ctx := context.Background()
	req := &model.RenderShotRequest{ProjectID: projectID, ShotID: shotID}

	first, err := svc.EnqueueShot(ctx, req)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := svc.Claim(ctx, first.JobID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := svc.Fail(ctx, first.JobID, "backend down"); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	// A settled attempt does not block a retry; history accumulates.
	second, err := svc.EnqueueShot(ctx, req)
	if err != nil {
		t.Fatalf("re-enqueue after failure rejected: %v", err)
	}
	history, err := svc.ListShotJobs(ctx, shotID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 attempts in history, got %d", len(history))
	}
	if history[0].JobID != first.JobID || history[1].JobID != second.JobID {
		t.Errorf("history out of order: %+v", history)
	}
	if history[0].Error != "backend down" {
		t.Errorf("expected failure reason preserved, got %q", history[0].Error)
	}
}

func TestEnqueueShot_WrongProject(t *testing.T) {
	mem := store.NewMemory()
	svc := NewRenderService(mem, &fakeEnqueuer{})
	_, shotID := seedProjectWithShot(t, mem)

	_, err := svc.EnqueueShot(context.Background(), &model.RenderShotRequest{
		ProjectID: uuid.New().String(),
		ShotID:    shotID,
	})
	if !errors.Is(err, store.ErrShotNotFound) {
		t.Errorf("expected shot not found for foreign project, got %v", err)
	}
}

func TestJobLifecycleTransitions(t *testing.T) {
	mem := store.NewMemory()
	svc := NewRenderService(mem, &fakeEnqueuer{})
	projectID, shotID := seedProjectWithShot(t, mem)
	ctx := context.Background()

	resp, err := svc.EnqueueShot(ctx, &model.RenderShotRequest{ProjectID: projectID, ShotID: shotID})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	jobID := resp.JobID

	// Completing before claiming is invalid.
	if err := svc.Complete(ctx, jobID, "/out.mp4"); !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("expected invalid transition for pending->done, got %v", err)
	}

	if err := svc.Claim(ctx, jobID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	// Double claim is the duplicate-delivery guard.
	if err := svc.Claim(ctx, jobID); !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("expected second claim rejected, got %v", err)
	}

	if err := svc.Complete(ctx, jobID, "/out.mp4"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	// Terminal jobs are immutable.
	if err := svc.Fail(ctx, jobID, "late failure"); !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("expected terminal job immutable, got %v", err)
	}

	job, err := svc.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if job.Status != model.JobStatusDone || job.OutputPath != "/out.mp4" {
		t.Errorf("unexpected final job: %+v", job)
	}
}

func TestEnqueueProject_SkipsShotsWithOpenJobs(t *testing.T) {
	mem := store.NewMemory()
	svc := NewRenderService(mem, &fakeEnqueuer{})
	ctx := context.Background()
	projectID := uuid.New().String()
	if err := mem.CreateProject(ctx, &model.Project{ID: projectID, Name: "test"}); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	shotIDs := make([]string, 3)
	for i := range shotIDs {
		shotIDs[i] = uuid.New().String()
		if err := mem.CreateShot(ctx, &model.Shot{ID: shotIDs[i], ProjectID: projectID, Index: i, Description: "shot"}); err != nil {
			t.Fatalf("seed shot: %v", err)
		}
	}

	if _, err := svc.EnqueueShot(ctx, &model.RenderShotRequest{ProjectID: projectID, ShotID: shotIDs[1]}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	resp, err := svc.EnqueueProject(ctx, &model.RenderProjectRequest{ProjectID: projectID})
	if err != nil {
		t.Fatalf("enqueue project failed: %v", err)
	}
	if resp.TotalShots != 3 {
		t.Errorf("expected 3 total shots, got %d", resp.TotalShots)
	}
	if len(resp.Jobs) != 2 {
		t.Fatalf("expected 2 new jobs, got %d", len(resp.Jobs))
	}
	// Shot order preserved for the shots that did get jobs.
	if resp.Jobs[0].ShotID != shotIDs[0] || resp.Jobs[1].ShotID != shotIDs[2] {
		t.Errorf("unexpected job order: %+v", resp.Jobs)
	}
}

func TestEnqueueShot_DispatchFailureSettlesJob(t *testing.T) {
	mem := store.NewMemory()
	svc := NewRenderService(mem, &fakeEnqueuer{err: errors.New("redis down")})
	projectID, shotID := seedProjectWithShot(t, mem)
	ctx := context.Background()

	if _, err := svc.EnqueueShot(ctx, &model.RenderShotRequest{ProjectID: projectID, ShotID: shotID}); err == nil {
		t.Fatal("expected enqueue error when dispatch fails")
	}

	jobs, err := svc.ListShotJobs(ctx, shotID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != model.JobStatusFailed {
		t.Fatalf("expected one failed job, got %+v", jobs)
	}

	// The shot is free for a retry.
	open, err := mem.HasOpenJob(ctx, shotID)
	if err != nil || open {
		t.Errorf("expected no open job after dispatch failure, open=%t err=%v", open, err)
	}
}
