package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shotflow/api/internal/model"
)

func (p *Postgres) CreateJob(ctx context.Context, j *model.RenderJob) error {
	err := p.db.QueryRow(ctx, `
		INSERT INTO render_jobs (id, project_id, shot_id, status, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, j.ID, j.ProjectID, j.ShotID, j.Status, j.Payload).Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create render job: %w", err)
	}
	return nil
}

func (p *Postgres) GetJob(ctx context.Context, id string) (*model.RenderJob, error) {
	var j model.RenderJob
	err := p.db.QueryRow(ctx, jobSelect+` WHERE id = $1`, id).Scan(
		&j.ID, &j.ProjectID, &j.ShotID, &j.Status, &j.Payload, &j.OutputPath, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &j, nil
}

// MarkRunning claims a pending job. The conditional update is the idempotency
// guard against duplicate dispatch: the second delivery finds no pending row.
func (p *Postgres) MarkRunning(ctx context.Context, id string) error {
	return p.transition(ctx, id, `
		UPDATE render_jobs SET status = 'running', updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`)
}

func (p *Postgres) MarkDone(ctx context.Context, id, outputPath string) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE render_jobs SET status = 'done', output_path = $2, updated_at = now()
		WHERE id = $1 AND status = 'running'
	`, id, outputPath)
	if err != nil {
		return err
	}
	return p.checkTransition(ctx, id, tag.RowsAffected())
}

func (p *Postgres) MarkFailed(ctx context.Context, id, reason string) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE render_jobs SET status = 'failed', payload = $2, updated_at = now()
		WHERE id = $1 AND status = 'running'
	`, id, reason)
	if err != nil {
		return err
	}
	return p.checkTransition(ctx, id, tag.RowsAffected())
}

func (p *Postgres) ListJobsByProject(ctx context.Context, projectID string) ([]model.RenderJob, error) {
	return p.listJobs(ctx, jobSelect+` WHERE project_id = $1 ORDER BY created_at ASC`, projectID)
}

func (p *Postgres) ListJobsByShot(ctx context.Context, shotID string) ([]model.RenderJob, error) {
	return p.listJobs(ctx, jobSelect+` WHERE shot_id = $1 ORDER BY created_at ASC`, shotID)
}

func (p *Postgres) HasOpenJob(ctx context.Context, shotID string) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM render_jobs WHERE shot_id = $1 AND status IN ('pending', 'running')
		)
	`, shotID).Scan(&exists)
	return exists, err
}

const jobSelect = `
	SELECT id, project_id, shot_id, status, payload, output_path, created_at, updated_at
	FROM render_jobs`

func (p *Postgres) listJobs(ctx context.Context, query string, arg any) ([]model.RenderJob, error) {
	rows, err := p.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RenderJob
	for rows.Next() {
		var j model.RenderJob
		if err := rows.Scan(&j.ID, &j.ProjectID, &j.ShotID, &j.Status, &j.Payload,
			&j.OutputPath, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (p *Postgres) transition(ctx context.Context, id, query string) error {
	tag, err := p.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	return p.checkTransition(ctx, id, tag.RowsAffected())
}

func (p *Postgres) checkTransition(ctx context.Context, id string, affected int64) error {
	if affected == 1 {
		return nil
	}
	if _, err := p.GetJob(ctx, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}
