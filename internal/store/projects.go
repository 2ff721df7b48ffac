package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shotflow/api/internal/model"
)

func (p *Postgres) CreateProject(ctx context.Context, pr *model.Project) error {
	err := p.db.QueryRow(ctx, `
		INSERT INTO projects (id, name, description)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, pr.ID, pr.Name, pr.Description).Scan(&pr.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (p *Postgres) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var pr model.Project
	err := p.db.QueryRow(ctx, `
		SELECT id, name, description, created_at
		FROM projects WHERE id = $1
	`, id).Scan(&pr.ID, &pr.Name, &pr.Description, &pr.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &pr, nil
}

// ReplaceBreakdown swaps in a new scene/shot breakdown in one transaction.
func (p *Postgres) ReplaceBreakdown(ctx context.Context, projectID string, scenes []model.Scene, shots []model.Shot) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM scenes WHERE project_id = $1`, projectID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM shots WHERE project_id = $1`, projectID); err != nil {
		return err
	}

	for i := range scenes {
		s := &scenes[i]
		if err := tx.QueryRow(ctx, `
			INSERT INTO scenes (id, project_id, index, title, description)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`, s.ID, s.ProjectID, s.Index, s.Title, s.Description).Scan(&s.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert scene %d: %w", s.Index, err)
		}
	}

	for i := range shots {
		sh := &shots[i]
		var sceneID any
		if sh.SceneID != "" {
			sceneID = sh.SceneID
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO shots (id, project_id, scene_id, index, description, camera_type, motion, duration_seconds, continuity_notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at
		`, sh.ID, sh.ProjectID, sceneID, sh.Index, sh.Description, sh.CameraType,
			sh.Motion, sh.DurationSeconds, sh.ContinuityNotes).Scan(&sh.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert shot %d: %w", sh.Index, err)
		}
	}

	return tx.Commit(ctx)
}

func (p *Postgres) GetShot(ctx context.Context, id string) (*model.Shot, error) {
	var sh model.Shot
	var sceneID *string
	err := p.db.QueryRow(ctx, `
		SELECT id, project_id, scene_id, index, description, camera_type, motion, duration_seconds, continuity_notes, created_at
		FROM shots WHERE id = $1
	`, id).Scan(&sh.ID, &sh.ProjectID, &sceneID, &sh.Index, &sh.Description,
		&sh.CameraType, &sh.Motion, &sh.DurationSeconds, &sh.ContinuityNotes, &sh.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShotNotFound
		}
		return nil, err
	}
	if sceneID != nil {
		sh.SceneID = *sceneID
	}
	return &sh, nil
}

func (p *Postgres) ListShots(ctx context.Context, projectID string) ([]model.Shot, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, project_id, scene_id, index, description, camera_type, motion, duration_seconds, continuity_notes, created_at
		FROM shots WHERE project_id = $1
		ORDER BY index ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Shot
	for rows.Next() {
		var sh model.Shot
		var sceneID *string
		if err := rows.Scan(&sh.ID, &sh.ProjectID, &sceneID, &sh.Index, &sh.Description,
			&sh.CameraType, &sh.Motion, &sh.DurationSeconds, &sh.ContinuityNotes, &sh.CreatedAt); err != nil {
			return nil, err
		}
		if sceneID != nil {
			sh.SceneID = *sceneID
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateShot(ctx context.Context, sh *model.Shot) error {
	var sceneID any
	if sh.SceneID != "" {
		sceneID = sh.SceneID
	}
	err := p.db.QueryRow(ctx, `
		INSERT INTO shots (id, project_id, scene_id, index, description, camera_type, motion, duration_seconds, continuity_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, sh.ID, sh.ProjectID, sceneID, sh.Index, sh.Description, sh.CameraType,
		sh.Motion, sh.DurationSeconds, sh.ContinuityNotes).Scan(&sh.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create shot: %w", err)
	}
	return nil
}

func (p *Postgres) CountShots(ctx context.Context, projectID string) (int, error) {
	var n int
	err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM shots WHERE project_id = $1`, projectID).Scan(&n)
	return n, err
}
