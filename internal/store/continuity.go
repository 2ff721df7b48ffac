package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shotflow/api/internal/model"
)

func (p *Postgres) GetOrCreateState(ctx context.Context, projectID, sessionID string) (*model.ContinuityState, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID(projectID)
	}

	s, err := p.getState(ctx, `project_id = $1`, projectID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Lazy creation on first access. ON CONFLICT covers the race where two
	// workers touch a fresh project at once.
	_, err = p.db.Exec(ctx, `
		INSERT INTO continuity_states (project_id, session_id)
		VALUES ($1, $2)
		ON CONFLICT (project_id) DO NOTHING
	`, projectID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create continuity state: %w", err)
	}

	s, err = p.getState(ctx, `project_id = $1`, projectID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Postgres) UpdateState(ctx context.Context, s *model.ContinuityState) error {
	nc, err := s.NarrativeContext.MarshalJSONB()
	if err != nil {
		return err
	}
	active, err := json.Marshal(nonNil(s.ActiveCharacterIDs))
	if err != nil {
		return err
	}
	palette, err := json.Marshal(nonNil(s.GlobalPalette))
	if err != nil {
		return err
	}

	// Full-row write, last-writer-wins. Callers wanting ordered continuity
	// propagation hold the per-project lock around read-modify-write.
	err = p.db.QueryRow(ctx, `
		UPDATE continuity_states
		SET last_frame_path = $2,
		    narrative_context = $3,
		    active_character_ids = $4,
		    shot_index = $5,
		    last_camera = $6,
		    last_shot_summary = $7,
		    global_palette = $8,
		    global_style_hint = $9,
		    updated_at = now()
		WHERE project_id = $1
		RETURNING updated_at
	`, s.ProjectID, s.LastFramePath, nc, active, s.ShotIndex, s.LastCamera,
		s.LastShotSummary, palette, s.GlobalStyleHint).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to update continuity state: %w", err)
	}
	return nil
}

func (p *Postgres) GetStateBySession(ctx context.Context, sessionID string) (*model.ContinuityState, error) {
	s, err := p.getState(ctx, `session_id = $1`, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return s, nil
}

func (p *Postgres) getState(ctx context.Context, where string, arg any) (*model.ContinuityState, error) {
	var s model.ContinuityState
	var nc, active, palette []byte
	err := p.db.QueryRow(ctx, `
		SELECT project_id, session_id, last_frame_path, narrative_context, active_character_ids,
		       shot_index, last_camera, last_shot_summary, global_palette, global_style_hint, updated_at
		FROM continuity_states WHERE `+where, arg).Scan(
		&s.ProjectID, &s.SessionID, &s.LastFramePath, &nc, &active,
		&s.ShotIndex, &s.LastCamera, &s.LastShotSummary, &palette, &s.GlobalStyleHint, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if s.NarrativeContext, err = model.UnmarshalNarrativeContext(nc); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(active, &s.ActiveCharacterIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(palette, &s.GlobalPalette); err != nil {
		return nil, err
	}
	return &s, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
