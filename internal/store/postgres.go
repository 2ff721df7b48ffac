package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Migrate creates the schema if it does not exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS scenes (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			index INT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS shots (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			scene_id UUID REFERENCES scenes(id) ON DELETE CASCADE,
			index INT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			camera_type TEXT NOT NULL DEFAULT '',
			motion TEXT NOT NULL DEFAULT '',
			duration_seconds INT NOT NULL DEFAULT 4,
			continuity_notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS characters (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			ref_image_path TEXT NOT NULL DEFAULT '',
			face_embedding JSONB,
			style_embedding JSONB,
			dominant_colors JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (project_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS render_jobs (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			shot_id UUID NOT NULL REFERENCES shots(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'pending',
			payload TEXT NOT NULL DEFAULT '',
			output_path TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS continuity_states (
			project_id UUID PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
			session_id TEXT NOT NULL UNIQUE,
			last_frame_path TEXT NOT NULL DEFAULT '',
			narrative_context JSONB NOT NULL DEFAULT '[]',
			active_character_ids JSONB NOT NULL DEFAULT '[]',
			shot_index INT NOT NULL DEFAULT 0,
			last_camera TEXT NOT NULL DEFAULT '',
			last_shot_summary TEXT NOT NULL DEFAULT '',
			global_palette JSONB NOT NULL DEFAULT '[]',
			global_style_hint TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
