package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shotflow/api/internal/model"
)

func (p *Postgres) CreateCharacter(ctx context.Context, c *model.Character) error {
	face, style, colors, err := marshalEmbeddings(c)
	if err != nil {
		return err
	}
	err = p.db.QueryRow(ctx, `
		INSERT INTO characters (id, project_id, name, role, description, ref_image_path, face_embedding, style_embedding, dominant_colors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, c.ID, c.ProjectID, c.Name, c.Role, c.Description, c.RefImagePath,
		face, style, colors).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCharacterExists
		}
		return fmt.Errorf("failed to create character: %w", err)
	}
	return nil
}

func (p *Postgres) GetCharacter(ctx context.Context, id string) (*model.Character, error) {
	return p.scanCharacter(p.db.QueryRow(ctx, characterSelect+` WHERE id = $1`, id))
}

func (p *Postgres) GetCharacterByName(ctx context.Context, projectID, name string) (*model.Character, error) {
	// Exact, case-sensitive match scoped to the project.
	return p.scanCharacter(p.db.QueryRow(ctx, characterSelect+` WHERE project_id = $1 AND name = $2`, projectID, name))
}

func (p *Postgres) ListCharacters(ctx context.Context, projectID string) ([]model.Character, error) {
	rows, err := p.db.Query(ctx, characterSelect+` WHERE project_id = $1 ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Character
	for rows.Next() {
		c, err := p.scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// FillEmbeddings only writes rows whose embeddings are still null. A row
// already holding embeddings is identity ground-truth and is skipped.
func (p *Postgres) FillEmbeddings(ctx context.Context, id string, face, style []float64, colors []string) error {
	faceJSON, err := json.Marshal(face)
	if err != nil {
		return err
	}
	styleJSON, err := json.Marshal(style)
	if err != nil {
		return err
	}
	colorsJSON, err := json.Marshal(colors)
	if err != nil {
		return err
	}

	tag, err := p.db.Exec(ctx, `
		UPDATE characters
		SET face_embedding = $2, style_embedding = $3, dominant_colors = $4
		WHERE id = $1 AND face_embedding IS NULL
	`, id, faceJSON, styleJSON, colorsJSON)
	if err != nil {
		return fmt.Errorf("failed to fill embeddings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already anchored; distinguish for the caller.
		if _, err := p.GetCharacter(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

const characterSelect = `
	SELECT id, project_id, name, role, description, ref_image_path, face_embedding, style_embedding, dominant_colors, created_at
	FROM characters`

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *Postgres) scanCharacter(row rowScanner) (*model.Character, error) {
	var c model.Character
	var face, style, colors []byte
	err := row.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Role, &c.Description,
		&c.RefImagePath, &face, &style, &colors, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCharacterNotFound
		}
		return nil, err
	}
	if len(face) > 0 {
		if err := json.Unmarshal(face, &c.FaceEmbedding); err != nil {
			return nil, err
		}
	}
	if len(style) > 0 {
		if err := json.Unmarshal(style, &c.StyleEmbedding); err != nil {
			return nil, err
		}
	}
	if len(colors) > 0 {
		if err := json.Unmarshal(colors, &c.DominantColors); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func marshalEmbeddings(c *model.Character) (face, style, colors []byte, err error) {
	if c.FaceEmbedding != nil {
		if face, err = json.Marshal(c.FaceEmbedding); err != nil {
			return nil, nil, nil, err
		}
	}
	if c.StyleEmbedding != nil {
		if style, err = json.Marshal(c.StyleEmbedding); err != nil {
			return nil, nil, nil, err
		}
	}
	if c.DominantColors != nil {
		if colors, err = json.Marshal(c.DominantColors); err != nil {
			return nil, nil, nil, err
		}
	}
	return face, style, colors, nil
}
