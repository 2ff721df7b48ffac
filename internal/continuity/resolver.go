package continuity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/store"
)

// Resolution is the outcome of anchor resolution for one shot. Existing
// anchors are injected into the current generation; New entries have no
// visual ground truth yet and are anchored from the shot's output.
type Resolution struct {
	Existing []model.Character
	New      []model.ShotCharacter
}

// AnchorResolver decides, per proposed character, whether to reuse an
// existing identity anchor or defer creation until footage exists.
type AnchorResolver struct {
	characters store.CharacterStore
}

func NewAnchorResolver(characters store.CharacterStore) *AnchorResolver {
	return &AnchorResolver{characters: characters}
}

// Resolve looks up every proposed (name, description) pair by exact,
// case-sensitive name within the project. Found anchors are returned as-is;
// their embeddings and reference image are never touched. Unknown names are
// deferred for post-hoc creation.
func (r *AnchorResolver) Resolve(ctx context.Context, projectID string, proposed []model.ShotCharacter) (*Resolution, error) {
	res := &Resolution{}

	for _, sc := range proposed {
		if sc.Name == "" {
			continue
		}

		char, err := r.characters.GetCharacterByName(ctx, projectID, sc.Name)
		if err != nil {
			if errors.Is(err, store.ErrCharacterNotFound) {
				res.New = append(res.New, sc)
				continue
			}
			return nil, fmt.Errorf("failed to resolve character %q: %w", sc.Name, err)
		}

		res.Existing = append(res.Existing, *char)
	}

	return res, nil
}

// CreateFromOutput mints a zero-shot anchor: the trailing frame of the shot
// that first showed the character becomes their permanent reference image.
// Embeddings stay null until the background extraction fills them. If a
// concurrent shot won the insert race, the winner's anchor is reused.
func (r *AnchorResolver) CreateFromOutput(ctx context.Context, projectID string, sc model.ShotCharacter, anchorFramePath string) (*model.Character, error) {
	desc := sc.Description
	if desc == "" {
		desc = fmt.Sprintf("%s - auto-created from video", sc.Name)
	}

	char := &model.Character{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		Name:         sc.Name,
		Description:  desc,
		RefImagePath: anchorFramePath,
	}

	err := r.characters.CreateCharacter(ctx, char)
	if err != nil {
		if errors.Is(err, store.ErrCharacterExists) {
			return r.characters.GetCharacterByName(ctx, projectID, sc.Name)
		}
		return nil, fmt.Errorf("failed to create anchor for %q: %w", sc.Name, err)
	}

	return char, nil
}
