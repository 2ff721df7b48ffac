package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/store"
)

// CharacterService pre-registers identity anchors from uploaded images and
// serves character queries. The zero-shot path (anchors minted from render
// output) lives in the continuity engine; this is the explicit path.
type CharacterService struct {
	store       store.Store
	asynqClient TaskEnqueuer
	mediaRoot   string
}

func NewCharacterService(st store.Store, asynqClient TaskEnqueuer, mediaRoot string) *CharacterService {
	return &CharacterService{
		store:       st,
		asynqClient: asynqClient,
		mediaRoot:   mediaRoot,
	}
}

// Register saves the uploaded image as the character's permanent anchor,
// activates the character for the project, and queues DNA extraction.
func (s *CharacterService) Register(ctx context.Context, req *model.CharacterRegisterRequest) (*model.CharacterRegisterResponse, error) {
	if _, err := s.store.GetProject(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	imagePath, err := s.saveAnchorImage(req.ProjectID, req.Name, req.ImageBase64)
	if err != nil {
		return nil, err
	}

	char := &model.Character{
		ID:           uuid.New().String(),
		ProjectID:    req.ProjectID,
		Name:         req.Name,
		Description:  req.Description,
		RefImagePath: imagePath,
	}
	if err := s.store.CreateCharacter(ctx, char); err != nil {
		os.Remove(imagePath)
		return nil, err
	}

	if err := s.activate(ctx, req.ProjectID, req.SessionID, char.ID); err != nil {
		return nil, err
	}

	queued := s.enqueueExtraction(ctx, char.ID) == nil

	return &model.CharacterRegisterResponse{
		CharacterID:     char.ID,
		Name:            char.Name,
		RefImagePath:    char.RefImagePath,
		EmbeddingQueued: queued,
	}, nil
}

// List returns the project's characters, oldest first.
func (s *CharacterService) List(ctx context.Context, projectID string) ([]model.Character, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListCharacters(ctx, projectID)
}

// Get returns a single character by ID.
func (s *CharacterService) Get(ctx context.Context, id string) (*model.Character, error) {
	return s.store.GetCharacter(ctx, id)
}

// EnqueueExtraction queues DNA backfill for an existing anchored character.
func (s *CharacterService) EnqueueExtraction(ctx context.Context, characterID string) error {
	char, err := s.store.GetCharacter(ctx, characterID)
	if err != nil {
		return err
	}
	if !char.Anchored() {
		return fmt.Errorf("character %s has no reference image", characterID)
	}
	return s.enqueueExtraction(ctx, characterID)
}

func (s *CharacterService) saveAnchorImage(projectID, name, imageBase64 string) (string, error) {
	// Tolerate data URL prefixes from browser uploads.
	if idx := strings.Index(imageBase64, ","); idx != -1 && strings.HasPrefix(imageBase64, "data:") {
		imageBase64 = imageBase64[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", fmt.Errorf("invalid image encoding: %w", err)
	}

	dir := filepath.Join(s.mediaRoot, "characters")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create characters dir: %w", err)
	}

	slug := strings.ReplaceAll(strings.ToLower(name), " ", "-")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s_anchor.jpg", projectID, slug))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save anchor image: %w", err)
	}
	return path, nil
}

func (s *CharacterService) activate(ctx context.Context, projectID, sessionID, characterID string) error {
	state, err := s.store.GetOrCreateState(ctx, projectID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load continuity state: %w", err)
	}
	for _, id := range state.ActiveCharacterIDs {
		if id == characterID {
			return nil
		}
	}
	state.ActiveCharacterIDs = append(state.ActiveCharacterIDs, characterID)
	if err := s.store.UpdateState(ctx, state); err != nil {
		return fmt.Errorf("failed to persist continuity state: %w", err)
	}
	return nil
}

func (s *CharacterService) enqueueExtraction(ctx context.Context, characterID string) error {
	payload, err := json.Marshal(model.EmbeddingTaskPayload{CharacterID: characterID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskTypeEmbedding, payload)
	_, err = s.asynqClient.Enqueue(task, asynq.Queue("embedding"), asynq.MaxRetry(3))
	return err
}
