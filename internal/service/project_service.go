package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/store"
)

// ProjectService handles project CRUD and shot queries.
type ProjectService struct {
	store store.Store
}

func NewProjectService(st store.Store) *ProjectService {
	return &ProjectService{store: st}
}

func (s *ProjectService) Create(ctx context.Context, name, description string) (*model.Project, error) {
	p := &model.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (*model.Project, error) {
	return s.store.GetProject(ctx, id)
}

func (s *ProjectService) ListShots(ctx context.Context, projectID string) ([]model.Shot, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListShots(ctx, projectID)
}
