package service

import (
	"context"

	"github.com/shotflow/api/internal/continuity"
	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/store"
)

// ContinuityService exposes direct reads and writes of per-project continuity
// state to the API surface. Render-driven updates go through the engine.
type ContinuityService struct {
	store  store.ContinuityStore
	engine *continuity.Engine
}

func NewContinuityService(st store.ContinuityStore, engine *continuity.Engine) *ContinuityService {
	return &ContinuityService{
		store:  st,
		engine: engine,
	}
}

// GetState returns the project's continuity state, creating it on first read.
func (s *ContinuityService) GetState(ctx context.Context, projectID, sessionID string) (*model.ContinuityState, error) {
	return s.store.GetOrCreateState(ctx, projectID, sessionID)
}

// GetStateBySession looks up state by session key without creating one.
func (s *ContinuityService) GetStateBySession(ctx context.Context, sessionID string) (*model.ContinuityState, error) {
	return s.store.GetStateBySession(ctx, sessionID)
}

// SetNarrativeFact overwrites one durable fact by key.
func (s *ContinuityService) SetNarrativeFact(ctx context.Context, projectID, sessionID string, req *model.NarrativeFactRequest) (*model.ContinuityState, error) {
	return s.engine.UpdateNarrativeFact(ctx, projectID, sessionID, req.Key, req.Value)
}

// SetActiveCharacters replaces the active anchor set by name and reports how
// many of the requested names resolved to known characters.
func (s *ContinuityService) SetActiveCharacters(ctx context.Context, projectID, sessionID string, req *model.ActiveCharactersRequest) (*model.ContinuityState, int, error) {
	return s.engine.SetActiveCharacters(ctx, projectID, sessionID, req.Names)
}
