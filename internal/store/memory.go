package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shotflow/api/internal/model"
)

// Memory is an in-memory Store used by tests and local development. It
// mirrors the row-level semantics of the Postgres implementation, including
// copy-on-read so callers never alias stored rows.
type Memory struct {
	mu         sync.Mutex
	projects   map[string]model.Project
	shots      map[string]model.Shot
	scenes     map[string]model.Scene
	characters map[string]model.Character
	jobs       map[string]model.RenderJob
	states     map[string]model.ContinuityState
}

func NewMemory() *Memory {
	return &Memory{
		projects:   make(map[string]model.Project),
		shots:      make(map[string]model.Shot),
		scenes:     make(map[string]model.Scene),
		characters: make(map[string]model.Character),
		jobs:       make(map[string]model.RenderJob),
		states:     make(map[string]model.ContinuityState),
	}
}

func (m *Memory) CreateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	m.projects[p.ID] = *p
	return nil
}

func (m *Memory) GetProject(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	return &p, nil
}

func (m *Memory) ReplaceBreakdown(_ context.Context, projectID string, scenes []model.Scene, shots []model.Shot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.scenes {
		if s.ProjectID == projectID {
			delete(m.scenes, id)
		}
	}
	for id, s := range m.shots {
		if s.ProjectID == projectID {
			delete(m.shots, id)
		}
	}
	now := time.Now()
	for _, s := range scenes {
		s.CreatedAt = now
		m.scenes[s.ID] = s
	}
	for _, s := range shots {
		s.CreatedAt = now
		m.shots[s.ID] = s
	}
	return nil
}

func (m *Memory) GetShot(_ context.Context, id string) (*model.Shot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shots[id]
	if !ok {
		return nil, ErrShotNotFound
	}
	return &s, nil
}

func (m *Memory) ListShots(_ context.Context, projectID string) ([]model.Shot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Shot
	for _, s := range m.shots {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (m *Memory) CreateShot(_ context.Context, s *model.Shot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	m.shots[s.ID] = *s
	return nil
}

func (m *Memory) CountShots(_ context.Context, projectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.shots {
		if s.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreateCharacter(_ context.Context, c *model.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.characters {
		if existing.ProjectID == c.ProjectID && existing.Name == c.Name {
			return ErrCharacterExists
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	m.characters[c.ID] = copyCharacter(*c)
	return nil
}

func (m *Memory) GetCharacter(_ context.Context, id string) (*model.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.characters[id]
	if !ok {
		return nil, ErrCharacterNotFound
	}
	cc := copyCharacter(c)
	return &cc, nil
}

func (m *Memory) GetCharacterByName(_ context.Context, projectID, name string) (*model.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.characters {
		if c.ProjectID == projectID && c.Name == name {
			cc := copyCharacter(c)
			return &cc, nil
		}
	}
	return nil, ErrCharacterNotFound
}

func (m *Memory) ListCharacters(_ context.Context, projectID string) ([]model.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Character
	for _, c := range m.characters {
		if c.ProjectID == projectID {
			out = append(out, copyCharacter(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) FillEmbeddings(_ context.Context, id string, face, style []float64, colors []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.characters[id]
	if !ok {
		return ErrCharacterNotFound
	}
	if c.HasEmbeddings() {
		return nil
	}
	c.FaceEmbedding = append([]float64(nil), face...)
	c.StyleEmbedding = append([]float64(nil), style...)
	c.DominantColors = append([]string(nil), colors...)
	m.characters[id] = c
	return nil
}

func (m *Memory) CreateJob(_ context.Context, j *model.RenderJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	m.jobs[j.ID] = *j
	return nil
}

func (m *Memory) GetJob(_ context.Context, id string) (*model.RenderJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &j, nil
}

func (m *Memory) MarkRunning(_ context.Context, id string) error {
	return m.transition(id, model.JobStatusPending, func(j *model.RenderJob) {
		j.Status = model.JobStatusRunning
	})
}

func (m *Memory) MarkDone(_ context.Context, id, outputPath string) error {
	return m.transition(id, model.JobStatusRunning, func(j *model.RenderJob) {
		j.Status = model.JobStatusDone
		j.OutputPath = &outputPath
	})
}

func (m *Memory) MarkFailed(_ context.Context, id, reason string) error {
	return m.transition(id, model.JobStatusRunning, func(j *model.RenderJob) {
		j.Status = model.JobStatusFailed
		j.Payload = reason
	})
}

func (m *Memory) transition(id string, from model.JobStatus, apply func(*model.RenderJob)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if j.Status != from {
		return ErrInvalidTransition
	}
	apply(&j)
	j.UpdatedAt = time.Now()
	m.jobs[id] = j
	return nil
}

func (m *Memory) ListJobsByProject(_ context.Context, projectID string) ([]model.RenderJob, error) {
	return m.listJobs(func(j model.RenderJob) bool { return j.ProjectID == projectID })
}

func (m *Memory) ListJobsByShot(_ context.Context, shotID string) ([]model.RenderJob, error) {
	return m.listJobs(func(j model.RenderJob) bool { return j.ShotID == shotID })
}

func (m *Memory) HasOpenJob(_ context.Context, shotID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.ShotID == shotID && !j.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) listJobs(match func(model.RenderJob) bool) ([]model.RenderJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.RenderJob
	for _, j := range m.jobs {
		if match(j) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) GetOrCreateState(_ context.Context, projectID, sessionID string) (*model.ContinuityState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[projectID]; ok {
		cs := copyState(s)
		return &cs, nil
	}
	if sessionID == "" {
		sessionID = DefaultSessionID(projectID)
	}
	s := model.ContinuityState{
		ProjectID:          projectID,
		SessionID:          sessionID,
		NarrativeContext:   model.NarrativeContext{},
		ActiveCharacterIDs: []string{},
		UpdatedAt:          time.Now(),
	}
	m.states[projectID] = copyState(s)
	cs := copyState(s)
	return &cs, nil
}

func (m *Memory) UpdateState(_ context.Context, s *model.ContinuityState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[s.ProjectID]; !ok {
		return ErrProjectNotFound
	}
	s.UpdatedAt = time.Now()
	m.states[s.ProjectID] = copyState(*s)
	return nil
}

func (m *Memory) GetStateBySession(_ context.Context, sessionID string) (*model.ContinuityState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.states {
		if s.SessionID == sessionID {
			cs := copyState(s)
			return &cs, nil
		}
	}
	return nil, ErrProjectNotFound
}

func copyCharacter(c model.Character) model.Character {
	c.FaceEmbedding = append([]float64(nil), c.FaceEmbedding...)
	c.StyleEmbedding = append([]float64(nil), c.StyleEmbedding...)
	c.DominantColors = append([]string(nil), c.DominantColors...)
	return c
}

func copyState(s model.ContinuityState) model.ContinuityState {
	s.NarrativeContext = append(model.NarrativeContext(nil), s.NarrativeContext...)
	s.ActiveCharacterIDs = append([]string(nil), s.ActiveCharacterIDs...)
	s.GlobalPalette = append([]string(nil), s.GlobalPalette...)
	return s
}
