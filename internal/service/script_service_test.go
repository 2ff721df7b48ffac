package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/shotflow/api/internal/client"
	"github.com/shotflow/api/internal/config"
	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/store"
)

// breakdownStub serves a canned chat completion whose content is the given
// breakdown JSON.
func breakdownStub(t *testing.T, structure model.ScriptStructure) *httptest.Server {
	t.Helper()
	content, err := json.Marshal(structure)
	if err != nil {
		t.Fatalf("marshal structure: %v", err)
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": string(content)}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newScriptService(t *testing.T, mem *store.Memory, baseURL string) *ScriptService {
	t.Helper()
	bc := client.NewBreakdownClient(&config.BreakdownConfig{
		BaseURL: baseURL,
		APIKey:  "test",
		Model:   "test-model",
	})
	return NewScriptService(mem, bc)
}

func TestAnalyze(t *testing.T) {
	structure := model.ScriptStructure{
		Scenes: []model.SceneSpec{
			{
				Index: 0, Title: "The Bar", Description: "Night, interior.",
				Shots: []model.ShotSpec{
					{Index: 0, Description: "A man walks into a bar", CameraType: "wide"},
					{Index: 1, Description: "He sits down", CameraType: "medium", DurationSeconds: 5},
				},
			},
			{
				Index: 1, Title: "The Street",
				Shots: []model.ShotSpec{
					{Index: 0, Description: "Rain on the pavement", CameraType: "close-up"},
				},
			},
		},
	}
	srv := breakdownStub(t, structure)
	defer srv.Close()

	mem := store.NewMemory()
	ctx := context.Background()
	projectID := uuid.New().String()
	if err := mem.CreateProject(ctx, &model.Project{ID: projectID, Name: "test"}); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	svc := newScriptService(t, mem, srv.URL)

	resp, err := svc.Analyze(ctx, &model.ScriptAnalyzeRequest{
		ProjectID:  projectID,
		ScriptText: "A man walks into a bar. He sits down. Outside, it rains.",
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if resp.ScenesCreated != 2 || resp.ShotsCreated != 3 {
		t.Errorf("unexpected counts: %+v", resp)
	}

	shots, err := mem.ListShots(ctx, projectID)
	if err != nil {
		t.Fatalf("list shots: %v", err)
	}
	if len(shots) != 3 {
		t.Fatalf("expected 3 shots, got %d", len(shots))
	}
	// Shot indexes are global across scenes.
	for i, s := range shots {
		if s.Index != i {
			t.Errorf("shot %d has index %d", i, s.Index)
		}
	}
	// Missing durations fall back to the default.
	if shots[0].DurationSeconds != defaultShotDurationSeconds {
		t.Errorf("expected default duration, got %d", shots[0].DurationSeconds)
	}
	if shots[1].DurationSeconds != 5 {
		t.Errorf("expected explicit duration kept, got %d", shots[1].DurationSeconds)
	}
}

func TestAnalyze_RefusesOverwriteWithoutFlag(t *testing.T) {
	structure := model.ScriptStructure{
		Scenes: []model.SceneSpec{
			{Title: "One", Shots: []model.ShotSpec{{Description: "a shot"}}},
		},
	}
	srv := breakdownStub(t, structure)
	defer srv.Close()

	mem := store.NewMemory()
	ctx := context.Background()
	projectID := uuid.New().String()
	if err := mem.CreateProject(ctx, &model.Project{ID: projectID, Name: "test"}); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	svc := newScriptService(t, mem, srv.URL)
	req := &model.ScriptAnalyzeRequest{ProjectID: projectID, ScriptText: "a script long enough"}

	if _, err := svc.Analyze(ctx, req); err != nil {
		t.Fatalf("first analyze failed: %v", err)
	}
	if _, err := svc.Analyze(ctx, req); err == nil {
		t.Fatal("expected second analyze rejected without overwriteExisting")
	}

	req.OverwriteExisting = true
	if _, err := svc.Analyze(ctx, req); err != nil {
		t.Fatalf("overwrite analyze failed: %v", err)
	}
	if n, _ := mem.CountShots(ctx, projectID); n != 1 {
		t.Errorf("expected breakdown replaced, got %d shots", n)
	}
}

func TestValidateStructure(t *testing.T) {
	req := &model.ScriptAnalyzeRequest{MaxScenes: 2, MaxShotsPerScene: 2}

	cases := []struct {
		name    string
		in      model.ScriptStructure
		wantErr bool
	}{
		{"no scenes", model.ScriptStructure{}, true},
		{"scene without shots", model.ScriptStructure{
			Scenes: []model.SceneSpec{{Title: "empty"}},
		}, true},
		{"shot without description", model.ScriptStructure{
			Scenes: []model.SceneSpec{{Title: "s", Shots: []model.ShotSpec{{}}}},
		}, true},
		{"too many scenes", model.ScriptStructure{
			Scenes: []model.SceneSpec{
				{Title: "a", Shots: []model.ShotSpec{{Description: "x"}}},
				{Title: "b", Shots: []model.ShotSpec{{Description: "x"}}},
				{Title: "c", Shots: []model.ShotSpec{{Description: "x"}}},
			},
		}, true},
		{"valid", model.ScriptStructure{
			Scenes: []model.SceneSpec{{Title: "a", Shots: []model.ShotSpec{{Description: "x"}}}},
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateStructure(&tc.in, req)
			if (err != nil) != tc.wantErr {
				t.Errorf("validateStructure() error = %v, wantErr %t", err, tc.wantErr)
			}
		})
	}
}
