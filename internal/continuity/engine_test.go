package continuity

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/store"
)

type fakeBackend struct {
	videoBytes []byte
	err        error
	calls      int
	lastPrompt string
	lastRefs   []Reference
}

func (f *fakeBackend) Submit(_ context.Context, prompt string, refs []Reference, _ int, _ *int64) ([]byte, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastRefs = refs
	if f.err != nil {
		return nil, f.err
	}
	return f.videoBytes, nil
}

type fakeFrames struct {
	fail  bool
	calls int
}

func (f *fakeFrames) ExtractLastFrame(_ context.Context, _, outputPath string) error {
	f.calls++
	if f.fail {
		return errors.New("ffmpeg exited with status 1")
	}
	return os.WriteFile(outputPath, []byte("jpeg"), 0o644)
}

type fakeEmbeddings struct {
	enqueued []string
}

func (f *fakeEmbeddings) EnqueueExtraction(_ context.Context, characterID string) error {
	f.enqueued = append(f.enqueued, characterID)
	return nil
}

func newTestEngine(t *testing.T, mem *store.Memory, backend *fakeBackend, frames *fakeFrames, embeds *fakeEmbeddings) *Engine {
	t.Helper()
	return NewEngine(mem, mem, backend, frames, embeds, t.TempDir())
}

func TestGenerateSegment_FirstShotZeroShotAnchor(t *testing.T) {
	mem := store.NewMemory()
	backend := &fakeBackend{videoBytes: []byte("mp4")}
	frames := &fakeFrames{}
	embeds := &fakeEmbeddings{}
	eng := newTestEngine(t, mem, backend, frames, embeds)
	projectID := uuid.New().String()

	result, err := eng.GenerateSegment(context.Background(), GenerateRequest{
		ProjectID:  projectID,
		BasePrompt: "A man walks into a bar",
		Characters: []model.ShotCharacter{{Name: "Joe"}},
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// Joe was unknown, so the generation itself ran unconditioned.
	if len(result.References) != 0 {
		t.Errorf("expected empty reference set for first shot, got %+v", result.References)
	}
	if string(result.VideoBytes) != "mp4" {
		t.Errorf("unexpected video bytes: %q", result.VideoBytes)
	}

	// Joe is anchored post-hoc from the output's trailing frame.
	joe, err := mem.GetCharacterByName(context.Background(), projectID, "Joe")
	if err != nil {
		t.Fatalf("Joe not anchored: %v", err)
	}
	if joe.RefImagePath == "" {
		t.Error("expected anchor frame path set")
	}
	if joe.HasEmbeddings() {
		t.Error("embeddings must stay null until async extraction")
	}
	if len(embeds.enqueued) != 1 || embeds.enqueued[0] != joe.ID {
		t.Errorf("expected embedding extraction enqueued for Joe, got %v", embeds.enqueued)
	}

	state, err := mem.GetOrCreateState(context.Background(), projectID, "")
	if err != nil {
		t.Fatalf("state fetch failed: %v", err)
	}
	if len(state.ActiveCharacterIDs) != 1 || state.ActiveCharacterIDs[0] != joe.ID {
		t.Errorf("expected active characters [%s], got %v", joe.ID, state.ActiveCharacterIDs)
	}
	// New-anchor policy: the anchor frame doubles as the flow reference.
	if state.LastFramePath != joe.RefImagePath {
		t.Errorf("expected last frame path %q, got %q", joe.RefImagePath, state.LastFramePath)
	}
	if state.ShotIndex != 1 {
		t.Errorf("expected shot index 1, got %d", state.ShotIndex)
	}
}

func TestGenerateSegment_SecondShotUsesAnchorAndFlow(t *testing.T) {
	mem := store.NewMemory()
	backend := &fakeBackend{videoBytes: []byte("mp4")}
	frames := &fakeFrames{}
	embeds := &fakeEmbeddings{}
	eng := newTestEngine(t, mem, backend, frames, embeds)
	projectID := uuid.New().String()
	ctx := context.Background()

	if _, err := eng.GenerateSegment(ctx, GenerateRequest{
		ProjectID:  projectID,
		BasePrompt: "A man walks into a bar",
		Characters: []model.ShotCharacter{{Name: "Joe"}},
	}); err != nil {
		t.Fatalf("first shot failed: %v", err)
	}

	result, err := eng.GenerateSegment(ctx, GenerateRequest{
		ProjectID:  projectID,
		BasePrompt: "Joe orders a drink",
		Characters: []model.ShotCharacter{{Name: "Joe"}},
	})
	if err != nil {
		t.Fatalf("second shot failed: %v", err)
	}

	// Anchor creation set the flow frame, so the second shot conditions on
	// both: [JoeAnchor@0.8, flow@0.5].
	if len(result.References) != 2 {
		t.Fatalf("expected 2 references, got %+v", result.References)
	}
	if result.References[0].Role != RoleCharacterAnchor || result.References[0].Weight != 0.8 {
		t.Errorf("unexpected first reference: %+v", result.References[0])
	}
	if result.References[1].Role != RoleFlow || result.References[1].Weight != 0.5 {
		t.Errorf("unexpected second reference: %+v", result.References[1])
	}

	if !strings.Contains(result.Prompt, "CONTINUE from the previous shot") {
		t.Errorf("expected cross-shot continuity lines on second shot, got %q", result.Prompt)
	}
}

func TestGenerateSegment_BackendFailurePropagates(t *testing.T) {
	mem := store.NewMemory()
	backend := &fakeBackend{err: errors.New("veo: operation failed")}
	eng := newTestEngine(t, mem, backend, &fakeFrames{}, &fakeEmbeddings{})
	projectID := uuid.New().String()

	_, err := eng.GenerateSegment(context.Background(), GenerateRequest{
		ProjectID:  projectID,
		BasePrompt: "base",
	})
	if err == nil {
		t.Fatal("expected backend failure to propagate")
	}

	// State stays untouched on failure.
	state, _ := mem.GetOrCreateState(context.Background(), projectID, "")
	if state.ShotIndex != 0 {
		t.Errorf("expected shot index unchanged, got %d", state.ShotIndex)
	}
}

func TestGenerateSegment_FrameExtractionFailureIsNonFatal(t *testing.T) {
	mem := store.NewMemory()
	backend := &fakeBackend{videoBytes: []byte("mp4")}
	frames := &fakeFrames{fail: true}
	eng := newTestEngine(t, mem, backend, frames, &fakeEmbeddings{})
	projectID := uuid.New().String()

	result, err := eng.GenerateSegment(context.Background(), GenerateRequest{
		ProjectID:  projectID,
		BasePrompt: "base",
		Characters: []model.ShotCharacter{{Name: "Joe"}},
	})
	if err != nil {
		t.Fatalf("expected best-effort frame extraction, got %v", err)
	}
	if len(result.NewCharacterIDs) != 1 {
		t.Fatalf("expected Joe still anchored, got %v", result.NewCharacterIDs)
	}

	// Continuity degrades: no flow frame, no anchor image.
	state, _ := mem.GetOrCreateState(context.Background(), projectID, "")
	if state.LastFramePath != "" {
		t.Errorf("expected no flow reference, got %q", state.LastFramePath)
	}
	joe, err := mem.GetCharacterByName(context.Background(), projectID, "Joe")
	if err != nil {
		t.Fatalf("Joe missing: %v", err)
	}
	if joe.RefImagePath != "" {
		t.Errorf("expected empty anchor image after extraction failure, got %q", joe.RefImagePath)
	}
}

func TestGenerateSegment_FlowFrameExtractedWithoutNewCharacters(t *testing.T) {
	mem := store.NewMemory()
	backend := &fakeBackend{videoBytes: []byte("mp4")}
	frames := &fakeFrames{}
	eng := newTestEngine(t, mem, backend, frames, &fakeEmbeddings{})
	projectID := uuid.New().String()

	if _, err := eng.GenerateSegment(context.Background(), GenerateRequest{
		ProjectID:  projectID,
		BasePrompt: "an empty street at dusk",
	}); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	state, _ := mem.GetOrCreateState(context.Background(), projectID, "")
	if !strings.HasSuffix(state.LastFramePath, "_last_frame.jpg") {
		t.Errorf("expected continuity flow frame, got %q", state.LastFramePath)
	}
}

func TestUpdateNarrativeFact_Overwrite(t *testing.T) {
	mem := store.NewMemory()
	eng := newTestEngine(t, mem, &fakeBackend{}, &fakeFrames{}, &fakeEmbeddings{})
	projectID := uuid.New().String()
	ctx := context.Background()

	if _, err := eng.UpdateNarrativeFact(ctx, projectID, "", "location", "forest"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	state, err := eng.UpdateNarrativeFact(ctx, projectID, "", "location", "cave")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if len(state.NarrativeContext) != 1 {
		t.Fatalf("expected exactly one fact, got %+v", state.NarrativeContext)
	}
	if v, _ := state.NarrativeContext.Get("location"); v != "cave" {
		t.Errorf("expected location=cave, got %q", v)
	}
}

func TestSetActiveCharacters_ReplacesSet(t *testing.T) {
	mem := store.NewMemory()
	eng := newTestEngine(t, mem, &fakeBackend{}, &fakeFrames{}, &fakeEmbeddings{})
	projectID := uuid.New().String()
	ctx := context.Background()

	a := &model.Character{ID: uuid.New().String(), ProjectID: projectID, Name: "A"}
	b := &model.Character{ID: uuid.New().String(), ProjectID: projectID, Name: "B"}
	for _, c := range []*model.Character{a, b} {
		if err := mem.CreateCharacter(ctx, c); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	state, n, err := eng.SetActiveCharacters(ctx, projectID, "", []string{"A", "B", "Nobody"})
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 anchors armed, got %d", n)
	}
	if len(state.ActiveCharacterIDs) != 2 || state.ActiveCharacterIDs[0] != a.ID || state.ActiveCharacterIDs[1] != b.ID {
		t.Errorf("unexpected active set: %v", state.ActiveCharacterIDs)
	}

	state, _, err = eng.SetActiveCharacters(ctx, projectID, "", []string{"B"})
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if len(state.ActiveCharacterIDs) != 1 || state.ActiveCharacterIDs[0] != b.ID {
		t.Errorf("expected replacement, not merge: %v", state.ActiveCharacterIDs)
	}
}
