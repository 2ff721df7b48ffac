package continuity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/store"
)

func TestResolve_UnknownCharacterDeferred(t *testing.T) {
	mem := store.NewMemory()
	r := NewAnchorResolver(mem)
	projectID := uuid.New().String()

	res, err := r.Resolve(context.Background(), projectID, []model.ShotCharacter{{Name: "Joe"}})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(res.Existing) != 0 {
		t.Errorf("expected no existing anchors, got %d", len(res.Existing))
	}
	if len(res.New) != 1 || res.New[0].Name != "Joe" {
		t.Errorf("expected Joe deferred as new, got %+v", res.New)
	}

	// Resolution alone persists nothing.
	if _, err := mem.GetCharacterByName(context.Background(), projectID, "Joe"); !errors.Is(err, store.ErrCharacterNotFound) {
		t.Errorf("expected no anchor persisted before CreateFromOutput, got %v", err)
	}
}

func TestResolve_ExistingCharacterUntouched(t *testing.T) {
	mem := store.NewMemory()
	r := NewAnchorResolver(mem)
	projectID := uuid.New().String()

	char := &model.Character{
		ID:             uuid.New().String(),
		ProjectID:      projectID,
		Name:           "Joe",
		RefImagePath:   "/media/joe.jpg",
		FaceEmbedding:  []float64{0.1, 0.2},
		StyleEmbedding: []float64{0.3},
		DominantColors: []string{"#112233"},
	}
	if err := mem.CreateCharacter(context.Background(), char); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		res, err := r.Resolve(context.Background(), projectID, []model.ShotCharacter{{Name: "Joe", Description: "new desc should be ignored"}})
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if len(res.Existing) != 1 || len(res.New) != 0 {
			t.Fatalf("expected Joe resolved as existing, got %+v", res)
		}
	}

	stored, err := mem.GetCharacter(context.Background(), char.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.RefImagePath != "/media/joe.jpg" {
		t.Errorf("reference image mutated: %q", stored.RefImagePath)
	}
	if len(stored.FaceEmbedding) != 2 || stored.FaceEmbedding[0] != 0.1 {
		t.Errorf("face embedding mutated: %v", stored.FaceEmbedding)
	}
}

func TestResolve_ExactCaseSensitiveMatch(t *testing.T) {
	mem := store.NewMemory()
	r := NewAnchorResolver(mem)
	projectID := uuid.New().String()

	seed := &model.Character{ID: uuid.New().String(), ProjectID: projectID, Name: "Joe"}
	if err := mem.CreateCharacter(context.Background(), seed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	res, err := r.Resolve(context.Background(), projectID, []model.ShotCharacter{{Name: "joe"}})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(res.New) != 1 {
		t.Errorf("lowercase name should not match %q, got %+v", "Joe", res)
	}
}

func TestCreateFromOutput(t *testing.T) {
	mem := store.NewMemory()
	r := NewAnchorResolver(mem)
	projectID := uuid.New().String()

	char, err := r.CreateFromOutput(context.Background(), projectID, model.ShotCharacter{Name: "Joe"}, "/media/joe_anchor.jpg")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if char.RefImagePath != "/media/joe_anchor.jpg" {
		t.Errorf("unexpected ref image: %q", char.RefImagePath)
	}
	if char.HasEmbeddings() {
		t.Error("expected null embeddings until async extraction")
	}
	if char.Description == "" {
		t.Error("expected auto-generated description")
	}
}

func TestCreateFromOutput_RaceReusesWinner(t *testing.T) {
	mem := store.NewMemory()
	r := NewAnchorResolver(mem)
	projectID := uuid.New().String()

	winner := &model.Character{ID: uuid.New().String(), ProjectID: projectID, Name: "Joe", RefImagePath: "/media/winner.jpg"}
	if err := mem.CreateCharacter(context.Background(), winner); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	char, err := r.CreateFromOutput(context.Background(), projectID, model.ShotCharacter{Name: "Joe"}, "/media/loser.jpg")
	if err != nil {
		t.Fatalf("expected losing insert treated as reuse, got %v", err)
	}
	if char.ID != winner.ID || char.RefImagePath != "/media/winner.jpg" {
		t.Errorf("expected winner's anchor reused, got %+v", char)
	}
}
