package continuity

import (
	"testing"

	"github.com/shotflow/api/internal/model"
)

func TestBuildReferenceSet_OrderAndWeights(t *testing.T) {
	anchors := []model.Character{
		{ID: "a", Name: "A", RefImagePath: "/media/a.jpg"},
		{ID: "b", Name: "B", RefImagePath: "/media/b.jpg"},
	}
	state := &model.ContinuityState{LastFramePath: "/media/flow.jpg"}
	exists := func(string) bool { return true }

	refs := BuildReferenceSet(anchors, state, exists)

	if len(refs) != 3 {
		t.Fatalf("expected 3 references, got %d", len(refs))
	}

	want := []Reference{
		{Role: RoleCharacterAnchor, ImagePath: "/media/a.jpg", Weight: 0.8},
		{Role: RoleCharacterAnchor, ImagePath: "/media/b.jpg", Weight: 0.8},
		{Role: RoleFlow, ImagePath: "/media/flow.jpg", Weight: 0.5},
	}
	for i, w := range want {
		if refs[i] != w {
			t.Errorf("refs[%d] = %+v, want %+v", i, refs[i], w)
		}
	}
}

func TestBuildReferenceSet_EmptyIsValid(t *testing.T) {
	refs := BuildReferenceSet(nil, &model.ContinuityState{}, func(string) bool { return true })
	if len(refs) != 0 {
		t.Errorf("expected empty reference set, got %+v", refs)
	}
}

func TestBuildReferenceSet_SkipsUnanchoredCharacters(t *testing.T) {
	anchors := []model.Character{
		{ID: "a", Name: "A"}, // no reference image yet
		{ID: "b", Name: "B", RefImagePath: "/media/b.jpg"},
	}

	refs := BuildReferenceSet(anchors, &model.ContinuityState{}, func(string) bool { return true })

	if len(refs) != 1 || refs[0].ImagePath != "/media/b.jpg" {
		t.Errorf("expected only anchored character, got %+v", refs)
	}
}

func TestBuildReferenceSet_MissingFlowFrameSkipped(t *testing.T) {
	state := &model.ContinuityState{LastFramePath: "/media/gone.jpg"}
	refs := BuildReferenceSet(nil, state, func(string) bool { return false })

	if len(refs) != 0 {
		t.Errorf("expected flow frame skipped when file is gone, got %+v", refs)
	}
}

func TestBuildReferenceSet_FlowOnly(t *testing.T) {
	state := &model.ContinuityState{LastFramePath: "/media/flow.jpg"}
	refs := BuildReferenceSet(nil, state, func(string) bool { return true })

	if len(refs) != 1 {
		t.Fatalf("expected 1 reference, got %d", len(refs))
	}
	if refs[0].Role != RoleFlow || refs[0].Weight != 0.5 {
		t.Errorf("unexpected flow reference: %+v", refs[0])
	}
}
