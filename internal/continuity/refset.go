package continuity

import (
	"github.com/shotflow/api/internal/model"
)

// Reference weights. Identity preservation dominates motion/lighting
// continuity, so character anchors outweigh the flow frame.
const (
	AnchorWeight = 0.8
	FlowWeight   = 0.5
)

type ReferenceRole string

const (
	RoleCharacterAnchor ReferenceRole = "character-anchor"
	RoleFlow            ReferenceRole = "flow"
)

// Reference is one weighted conditioning image for the video backend.
type Reference struct {
	Role      ReferenceRole `json:"role"`
	ImagePath string        `json:"imagePath"`
	Weight    float64       `json:"weight"`
}

// BuildReferenceSet assembles the ordered conditioning set: every anchored
// character first, in resolution order, then at most one flow entry. An
// empty result is valid and means an unconditioned generation (e.g. the
// very first shot of a project).
//
// exists guards the flow frame against a trailing frame that was recorded
// but no longer is on disk; anchors are injected on path presence alone.
func BuildReferenceSet(anchors []model.Character, state *model.ContinuityState, exists func(string) bool) []Reference {
	var refs []Reference

	for _, c := range anchors {
		if c.RefImagePath == "" {
			continue
		}
		refs = append(refs, Reference{
			Role:      RoleCharacterAnchor,
			ImagePath: c.RefImagePath,
			Weight:    AnchorWeight,
		})
	}

	if state != nil && state.LastFramePath != "" && exists(state.LastFramePath) {
		refs = append(refs, Reference{
			Role:      RoleFlow,
			ImagePath: state.LastFramePath,
			Weight:    FlowWeight,
		})
	}

	return refs
}
