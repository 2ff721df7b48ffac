package model

import "time"

// Character carries the identity anchor for one named character.
// Once RefImagePath and the embeddings are set they are identity
// ground-truth and are never overwritten.
type Character struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	Description string `json:"description,omitempty"`

	RefImagePath string `json:"refImagePath,omitempty"`

	// Filled asynchronously by the embedding worker; nil until then.
	FaceEmbedding  []float64 `json:"-"`
	StyleEmbedding []float64 `json:"-"`
	DominantColors []string  `json:"dominantColors,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Anchored reports whether the character has a reference image to inject.
func (c *Character) Anchored() bool {
	return c.RefImagePath != ""
}

// HasEmbeddings reports whether the async DNA extraction has completed.
func (c *Character) HasEmbeddings() bool {
	return len(c.FaceEmbedding) > 0
}

// ShotCharacter is a (name, description) pair proposed for a shot.
// Unknown names trigger zero-shot anchor creation after generation.
type ShotCharacter struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"desc,omitempty"`
}
