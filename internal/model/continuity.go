package model

import (
	"encoding/json"
	"time"
)

// NarrativeFact is one key-value semantic assertion about the unfolding
// scene, e.g. {"item_held": "glowing sword"}.
type NarrativeFact struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NarrativeContext is an insertion-ordered fact map. Keys are unique;
// setting an existing key overwrites the value in place. It only grows or
// overwrites, never implicitly clears.
type NarrativeContext []NarrativeFact

func (nc NarrativeContext) Get(key string) (string, bool) {
	for _, f := range nc {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func (nc *NarrativeContext) Set(key, value string) {
	for i, f := range *nc {
		if f.Key == key {
			(*nc)[i].Value = value
			return
		}
	}
	*nc = append(*nc, NarrativeFact{Key: key, Value: value})
}

// ContinuityState is the durable per-project memory of narrative facts,
// active characters, the flow frame, and cross-shot text continuity.
// Exactly one row per project, additionally keyed by a unique session id.
type ContinuityState struct {
	ProjectID string `json:"projectId"`
	SessionID string `json:"sessionId"`

	// Temporal flow: the most recently extracted trailing frame.
	LastFramePath string `json:"lastFramePath,omitempty"`

	NarrativeContext   NarrativeContext `json:"narrativeContext"`
	ActiveCharacterIDs []string         `json:"activeCharacterIds"`

	// Text continuity tracked across shots.
	ShotIndex       int      `json:"shotIndex"`
	LastCamera      string   `json:"lastCamera,omitempty"`
	LastShotSummary string   `json:"lastShotSummary,omitempty"`
	GlobalPalette   []string `json:"globalPalette,omitempty"`
	GlobalStyleHint string   `json:"globalStyleHint,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// MarshalNarrativeContext / unmarshal helpers keep the jsonb column a plain
// ordered array of {key,value} pairs.
func (nc NarrativeContext) MarshalJSONB() ([]byte, error) {
	if nc == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(nc)
}

func UnmarshalNarrativeContext(data []byte) (NarrativeContext, error) {
	if len(data) == 0 {
		return NarrativeContext{}, nil
	}
	var nc NarrativeContext
	if err := json.Unmarshal(data, &nc); err != nil {
		return nil, err
	}
	return nc, nil
}
