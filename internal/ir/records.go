package ir

// PassRecord describes one committed reconciliation pass.
// Shared between the scheduler (producer) and the journal store (consumer).
type PassRecord struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	Origin    string         `json:"origin"`              // "root" or "component"
	Component string         `json:"component,omitempty"` // requesting component, if any
	Units     int            `json:"units"`
	TreeHash  string         `json:"tree_hash"`
	Effects   []EffectRecord `json:"effects"`
}

// EffectRecord is one applied effect.
type EffectRecord struct {
	Tag  string   `json:"tag"`            // insert, update or delete
	Kind string   `json:"kind"`           // host tag or component name
	Path string   `json:"path"`           // child-index path from the root
	Keys []string `json:"keys,omitempty"` // property keys touched by an update
}

// FailureRecord describes a pass that failed and was discarded.
type FailureRecord struct {
	ID        string `json:"id"`
	Seq       int64  `json:"seq"`
	Origin    string `json:"origin"`
	Component string `json:"component,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// CountEffects returns the number of effects per tag.
func (r PassRecord) CountEffects() map[string]int {
	out := make(map[string]int, 3)
	for _, e := range r.Effects {
		out[e.Tag]++
	}
	return out
}
