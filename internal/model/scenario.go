package model

// Appropriateness labels used by the ACR catalog. The catalog is the
// source of truth; rows with labels outside this set are kept verbatim
// rather than rejected.
const (
	UsuallyAppropriate    = "Usually appropriate"
	MayBeAppropriate      = "May be appropriate"
	UsuallyNotAppropriate = "Usually not appropriate"
)

// ScenarioEntry is one row of the reference catalog: a clinical variant
// under its parent condition, with the appropriateness label for each
// associated imaging procedure. Variant is globally unique; every
// variant belongs to exactly one condition.
type ScenarioEntry struct {
	Condition  string            `json:"condition"`
	Variant    string            `json:"variant"`
	Procedures map[string]string `json:"procedures,omitempty"`
}

// ProcedureSet returns the set of procedure identifiers for the entry.
func (e *ScenarioEntry) ProcedureSet() map[string]struct{} {
	if e == nil || len(e.Procedures) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(e.Procedures))
	for proc := range e.Procedures {
		set[proc] = struct{}{}
	}
	return set
}

// EmbeddingRecord is the indexed form of a ScenarioEntry: the variant
// key, the vector produced from SourceText, and SourceText itself.
// SourceText is always built with the canonical template so the build
// path and any later re-embedding cannot drift apart.
type EmbeddingRecord struct {
	ID         string    `json:"id"`
	Vector     []float32 `json:"vector"`
	SourceText string    `json:"source_text"`
}
