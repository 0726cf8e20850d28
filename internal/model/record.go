package model

import "time"

// QueryResult is the raw outcome of one nearest-neighbor lookup:
// the query text, the single closest catalog entry, and the distance
// between the two embeddings (smaller is more similar).
type QueryResult struct {
	QueryText string         `json:"query_text"`
	Retrieved *ScenarioEntry `json:"retrieved"`
	Distance  float64        `json:"distance"`
}

// EvaluationRecord grades one retrieval against ground truth. Created
// by the scorer, consumed by the aggregator, never mutated in between.
type EvaluationRecord struct {
	Expected  *ScenarioEntry `json:"expected"`
	Retrieved *ScenarioEntry `json:"retrieved"`
	Distance  float64        `json:"distance"`

	ExactMatch     bool `json:"exact_match"`
	ProcedureMatch bool `json:"procedure_match"`
	ConditionMatch bool `json:"condition_match"`

	ProcedurePrecision float64 `json:"procedure_precision"`
	ProcedureRecall    float64 `json:"procedure_recall"`
}

// BatchSummary reduces the records of one evaluation mode. A mode is
// one coherent query condition (e.g. the "closest" rephrasing of every
// case); summaries are never computed across modes.
type BatchSummary struct {
	Mode         string `json:"mode" yaml:"mode"`
	TotalQueries int    `json:"total_queries" yaml:"total_queries"`
	FailedCount  int    `json:"failed_count" yaml:"failed_count"`

	ExactMatches     int `json:"exact_matches" yaml:"exact_matches"`
	ProcedureMatches int `json:"procedure_matches" yaml:"procedure_matches"`
	ConditionMatches int `json:"condition_matches" yaml:"condition_matches"`

	ExactAccuracy     float64 `json:"exact_accuracy" yaml:"exact_accuracy"`
	ProcedureAccuracy float64 `json:"procedure_accuracy" yaml:"procedure_accuracy"`
	ConditionAccuracy float64 `json:"condition_accuracy" yaml:"condition_accuracy"`

	AvgProcedurePrecision float64 `json:"avg_procedure_precision" yaml:"avg_procedure_precision"`
	AvgProcedureRecall    float64 `json:"avg_procedure_recall" yaml:"avg_procedure_recall"`
	ProcedureF1           float64 `json:"procedure_f1" yaml:"procedure_f1"`

	MeanDistance      float64 `json:"mean_distance" yaml:"mean_distance"`
	MeanDistanceExact float64 `json:"mean_distance_exact,omitempty" yaml:"mean_distance_exact,omitempty"`
}

// RunStatus tracks the lifecycle of a persisted evaluation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one persisted evaluation run: the inputs it was given and the
// per-mode summaries it produced.
type Run struct {
	ID          string         `json:"id"`
	CatalogPath string         `json:"catalog_path"`
	CasesPath   string         `json:"cases_path"`
	Encoder     string         `json:"encoder"`
	Status      RunStatus      `json:"status"`
	Summaries   []BatchSummary `json:"summaries,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// F1 is the harmonic mean of precision and recall, defined as 0 when
// both are 0.
func F1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
