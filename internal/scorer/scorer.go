// Package scorer grades retrievals with layered partial credit: exact
// variant match, procedure-set overlap, and parent-condition match.
package scorer

import (
	"github.com/triage-labs/acr-eval/internal/catalog"
	"github.com/triage-labs/acr-eval/internal/model"
)

// Scorer computes partial-credit evaluation records against a fixed
// catalog. The catalog provides the condition→variant partition used
// for condition matching.
type Scorer struct {
	cat *catalog.Catalog
}

// New creates a scorer over the given catalog.
func New(cat *catalog.Catalog) *Scorer {
	return &Scorer{cat: cat}
}

// Score grades one retrieval. Decision order:
//
//  1. Exact variant match short-circuits: all flags true, precision
//     and recall 1.0, regardless of procedure sets.
//  2. Otherwise procedure overlap: precision = |I|/|retrieved set|,
//     recall = |I|/|expected set|, match when the intersection is
//     non-empty. Either set empty means 0/0 and no match.
//  3. Condition match is evaluated independently via the catalog
//     partition; a variant missing from the catalog is a no-match,
//     not an error.
func (s *Scorer) Score(expected, retrieved *model.ScenarioEntry, distance float64) model.EvaluationRecord {
	record := model.EvaluationRecord{
		Expected:  expected,
		Retrieved: retrieved,
		Distance:  distance,
	}

	if expected.Variant == retrieved.Variant {
		record.ExactMatch = true
		record.ProcedureMatch = true
		record.ConditionMatch = true
		record.ProcedurePrecision = 1.0
		record.ProcedureRecall = 1.0
		return record
	}

	expectedSet := expected.ProcedureSet()
	retrievedSet := retrieved.ProcedureSet()
	if len(expectedSet) > 0 && len(retrievedSet) > 0 {
		overlap := 0
		for proc := range expectedSet {
			if _, ok := retrievedSet[proc]; ok {
				overlap++
			}
		}
		record.ProcedureMatch = overlap > 0
		record.ProcedurePrecision = float64(overlap) / float64(len(retrievedSet))
		record.ProcedureRecall = float64(overlap) / float64(len(expectedSet))
	}

	expectedCondition, okExpected := s.cat.ConditionOf(expected.Variant)
	retrievedCondition, okRetrieved := s.cat.ConditionOf(retrieved.Variant)
	record.ConditionMatch = okExpected && okRetrieved && expectedCondition == retrievedCondition

	return record
}
