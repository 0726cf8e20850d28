package scorer

import (
	"github.com/rotisserie/eris"

	"github.com/triage-labs/acr-eval/internal/model"
)

// ErrEmptyBatch reports an aggregation over zero records. Surfaced to
// the caller rather than returning a summary full of NaN rates.
var ErrEmptyBatch = eris.New("scorer: empty batch")

// Aggregate reduces one mode's evaluation records into a BatchSummary.
// failed counts queries that produced no record (encoding failures,
// per-query deadline misses); they are reported separately and never
// enter the accuracy denominators.
func Aggregate(mode string, records []model.EvaluationRecord, failed int) (model.BatchSummary, error) {
	if len(records) == 0 {
		return model.BatchSummary{}, eris.Wrapf(ErrEmptyBatch, "mode %s", mode)
	}

	summary := model.BatchSummary{
		Mode:         mode,
		TotalQueries: len(records),
		FailedCount:  failed,
	}

	var sumPrecision, sumRecall, sumDistance, sumDistanceExact float64
	for _, record := range records {
		if record.ExactMatch {
			summary.ExactMatches++
			sumDistanceExact += record.Distance
		}
		if record.ProcedureMatch {
			summary.ProcedureMatches++
		}
		if record.ConditionMatch {
			summary.ConditionMatches++
		}
		sumPrecision += record.ProcedurePrecision
		sumRecall += record.ProcedureRecall
		sumDistance += record.Distance
	}

	n := float64(len(records))
	summary.ExactAccuracy = float64(summary.ExactMatches) / n
	summary.ProcedureAccuracy = float64(summary.ProcedureMatches) / n
	summary.ConditionAccuracy = float64(summary.ConditionMatches) / n
	summary.AvgProcedurePrecision = sumPrecision / n
	summary.AvgProcedureRecall = sumRecall / n
	summary.ProcedureF1 = model.F1(summary.AvgProcedurePrecision, summary.AvgProcedureRecall)
	summary.MeanDistance = sumDistance / n
	if summary.ExactMatches > 0 {
		summary.MeanDistanceExact = sumDistanceExact / float64(summary.ExactMatches)
	}

	return summary, nil
}
