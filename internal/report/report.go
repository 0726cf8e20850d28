// Package report renders evaluation results: per-query detail CSVs,
// per-mode summary CSVs, a YAML run manifest, and a terminal table.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/triage-labs/acr-eval/internal/evaluator"
	"github.com/triage-labs/acr-eval/internal/model"
)

// DetailRow is one evaluation record flattened for CSV export.
type DetailRow struct {
	Mode               string  `csv:"mode"`
	ExpectedVariant    string  `csv:"expected_variant"`
	RetrievedVariant   string  `csv:"retrieved_variant"`
	ExpectedCondition  string  `csv:"expected_condition"`
	RetrievedCondition string  `csv:"retrieved_condition"`
	Distance           float64 `csv:"distance"`
	ExactMatch         bool    `csv:"exact_match"`
	ProcedureMatch     bool    `csv:"procedure_match"`
	ConditionMatch     bool    `csv:"condition_match"`
	ProcedurePrecision float64 `csv:"procedure_precision"`
	ProcedureRecall    float64 `csv:"procedure_recall"`
	ExpectedProcedures string  `csv:"expected_procedures"`
}

// SummaryRow is one mode's aggregate metrics flattened for CSV export.
type SummaryRow struct {
	Mode                  string  `csv:"mode"`
	TotalQueries          int     `csv:"total_queries"`
	FailedCount           int     `csv:"failed_count"`
	ExactAccuracy         float64 `csv:"exact_accuracy"`
	ProcedureAccuracy     float64 `csv:"procedure_accuracy"`
	ConditionAccuracy     float64 `csv:"condition_accuracy"`
	AvgProcedurePrecision float64 `csv:"avg_procedure_precision"`
	AvgProcedureRecall    float64 `csv:"avg_procedure_recall"`
	ProcedureF1           float64 `csv:"procedure_f1"`
	MeanDistance          float64 `csv:"mean_distance"`
	MeanDistanceExact     float64 `csv:"mean_distance_exact"`
}

// WriteDetailCSV writes every record from every mode report as one CSV
// with a mode column, so a single file covers the whole run.
func WriteDetailCSV(w io.Writer, reports []evaluator.ModeReport, conditionOf func(string) (string, bool)) error {
	writer := csv.NewWriter(w)
	enc := csvutil.NewEncoder(writer)

	for _, report := range reports {
		for _, record := range report.Records {
			if err := enc.Encode(detailRow(report.Mode, record, conditionOf)); err != nil {
				return eris.Wrap(err, "report: encode detail row")
			}
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "report: flush detail csv")
}

func detailRow(mode string, record model.EvaluationRecord, conditionOf func(string) (string, bool)) DetailRow {
	row := DetailRow{
		Mode:               mode,
		ExpectedVariant:    record.Expected.Variant,
		RetrievedVariant:   record.Retrieved.Variant,
		Distance:           record.Distance,
		ExactMatch:         record.ExactMatch,
		ProcedureMatch:     record.ProcedureMatch,
		ConditionMatch:     record.ConditionMatch,
		ProcedurePrecision: record.ProcedurePrecision,
		ProcedureRecall:    record.ProcedureRecall,
		ExpectedProcedures: joinProcedures(record.Expected.ProcedureSet()),
	}
	if condition, ok := conditionOf(record.Expected.Variant); ok {
		row.ExpectedCondition = condition
	}
	if condition, ok := conditionOf(record.Retrieved.Variant); ok {
		row.RetrievedCondition = condition
	}
	return row
}

func joinProcedures(set map[string]struct{}) string {
	if len(set) == 0 {
		return ""
	}
	procs := make([]string, 0, len(set))
	for proc := range set {
		procs = append(procs, proc)
	}
	sort.Strings(procs)
	return strings.Join(procs, "; ")
}

// WriteSummaryCSV writes one row per mode.
func WriteSummaryCSV(w io.Writer, summaries []model.BatchSummary) error {
	writer := csv.NewWriter(w)
	enc := csvutil.NewEncoder(writer)

	for _, summary := range summaries {
		if err := enc.Encode(summaryRow(summary)); err != nil {
			return eris.Wrap(err, "report: encode summary row")
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "report: flush summary csv")
}

func summaryRow(s model.BatchSummary) SummaryRow {
	return SummaryRow{
		Mode:                  s.Mode,
		TotalQueries:          s.TotalQueries,
		FailedCount:           s.FailedCount,
		ExactAccuracy:         s.ExactAccuracy,
		ProcedureAccuracy:     s.ProcedureAccuracy,
		ConditionAccuracy:     s.ConditionAccuracy,
		AvgProcedurePrecision: s.AvgProcedurePrecision,
		AvgProcedureRecall:    s.AvgProcedureRecall,
		ProcedureF1:           s.ProcedureF1,
		MeanDistance:          s.MeanDistance,
		MeanDistanceExact:     s.MeanDistanceExact,
	}
}

// FormatSummaries writes a human-readable per-mode table to out.
func FormatSummaries(out io.Writer, summaries []model.BatchSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MODE\tQUERIES\tFAILED\tEXACT\tPROC\tCOND\tPRECISION\tRECALL\tF1\tMEAN_DIST")
	_, _ = fmt.Fprintln(w, "----\t-------\t------\t-----\t----\t----\t---------\t------\t--\t---------")

	for _, s := range summaries {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.4f\n",
			s.Mode,
			s.TotalQueries,
			s.FailedCount,
			s.ExactAccuracy,
			s.ProcedureAccuracy,
			s.ConditionAccuracy,
			s.AvgProcedurePrecision,
			s.AvgProcedureRecall,
			s.ProcedureF1,
			s.MeanDistance,
		)
	}
	_ = w.Flush()
}
