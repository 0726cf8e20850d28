// Package evaluator runs batches of retrieval queries against the
// vector index and grades each outcome with the partial-credit scorer.
package evaluator

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/triage-labs/acr-eval/internal/catalog"
	"github.com/triage-labs/acr-eval/internal/encoder"
	"github.com/triage-labs/acr-eval/internal/index"
	"github.com/triage-labs/acr-eval/internal/model"
	"github.com/triage-labs/acr-eval/internal/scorer"
)

// ErrEmptyIndex reports an evaluation attempted against an index with
// no records. This is a configuration error, not a scoring outcome.
var ErrEmptyIndex = eris.New("evaluator: index is empty")

// Query is one evaluation item: free text plus the catalog entry it
// should retrieve.
type Query struct {
	Text     string
	Expected *model.ScenarioEntry
}

// Result holds one batch's graded records, in input order, plus the
// number of queries that failed (encode or search errors) and were
// excluded from the records.
type Result struct {
	Records []model.EvaluationRecord
	Failed  int
}

// ModeReport is the outcome of one description mode: its records and
// the aggregated summary.
type ModeReport struct {
	Mode    string
	Records []model.EvaluationRecord
	Summary model.BatchSummary
}

// Evaluator wires an encoder, an index, and a scorer. All three are
// injected; the evaluator holds no global state and is safe for
// concurrent use because its collaborators are read-only during
// evaluation.
type Evaluator struct {
	enc         encoder.Encoder
	idx         index.Index
	cat         *catalog.Catalog
	score       *scorer.Scorer
	concurrency int
}

// New creates an evaluator. concurrency bounds the number of in-flight
// encode+search calls; values below 1 run sequentially.
func New(enc encoder.Encoder, idx index.Index, cat *catalog.Catalog, concurrency int) *Evaluator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Evaluator{
		enc:         enc,
		idx:         idx,
		cat:         cat,
		score:       scorer.New(cat),
		concurrency: concurrency,
	}
}

// Evaluate grades a batch of queries. Output order matches input
// order. Individual query failures are logged, tallied, and excluded;
// only an empty index aborts the batch.
func (e *Evaluator) Evaluate(ctx context.Context, queries []Query) (*Result, error) {
	count, err := e.idx.Count(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "evaluator: count index")
	}
	if count == 0 {
		return nil, ErrEmptyIndex
	}

	type slot struct {
		record model.EvaluationRecord
		ok     bool
	}
	slots := make([]slot, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, query := range queries {
		g.Go(func() error {
			record, evalErr := e.evaluateOne(gctx, query)
			if evalErr != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				zap.L().Warn("evaluator: query failed",
					zap.String("expected_variant", query.Expected.Variant),
					zap.Error(evalErr),
				)
				return nil // failed query, not a batch failure
			}
			slots[i] = slot{record: record, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "evaluator: batch")
	}

	result := &Result{Records: make([]model.EvaluationRecord, 0, len(queries))}
	for _, s := range slots {
		if !s.ok {
			result.Failed++
			continue
		}
		result.Records = append(result.Records, s.record)
	}
	return result, nil
}

func (e *Evaluator) evaluateOne(ctx context.Context, query Query) (model.EvaluationRecord, error) {
	vector, err := e.enc.Encode(ctx, query.Text)
	if err != nil {
		return model.EvaluationRecord{}, eris.Wrap(err, "encode query")
	}

	neighbors, err := e.idx.Nearest(ctx, vector, 1)
	if err != nil {
		return model.EvaluationRecord{}, eris.Wrap(err, "nearest")
	}
	if len(neighbors) == 0 {
		// Count was checked up front; an empty result here means the
		// index changed underneath us.
		return model.EvaluationRecord{}, ErrEmptyIndex
	}

	top := neighbors[0]
	retrieved, ok := e.cat.Entry(top.ID)
	if !ok {
		// Index knows a variant the catalog does not; degrade to a
		// bare entry so condition/procedure matching can report false.
		retrieved = &model.ScenarioEntry{Variant: top.ID}
	}

	record := e.score.Score(query.Expected, retrieved, top.Distance)
	return record, nil
}

// EvaluateModes runs one evaluation per description mode in the batch
// and aggregates each mode separately. Modes are never mixed into one
// summary. Cases missing a mode's text are skipped for that mode.
func (e *Evaluator) EvaluateModes(ctx context.Context, batch *catalog.CaseBatch) ([]ModeReport, error) {
	reports := make([]ModeReport, 0, len(batch.Modes))
	for _, mode := range batch.Modes {
		queries := e.queriesForMode(batch, mode)
		if len(queries) == 0 {
			zap.L().Warn("evaluator: mode has no queries", zap.String("mode", mode))
			continue
		}

		result, err := e.Evaluate(ctx, queries)
		if err != nil {
			return nil, eris.Wrapf(err, "evaluator: mode %s", mode)
		}

		summary, err := scorer.Aggregate(mode, result.Records, result.Failed)
		if err != nil {
			return nil, err
		}

		zap.L().Info("evaluator: mode complete",
			zap.String("mode", mode),
			zap.Int("queries", summary.TotalQueries),
			zap.Int("failed", summary.FailedCount),
			zap.Float64("exact_accuracy", summary.ExactAccuracy),
		)
		reports = append(reports, ModeReport{Mode: mode, Records: result.Records, Summary: summary})
	}
	return reports, nil
}

func (e *Evaluator) queriesForMode(batch *catalog.CaseBatch, mode string) []Query {
	var queries []Query
	for _, c := range batch.Cases {
		text, ok := c.Descriptions[mode]
		if !ok {
			continue
		}
		queries = append(queries, Query{Text: text, Expected: e.expectedEntry(c)})
	}
	return queries
}

// expectedEntry resolves a case's ground truth against the catalog,
// falling back to the case file's own procedure set when the variant
// is not in the catalog.
func (e *Evaluator) expectedEntry(c catalog.Case) *model.ScenarioEntry {
	if entry, ok := e.cat.Entry(c.Variant); ok {
		return entry
	}
	entry := &model.ScenarioEntry{Variant: c.Variant}
	if len(c.Procedures) > 0 {
		entry.Procedures = make(map[string]string, len(c.Procedures))
		for proc := range c.Procedures {
			entry.Procedures[proc] = ""
		}
	}
	return entry
}
