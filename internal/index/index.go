// Package index stores one embedding per catalog entry and answers
// k-nearest-neighbor queries by Euclidean (L2) distance. The metric is
// fixed: build and query always use L2, matching pgvector's <->
// operator. Ties on equal distance break by insertion order so
// evaluation runs are reproducible.
package index

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/triage-labs/acr-eval/internal/model"
)

// ErrDimensionMismatch reports a vector whose length differs from the
// index dimension.
var ErrDimensionMismatch = eris.New("index: vector dimension mismatch")

// Neighbor is one k-NN result: the record ID (catalog variant) and its
// L2 distance from the query vector, smaller meaning more similar.
type Neighbor struct {
	ID       string
	Distance float64
}

// Index is the nearest-neighbor service boundary. Querying an empty
// index returns an empty slice, never an error; results are ascending
// by distance with length min(k, count).
type Index interface {
	Upsert(ctx context.Context, records []model.EmbeddingRecord) error
	Nearest(ctx context.Context, vector []float32, k int) ([]Neighbor, error)
	Count(ctx context.Context) (int, error)
}
