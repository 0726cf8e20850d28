package index

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-labs/acr-eval/internal/model"
)

func TestPGUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO acr_embeddings`).
		WithArgs("Acute chest pain. Initial imaging.", "Condition: Chest Pain | Clinical Scenario: Acute chest pain. Initial imaging.", "[1,0,0]").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	idx := NewPG(mock, 3)
	err = idx.Upsert(context.Background(), []model.EmbeddingRecord{{
		ID:         "Acute chest pain. Initial imaging.",
		SourceText: "Condition: Chest Pain | Clinical Scenario: Acute chest pain. Initial imaging.",
		Vector:     []float32{1, 0, 0},
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUpsertDimensionMismatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	idx := NewPG(mock, 3)
	err = idx.Upsert(context.Background(), []model.EmbeddingRecord{{ID: "v", Vector: []float32{1}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestPGNearest(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"variant", "distance"}).
		AddRow("near variant", 0.12).
		AddRow("far variant", 0.98)
	mock.ExpectQuery(`SELECT variant, embedding <-> \$1::vector AS distance`).
		WithArgs("[0.5,0.5]", 2).
		WillReturnRows(rows)

	idx := NewPG(mock, 2)
	neighbors, err := idx.Nearest(context.Background(), []float32{0.5, 0.5}, 2)
	require.NoError(t, err)

	require.Len(t, neighbors, 2)
	assert.Equal(t, Neighbor{ID: "near variant", Distance: 0.12}, neighbors[0])
	assert.Equal(t, Neighbor{ID: "far variant", Distance: 0.98}, neighbors[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGNearestEmptyResult(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT variant, embedding`).
		WithArgs("[1]", 1).
		WillReturnRows(pgxmock.NewRows([]string{"variant", "distance"}))

	idx := NewPG(mock, 1)
	neighbors, err := idx.Nearest(context.Background(), []float32{1}, 1)
	require.NoError(t, err)
	assert.Empty(t, neighbors)
}

func TestPGCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM acr_embeddings`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	idx := NewPG(mock, 4)
	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[1,0.5,-2]", vectorLiteral([]float32{1, 0.5, -2}))
	assert.Equal(t, "[]", vectorLiteral(nil))
}
