package index

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/triage-labs/acr-eval/internal/model"
)

// DB is the subset of pgxpool.Pool the index needs. pgxmock satisfies
// it too, which is how the query paths are tested.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGIndex stores embeddings in PostgreSQL with the pgvector extension.
// Nearest-neighbor queries use the <-> (L2) operator with a secondary
// sort on row id so equal distances resolve by insertion order.
type PGIndex struct {
	db        DB
	dimension int
}

var _ Index = (*PGIndex)(nil)

// NewPG creates a pgvector-backed index over an existing connection
// pool.
func NewPG(db DB, dimension int) *PGIndex {
	return &PGIndex{db: db, dimension: dimension}
}

// Migrate creates the extension and the embeddings table.
func (p *PGIndex) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS acr_embeddings (
			id SERIAL PRIMARY KEY,
			variant TEXT NOT NULL UNIQUE,
			source_text TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, p.dimension),
	}
	for _, stmt := range statements {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "index: migrate")
		}
	}
	return nil
}

// Upsert writes records, replacing the vector and source text for
// variants already present.
func (p *PGIndex) Upsert(ctx context.Context, records []model.EmbeddingRecord) error {
	for _, record := range records {
		if len(record.Vector) != p.dimension {
			return ErrDimensionMismatch
		}
		_, err := p.db.Exec(ctx,
			`INSERT INTO acr_embeddings (variant, source_text, embedding)
			 VALUES ($1, $2, $3::vector)
			 ON CONFLICT (variant) DO UPDATE
			 SET source_text = EXCLUDED.source_text, embedding = EXCLUDED.embedding`,
			record.ID, record.SourceText, vectorLiteral(record.Vector),
		)
		if err != nil {
			return eris.Wrapf(err, "index: upsert %s", record.ID)
		}
	}
	return nil
}

// Count returns the number of stored embeddings.
func (p *PGIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRow(ctx, `SELECT count(*) FROM acr_embeddings`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "index: count")
	}
	return n, nil
}

// Nearest returns the k closest records by L2 distance.
func (p *PGIndex) Nearest(ctx context.Context, vector []float32, k int) ([]Neighbor, error) {
	if k <= 0 {
		return []Neighbor{}, nil
	}
	if len(vector) != p.dimension {
		return nil, ErrDimensionMismatch
	}

	rows, err := p.db.Query(ctx,
		`SELECT variant, embedding <-> $1::vector AS distance
		 FROM acr_embeddings
		 ORDER BY embedding <-> $1::vector, id
		 LIMIT $2`,
		vectorLiteral(vector), k,
	)
	if err != nil {
		return nil, eris.Wrap(err, "index: nearest query")
	}
	defer rows.Close()

	neighbors := []Neighbor{}
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ID, &n.Distance); err != nil {
			return nil, eris.Wrap(err, "index: scan neighbor")
		}
		neighbors = append(neighbors, n)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "index: iterate neighbors")
	}
	return neighbors, nil
}

// vectorLiteral renders a vector in pgvector's text format, e.g.
// [0.1,0.2,0.3].
func vectorLiteral(vector []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
