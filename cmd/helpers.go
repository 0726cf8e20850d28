package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/triage-labs/acr-eval/internal/catalog"
	"github.com/triage-labs/acr-eval/internal/encoder"
	"github.com/triage-labs/acr-eval/internal/index"
	"github.com/triage-labs/acr-eval/internal/model"
	"github.com/triage-labs/acr-eval/internal/store"
)

// embedBatchSize bounds how many catalog texts go into one embeddings
// request.
const embedBatchSize = 64

// timeNow is a seam for tests.
var timeNow = func() time.Time { return time.Now().UTC() }

func initStore() (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func newEncoder() (encoder.Encoder, error) {
	switch cfg.Embeddings.Provider {
	case "local":
		return encoder.NewLocal(cfg.Embeddings.Dimension), nil
	case "openai":
		return encoder.NewOpenAI(encoder.OpenAIConfig{
			APIKey:            cfg.Embeddings.Key,
			BaseURL:           cfg.Embeddings.BaseURL,
			Model:             cfg.Embeddings.Model,
			RequestsPerSecond: cfg.Embeddings.RequestsPerSecond,
		})
	default:
		return nil, eris.Errorf("unknown embeddings provider %q", cfg.Embeddings.Provider)
	}
}

// newIndex builds the configured index backend. The returned closer is
// a no-op for the in-memory driver.
func newIndex(ctx context.Context, dimension int) (index.Index, func(), error) {
	switch cfg.Index.Driver {
	case "memory":
		return index.NewMemory(dimension), func() {}, nil
	case "pgvector":
		pool, err := pgxpool.New(ctx, cfg.Index.DatabaseURL)
		if err != nil {
			return nil, nil, eris.Wrap(err, "connect pgvector")
		}
		pg := index.NewPG(pool, dimension)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	default:
		return nil, nil, eris.Errorf("unknown index driver %q", cfg.Index.Driver)
	}
}

// indexCatalog embeds every catalog entry under its templated text and
// upserts the vectors. Batched to keep request counts down.
func indexCatalog(ctx context.Context, enc encoder.Encoder, idx index.Index, cat *catalog.Catalog) error {
	entries := cat.Entries()

	for start := 0; start < len(entries); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]

		texts := make([]string, len(chunk))
		for i, entry := range chunk {
			condition, _ := cat.ConditionOf(entry.Variant)
			texts[i] = encoder.EmbeddingText(condition, entry.Variant)
		}

		vectors, err := enc.EncodeBatch(ctx, texts)
		if err != nil {
			return eris.Wrap(err, "embed catalog batch")
		}

		records := make([]model.EmbeddingRecord, len(chunk))
		for i, entry := range chunk {
			records[i] = model.EmbeddingRecord{
				ID:         entry.Variant,
				Vector:     vectors[i],
				SourceText: texts[i],
			}
		}
		if err := idx.Upsert(ctx, records); err != nil {
			return err
		}

		zap.L().Debug("indexed catalog batch",
			zap.Int("from", start),
			zap.Int("to", end),
			zap.Int("total", len(entries)),
		)
	}
	return nil
}
