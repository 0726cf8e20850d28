// Package encoder maps free text to fixed-dimension embedding vectors.
// Encoding is deterministic for identical input; the same encoder and
// the same canonical text template must be used for index build and for
// queries or distances stop meaning anything.
package encoder

import "context"

// Encoder produces embedding vectors for text.
type Encoder interface {
	// Encode embeds a single text. Empty input is accepted and returns
	// a well-defined vector.
	Encode(ctx context.Context, text string) ([]float32, error)

	// EncodeBatch embeds multiple texts, preserving input order.
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the fixed output vector length.
	Dimension() int

	// Name identifies the provider and model for run manifests.
	Name() string
}
