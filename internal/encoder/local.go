package encoder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// LocalEncoder is an offline, dependency-free embedding provider: a
// hashed bag-of-words projection, L2-normalized. Texts sharing tokens
// land near each other, which is enough for offline evaluation runs and
// for tests. It is not a substitute for a real embedding model.
type LocalEncoder struct {
	dimension int
}

var _ Encoder = (*LocalEncoder)(nil)

// NewLocal creates a local encoder with the given dimension
// (default 256 when dimension <= 0).
func NewLocal(dimension int) *LocalEncoder {
	if dimension <= 0 {
		dimension = 256
	}
	return &LocalEncoder{dimension: dimension}
}

// Name identifies the provider.
func (e *LocalEncoder) Name() string { return "local/hash" }

// Dimension returns the configured vector length.
func (e *LocalEncoder) Dimension() int { return e.dimension }

// Encode embeds a single text. The empty string maps to the zero
// vector, a well-defined value.
func (e *LocalEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimension)
	for _, token := range strings.Fields(strings.ToLower(NormalizeText(text))) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()
		bucket := int(sum % uint32(e.dimension))
		// Sign split keeps unrelated tokens from only accumulating.
		if sum&0x80000000 != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		invNorm := float32(1 / math.Sqrt(sumSquares))
		for i := range vec {
			vec[i] *= invNorm
		}
	}
	return vec, nil
}

// EncodeBatch embeds multiple texts, preserving order.
func (e *LocalEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Encode(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}
