package encoder

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/triage-labs/acr-eval/internal/resilience"
)

// OpenAIConfig configures the OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // optional, for proxies and tests
	Model   string // default text-embedding-3-small

	// RequestsPerSecond throttles API calls; 0 disables throttling.
	RequestsPerSecond float64
}

// OpenAIEncoder implements Encoder against the OpenAI embeddings API.
type OpenAIEncoder struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

var _ Encoder = (*OpenAIEncoder)(nil)

// NewOpenAI creates an OpenAI-backed encoder.
func NewOpenAI(cfg OpenAIConfig) (*OpenAIEncoder, error) {
	if cfg.APIKey == "" {
		return nil, eris.New("encoder: openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = shouldRetryOpenAI
	retry.OnRetry = resilience.RetryLogger("openai", "embeddings")

	return &OpenAIEncoder{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		limiter: limiter,
		retry:   retry,
	}, nil
}

// shouldRetryOpenAI treats rate limits and server-side failures as
// transient; everything else (auth, validation) fails fast.
func shouldRetryOpenAI(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.HTTPStatusCode)
	}
	return resilience.IsTransient(err)
}

// Name returns the provider and model identifier.
func (e *OpenAIEncoder) Name() string {
	return "openai/" + e.model
}

// Dimension returns the embedding dimension for the configured model.
func (e *OpenAIEncoder) Dimension() int {
	switch e.model {
	case string(openai.LargeEmbedding3):
		return 3072
	default:
		return 1536
	}
}

// Encode embeds a single text.
func (e *OpenAIEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, eris.New("encoder: openai returned no embedding")
	}
	return vectors[0], nil
}

// EncodeBatch embeds multiple texts in one request, preserving order.
// A failed call surfaces as an error; no zero-vector substitution.
func (e *OpenAIEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "encoder: rate limit wait")
		}
	}

	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (openai.EmbeddingResponse, error) {
		return e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(e.model),
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "encoder: create embeddings")
	}
	if len(resp.Data) != len(texts) {
		return nil, eris.Errorf("encoder: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, eris.Errorf("encoder: embedding index %d out of range", data.Index)
		}
		vectors[data.Index] = data.Embedding
	}
	return vectors, nil
}
