// Package httpapi talks to the external text-embedding service over
// its small HTTP surface (POST /embed, GET /health).
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"docsearch/internal/core/domain"
	"docsearch/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Executor          *resilience.Executor
}

func New(baseURL, model string, dimension int, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = 8
	}
	burst := options.Burst
	if burst <= 0 {
		burst = int(math.Ceil(rps))
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		executor:   options.Executor,
	}
}

// Dimension is the single vector width accepted by the store schema.
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed requests one embedding and L2-normalizes it so cosine and
// dot-product scoring agree downstream. A missing embedding field, a
// zero vector or a width other than Dimension() is rejected before
// anything can be written.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	request := map[string]any{
		"text":  text,
		"model": c.model,
	}

	var response struct {
		Embedding []float32 `json:"embedding"`
	}
	call := func(callCtx context.Context) error {
		response.Embedding = nil
		return c.postJSON(callCtx, "/embed", request, &response, "embed")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "embedding.embed", call, classifyProviderError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingProvider, "embed text", wrapTemporaryIfNeeded(err))
	}

	vector := response.Embedding
	if len(vector) == 0 {
		return nil, domain.WrapError(domain.ErrEmbeddingProvider, "embed text", errors.New("response has no embedding field"))
	}
	if len(vector) != c.dimension {
		return nil, domain.WrapError(
			domain.ErrEmbeddingProvider,
			"embed text",
			fmt.Errorf("dimension mismatch: provider returned %d, store expects %d", len(vector), c.dimension),
		)
	}
	if err := normalize(vector); err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingProvider, "embed text", err)
	}
	return vector, nil
}

// Healthy probes the provider without side effects.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// normalize scales the vector to unit Euclidean length in place.
func normalize(vector []float32) error {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	magnitude := math.Sqrt(sum)
	if magnitude == 0 {
		return errors.New("zero-magnitude embedding cannot be normalized")
	}
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
	return nil
}
