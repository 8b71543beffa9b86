package openai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/intuitive-data/redesign/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// EmbedClient implements ai.Embedder against an OpenAI compatible
// embedding endpoint.
type EmbedClient struct {
	model   string
	timeout time.Duration
	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *openai.Client
}

// NewEmbedClientParams configures an OpenAI embedding client.
type NewEmbedClientParams struct {
	Model   string
	BaseURL string
	ApiKey  string

	Timeout               time.Duration
	MaxConcurrentRequests int64
}

// NewEmbedClient creates a client for the given endpoint and model.
func NewEmbedClient(params NewEmbedClientParams) *EmbedClient {
	opts := []option.RequestOption{}
	if params.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(params.BaseURL))
	}
	if params.ApiKey != "" {
		opts = append(opts, option.WithAPIKey(params.ApiKey))
	}
	cli := openai.NewClient(opts...)

	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 8
	}
	if params.Timeout <= 0 {
		params.Timeout = time.Minute
	}

	return &EmbedClient{
		model:   params.Model,
		timeout: params.Timeout,
		reqLock: semaphore.NewWeighted(params.MaxConcurrentRequests),
		Client:  &cli,
	}
}

// Embed sends all inputs in a single batch request and returns one
// vector per input, in input order.
func (c *EmbedClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	start := time.Now()
	response, err := c.Client.Embeddings.New(rCtx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: int(response.Usage.PromptTokens),
		TotalTokens: int(response.Usage.TotalTokens),
		Requests:    1,
		DurationMs:  time.Since(start).Milliseconds(),
	})

	if len(response.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(response.Data), len(inputs))
	}

	out := make([][]float32, len(inputs))
	for _, embedding := range response.Data {
		idx := int(embedding.Index)
		if idx < 0 || idx >= len(inputs) {
			return nil, fmt.Errorf("embedding index out of range: %d", embedding.Index)
		}
		vec := make([]float32, len(embedding.Embedding))
		for i, v := range embedding.Embedding {
			vec[i] = float32(v)
		}
		out[idx] = vec
	}
	return out, nil
}

// Available probes the endpoint with a minimal embedding request.
func (c *EmbedClient) Available(ctx context.Context) bool {
	rCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.Client.Embeddings.New(rCtx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{"ping"}},
		Model: c.model,
	})
	return err == nil
}

func (c *EmbedClient) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.InputTokens += delta.InputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.Requests += delta.Requests
	c.metrics.DurationMs += delta.DurationMs
}

// ResetMetrics zeroes the accumulated usage counters.
func (c *EmbedClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns a copy of the accumulated usage counters.
func (c *EmbedClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
