package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/intuitive-data/redesign/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// EmbedClient implements ai.Embedder against a locally hosted Ollama
// server.
type EmbedClient struct {
	model      string
	timeout    time.Duration
	reqLock    *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *api.Client
}

// NewEmbedClientParams configures an Ollama embedding client.
type NewEmbedClientParams struct {
	Model   string
	BaseURL string
	ApiKey  string

	Timeout               time.Duration
	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewEmbedClient connects to the Ollama server at BaseURL (the Ollama
// default when empty) and uses Model for all embedding requests.
func NewEmbedClient(params NewEmbedClientParams) (*EmbedClient, error) {
	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing ollama base url: %w", err)
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 4
	}
	if params.Timeout <= 0 {
		params.Timeout = time.Minute
	}

	return &EmbedClient{
		model:   params.Model,
		timeout: params.Timeout,
		reqLock: semaphore.NewWeighted(params.MaxConcurrentRequests),
		Client:  api.NewClient(u, httpClient),
	}, nil
}

// Embed returns one vector per input, in input order.
func (c *EmbedClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(inputs))
	for i, input := range inputs {
		if strings.TrimSpace(input) == "" {
			out[i] = nil
			continue
		}

		rCtx, cancel := context.WithTimeout(ctx, c.timeout)
		if err := c.reqLock.Acquire(rCtx, 1); err != nil {
			cancel()
			return nil, err
		}

		start := time.Now()
		res, err := c.Client.Embed(rCtx, &api.EmbedRequest{
			Model: c.model,
			Input: input,
		})
		c.reqLock.Release(1)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("ollama embed: %w", err)
		}
		if len(res.Embeddings) != 1 {
			return nil, fmt.Errorf("unexpected embedding result size: got %d want 1", len(res.Embeddings))
		}
		out[i] = res.Embeddings[0]

		c.modifyMetrics(ai.ModelMetrics{
			InputTokens: res.PromptEvalCount,
			TotalTokens: res.PromptEvalCount,
			Requests:    1,
			DurationMs:  time.Since(start).Milliseconds(),
		})
	}
	return out, nil
}

// Available reports whether the Ollama server answers a version probe.
func (c *EmbedClient) Available(ctx context.Context) bool {
	rCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.Client.Version(rCtx)
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
