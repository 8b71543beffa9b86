package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/intuitive-data/redesign/internal/util"
)

const defaultBaseURL = "https://api.tabpfn.example.com/v1"

// remoteBackend talks to the hosted tabular prediction service over a
// small JSON API. Fit uploads the training split and keeps the model
// id the service hands back; predictions reference that id.
type remoteBackend struct {
	task    Task
	baseURL string
	token   string
	client  *http.Client

	modelID string
}

func newRemoteBackend(cfg Config) (*remoteBackend, error) {
	token, err := ResolveToken(cfg.Token)
	if err != nil {
		return nil, err
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = util.GetEnvString("PREDICT_REMOTE_URL", defaultBaseURL)
	}
	b := &remoteBackend{
		task:    cfg.Task,
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
	if err := b.probe(); err != nil {
		return nil, fmt.Errorf("remote prediction service unreachable: %w", err)
	}
	return b, nil
}

func (b *remoteBackend) Name() string {
	return "remote"
}

func (b *remoteBackend) probe() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	res, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %s", res.Status)
	}
	return nil
}

type fitRequest struct {
	Task     string      `json:"task"`
	Features [][]float64 `json:"features"`
	Target   []float64   `json:"target"`
}

type fitResponse struct {
	ModelID string `json:"model_id"`
}

func (b *remoteBackend) Fit(ctx context.Context, features [][]float64, target []float64) error {
	var res fitResponse
	err := b.post(ctx, "/fit", fitRequest{
		Task:     b.task.String(),
		Features: features,
		Target:   target,
	}, &res)
	if err != nil {
		return err
	}
	if res.ModelID == "" {
		return fmt.Errorf("fit response carried no model id")
	}
	b.modelID = res.ModelID
	return nil
}

type predictRequest struct {
	ModelID  string      `json:"model_id"`
	Features [][]float64 `json:"features"`
	Proba    bool        `json:"proba,omitempty"`
}

type predictResponse struct {
	Predictions   []float64   `json:"predictions,omitempty"`
	Probabilities [][]float64 `json:"probabilities,omitempty"`
}

func (b *remoteBackend) Predict(ctx context.Context, features [][]float64) ([]float64, error) {
	var res predictResponse
	err := b.post(ctx, "/predict", predictRequest{ModelID: b.modelID, Features: features}, &res)
	if err != nil {
		return nil, err
	}
	return res.Predictions, nil
}

func (b *remoteBackend) PredictProba(ctx context.Context, features [][]float64) ([][]float64, error) {
	var res predictResponse
	err := b.post(ctx, "/predict", predictRequest{ModelID: b.modelID, Features: features, Proba: true}, &res)
	if err != nil {
		return nil, err
	}
	return res.Probabilities, nil
}

// post sends a JSON request and decodes the JSON response. Transient
// failures are retried with backoff.
func (b *remoteBackend) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	body, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+b.token)
		req.Header.Set("Content-Type", "application/json")

		res, err := b.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		raw, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s returned %s: %s", path, res.Status, raw)
		}
		return raw, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
