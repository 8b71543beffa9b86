package predict

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/intuitive-data/redesign/pkg/logger"
)

// Task selects what kind of target the model predicts.
type Task int

const (
	Classification Task = iota
	Regression
)

func (t Task) String() string {
	if t == Regression {
		return "regression"
	}
	return "classification"
}

var (
	// ErrUnavailable means no backend could be initialized. It is
	// fatal for the caller, there is nothing to retry.
	ErrUnavailable = errors.New("no prediction backend available")

	// ErrNotFitted means Predict, PredictProba or Score was called
	// before a successful Fit. This is a programming error, not a
	// recoverable condition.
	ErrNotFitted = errors.New("model has not been fitted")
)

// TimeoutError reports a Fit that ran past its wall-clock budget. The
// model stays usable; a later Fit with a larger budget can succeed.
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("fit exceeded the %s wall-clock budget", e.Budget)
}

// Backend is a concrete prediction engine behind the model wrapper.
type Backend interface {
	Name() string
	Fit(ctx context.Context, features [][]float64, target []float64) error
	Predict(ctx context.Context, features [][]float64) ([]float64, error)
	PredictProba(ctx context.Context, features [][]float64) ([][]float64, error)
}

// Config describes how to construct a Model.
type Config struct {
	Task Task

	// PreferLocal tries the local baseline before the remote service.
	// The default order is remote first.
	PreferLocal bool

	// Token authenticates against the remote service. When empty the
	// environment and the token file are consulted, see ResolveToken.
	Token string

	// BaseURL overrides the remote service endpoint.
	BaseURL string

	// FitTimeout bounds Fit wall-clock time. Zero means no bound.
	FitTimeout time.Duration
}

// Model wraps a prediction backend behind a stable API. Construction
// probes backends in preference order and falls back when one cannot
// initialize; only when neither works does it fail.
type Model struct {
	cfg     Config
	backend Backend

	mu     sync.Mutex
	fitted bool
}

// New selects a backend and returns a ready-to-fit model.
func New(cfg Config) (*Model, error) {
	candidates := backendCandidates(cfg)
	for _, build := range candidates {
		backend, err := build()
		if err != nil {
			logger.Warn("prediction backend unavailable", "error", err)
			continue
		}
		logger.Info("prediction backend selected", "backend", backend.Name(), "task", cfg.Task.String())
		return &Model{cfg: cfg, backend: backend}, nil
	}
	return nil, ErrUnavailable
}

func backendCandidates(cfg Config) []func() (Backend, error) {
	remote := func() (Backend, error) { return newRemoteBackend(cfg) }
	local := func() (Backend, error) { return newLocalBackend(cfg.Task), nil }
	if cfg.PreferLocal {
		return []func() (Backend, error){local, remote}
	}
	return []func() (Backend, error){remote, local}
}

// BackendName reports which backend serves this model.
func (m *Model) BackendName() string {
	return m.backend.Name()
}

// Fit trains on the given features and target. When a FitTimeout is
// configured the training runs in its own goroutine and an expired
// budget yields a TimeoutError while the training goroutine is left to
// finish in the background; its late result is discarded.
func (m *Model) Fit(ctx context.Context, features [][]float64, target []float64) error {
	if len(features) == 0 || len(features) != len(target) {
		return fmt.Errorf("fit requires equal non-zero feature and target lengths, got %d and %d",
			len(features), len(target))
	}

	if m.cfg.FitTimeout <= 0 {
		if err := m.backend.Fit(ctx, features, target); err != nil {
			return err
		}
		m.setFitted(true)
		return nil
	}

	fitCtx, cancel := context.WithTimeout(ctx, m.cfg.FitTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.backend.Fit(fitCtx, features, target)
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		m.setFitted(true)
		return nil
	case <-fitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TimeoutError{Budget: m.cfg.FitTimeout}
	}
}

func (m *Model) setFitted(v bool) {
	m.mu.Lock()
	m.fitted = v
	m.mu.Unlock()
}

func (m *Model) requireFitted() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.fitted {
		return ErrNotFitted
	}
	return nil
}

// Predict returns one prediction per feature row.
func (m *Model) Predict(ctx context.Context, features [][]float64) ([]float64, error) {
	if err := m.requireFitted(); err != nil {
		return nil, err
	}
	return m.backend.Predict(ctx, features)
}

// PredictProba returns per-class probabilities for each feature row.
// It is only defined for classification models.
func (m *Model) PredictProba(ctx context.Context, features [][]float64) ([][]float64, error) {
	if m.cfg.Task != Classification {
		return nil, fmt.Errorf("probabilities are only defined for classification models")
	}
	if err := m.requireFitted(); err != nil {
		return nil, err
	}
	return m.backend.PredictProba(ctx, features)
}

// Score evaluates the fitted model: accuracy for classification, the
// coefficient of determination for regression.
func (m *Model) Score(ctx context.Context, features [][]float64, target []float64) (float64, error) {
	if err := m.requireFitted(); err != nil {
		return 0, err
	}
	if len(features) != len(target) || len(target) == 0 {
		return 0, fmt.Errorf("score requires equal non-zero feature and target lengths")
	}
	predictions, err := m.backend.Predict(ctx, features)
	if err != nil {
		return 0, err
	}
	if len(predictions) != len(target) {
		return 0, fmt.Errorf("backend returned %d predictions for %d rows", len(predictions), len(target))
	}

	if m.cfg.Task == Classification {
		correct := 0
		for i := range target {
			if predictions[i] == target[i] {
				correct++
			}
		}
		return float64(correct) / float64(len(target)), nil
	}

	mean := 0.0
	for _, y := range target {
		mean += y
	}
	mean /= float64(len(target))

	var ssRes, ssTot float64
	for i, y := range target {
		d := y - predictions[i]
		ssRes += d * d
		t := y - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}
