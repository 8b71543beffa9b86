package middleware

import (
	"sync"
	"time"

	"github.com/intuitive-data/redesign/internal/util"
	"github.com/intuitive-data/redesign/pkg/ai"
	oll "github.com/intuitive-data/redesign/pkg/ai/ollama"
	oai "github.com/intuitive-data/redesign/pkg/ai/openai"
	"github.com/intuitive-data/redesign/pkg/export"
	"github.com/intuitive-data/redesign/pkg/logger"
	"github.com/intuitive-data/redesign/pkg/predict"
	"github.com/intuitive-data/redesign/pkg/session"
	"github.com/intuitive-data/redesign/pkg/transition"

	"github.com/labstack/echo/v4"
)

// App bundles the long-lived services handlers need.
type App struct {
	Engine   *transition.Engine
	Exporter *export.Exporter

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// NewApp constructs the application services from the environment.
func NewApp() *App {
	embedder := newEmbedder()

	var scorer export.Scorer
	model, err := predict.New(predict.Config{
		Task:        predict.Classification,
		PreferLocal: util.GetEnvBool("PREDICT_PREFER_LOCAL", false),
		FitTimeout:  time.Duration(util.GetEnvNumeric("PREDICT_FIT_TIMEOUT_SEC", 120)) * time.Second,
	})
	if err != nil {
		logger.Warn("prediction model disabled", "err", err)
	} else {
		scorer = model
	}

	engineOpts := []transition.Option{}
	if embedder != nil {
		engineOpts = append(engineOpts, transition.WithEmbedder(embedder))
	}

	return &App{
		Engine: transition.NewEngine(engineOpts...),
		Exporter: export.New(export.Options{
			Scorer:    scorer,
			APIBudget: int(util.GetEnvNumeric("PREDICT_API_BUDGET", 100)),
		}),
		sessions: make(map[string]*session.Session),
	}
}

func newEmbedder() ai.Embedder {
	switch util.GetEnv("AI_ADAPTER") {
	case "ollama":
		client, err := oll.NewEmbedClient(oll.NewEmbedClientParams{
			Model:                 util.GetEnv("AI_EMBED_MODEL"),
			BaseURL:               util.GetEnv("AI_EMBED_URL"),
			ApiKey:                util.GetEnv("AI_EMBED_KEY"),
			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_MAX_CONCURRENT", 4)),
		})
		if err != nil {
			logger.Warn("ollama embedder disabled", "err", err)
			return nil
		}
		return client
	case "openai":
		return oai.NewEmbedClient(oai.NewEmbedClientParams{
			Model:                 util.GetEnv("AI_EMBED_MODEL"),
			BaseURL:               util.GetEnv("AI_EMBED_URL"),
			ApiKey:                util.GetEnv("AI_EMBED_KEY"),
			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_MAX_CONCURRENT", 8)),
		})
	}
	return nil
}

// CreateSession registers a fresh session.
func (a *App) CreateSession() (*session.Session, error) {
	sess, err := session.New()
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.sessions[sess.ID()] = sess
	a.mu.Unlock()
	return sess, nil
}

// Session looks up a registered session by id.
func (a *App) Session(id string) (*session.Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sess, ok := a.sessions[id]
	return sess, ok
}

// DeleteSession removes a session from the registry.
func (a *App) DeleteSession(id string) {
	a.mu.Lock()
	delete(a.sessions, id)
	a.mu.Unlock()
}

// AppContext carries the application services through echo handlers.
type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware wraps every request context with the shared App.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{Context: c, App: app})
		}
	}
}
