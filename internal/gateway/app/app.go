// Package app assembles the gateway from config: persistence, LLM client,
// artifact archive, run service, HTTP routes.
package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"distillery/internal/gateway/config"
	"distillery/internal/gateway/handler"
	"distillery/internal/gateway/repository/artifact"
	"distillery/internal/gateway/run"
	"distillery/internal/gateway/server"
	llmclient "distillery/internal/llmClient"
	"distillery/internal/store"
)

type App struct {
	server *server.Server
	store  store.Store
	llm    llmclient.LLMClient
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := newStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	llm, err := newLLM(cfg)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init llm client: %w", err)
	}

	runSvc := run.NewService(st, llm, newArtifactStore(cfg, st))
	h := handler.New(runSvc, st)

	mux := server.NewMux(h)
	srv := server.New(cfg.Port, mux)

	return &App{
		server: srv,
		store:  st,
		llm:    llm,
	}, nil
}

func newStore(cfg *config.Config) (store.Store, error) {
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		return store.NewPostgres(cfg.DatabaseURL)
	}
	log.Printf("no DATABASE_URL set, using in-memory store")
	return store.NewMemoryStore(), nil
}

func newLLM(cfg *config.Config) (llmclient.LLMClient, error) {
	if cfg.Gemini.APIKey == "" {
		log.Printf("no GEMINI_API_KEY set, using offline fake client")
		return llmclient.NewFakeClient(), nil
	}
	gem, err := llmclient.NewGeminiClient(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.DefaultModel)
	if err != nil {
		return nil, err
	}
	return llmclient.Chain(gem, llmclient.Retry(3, time.Second)), nil
}

// newArtifactStore picks object storage when configured, the database when
// available, memory otherwise. Archival is best effort either way.
func newArtifactStore(cfg *config.Config, st store.Store) artifact.Store {
	if cfg.Artifact.Enabled {
		s3, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err == nil {
			return s3
		}
		log.Printf("artifact s3 store unavailable, falling back: %v", err)
	}
	if pg, ok := st.(*store.PostgresStore); ok {
		return artifact.NewPostgresStore(pg.DB())
	}
	return artifact.NewMemoryStore()
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	_ = a.llm.Close()
	_ = a.store.Close()
	return err
}
